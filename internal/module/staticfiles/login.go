package staticfiles

import (
	"context"
	"errors"
)

// ErrNoLoginCheck is returned when a login check is requested but the module
// was built without one.
var ErrNoLoginCheck = errors.New("login check not configured")

// LoginRequirement describes what a caller must be to pass a login check.
type LoginRequirement struct {
	Project           string
	Admin             bool
	Superuser         bool
	CanCreateProjects bool
	ExtendSession     bool
}

// LoginCheckFunc is supplied by the authentication collaborator and reports
// whether the current session satisfies req.
type LoginCheckFunc func(ctx context.Context, req LoginRequirement) bool
