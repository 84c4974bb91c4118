package main

import (
	"flag"
	"log"

	"github.com/simp-lee/assetsrv/internal/app"
	"github.com/simp-lee/assetsrv/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	envPath := flag.String("env", ".env", "path to dotenv file with APP__ overrides (optional)")
	flag.Parse()

	if err := config.LoadEnvFile(*envPath); err != nil {
		log.Fatal("failed to load env file: ", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatal("failed to create app: ", err)
	}

	if err := a.Run(); err != nil {
		log.Fatal("server error: ", err)
	}
}
