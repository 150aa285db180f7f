package main

import (
	"github.com/sirupsen/logrus"

	"doc-risk-eval/internal/api"
	"doc-risk-eval/internal/config"
	"doc-risk-eval/internal/riskapi"
	"doc-risk-eval/internal/store"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		logrus.Fatalf("load config: %v", err)
	}
	cfg.Log.Apply()

	client := riskapi.NewClient(cfg.ServiceClientConfig())

	var history *store.Database
	if cfg.History.Path != "" {
		history, err = store.Open(cfg.History.Path, false)
		if err != nil {
			logrus.Fatalf("open history: %v", err)
		}
		defer history.Close()
	}

	server, err := api.NewServer(api.Config{
		Service:        client,
		Health:         client,
		Endpoint:       client.BaseURL(),
		History:        history,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
	})
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	logrus.WithField("service", client.BaseURL()).Infof("starting doc-risk-eval front end on :%s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
