package main

import (
	"flag"
	"log"

	"payroll-gateway/internal/config"
	"payroll-gateway/internal/handlers"
	"payroll-gateway/internal/jws"
	"payroll-gateway/internal/keys"
	"payroll-gateway/internal/logging"
	"payroll-gateway/internal/payroll"
	"payroll-gateway/internal/saib"
	"payroll-gateway/internal/server"
	"payroll-gateway/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the yaml configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.New(cfg)
	defer logger.Sync()

	pemText, err := cfg.SigningKeyPEM()
	if err != nil {
		log.Fatalf("failed to read signing key: %v", err)
	}
	key, err := keys.Load(pemText)
	if err != nil {
		report := keys.Diagnose(pemText)
		for i, issue := range report.Issues {
			log.Printf("signing key issue: %s (remedy: %s)", issue, report.Recommendations[i])
		}
		log.Fatalf("signing key is unusable: %v", err)
	}

	signer := jws.NewSigner(key)
	bank := saib.NewClient(&cfg.Bank, signer, logger)
	store := storage.NewMemory()
	svc := payroll.NewService(cfg, store, bank, logger)

	srv := server.New(handlers.NewHandler(svc, logger), logger)
	if err := srv.Start(cfg.Server.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
