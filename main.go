package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classmaster/internal/auth"
	"classmaster/internal/config"
	"classmaster/internal/docstore"
	"classmaster/internal/firebase"
	"classmaster/internal/payment"
	"classmaster/internal/repository"
	"classmaster/internal/router"
	"classmaster/internal/server"

	"github.com/golang/glog"
)

func main() {
	envFile := flag.String("env", ".env", "path to an optional .env file")
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.Load(*envFile)
	if err != nil {
		glog.Fatalf("❌ Missing or invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		glog.Fatalf("error opening %s store: %v", cfg.StoreDriver, err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			glog.Warningf("error closing store: %v", err)
		}
	}()
	glog.Infof("✅ Opened %s document store", cfg.StoreDriver)

	var payments payment.Gateway
	if cfg.PaymentServerKey != "" {
		payments = payment.NewMidtransGateway(cfg.PaymentServerKey, cfg.PaymentProduction)
	}

	handlers := router.NewHandlers(
		repository.New(store),
		auth.NewTokenIssuer(cfg.TokenSecret, cfg.TokenExpiration),
		auth.NewVerifier(cfg.TokenSecret),
		payments,
	)
	srv := server.New(cfg, handlers)

	errs := make(chan error, 1)
	go func() {
		errs <- srv.Start()
	}()

	select {
	case err := <-errs:
		if err != nil {
			glog.Errorf("server stopped: %v", err)
		}
	case <-ctx.Done():
		glog.Infoln("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			glog.Errorf("error shutting down: %v", err)
		}
	}
}

func openStore(ctx context.Context, cfg *config.ServerConfig) (docstore.Store, error) {
	opts := docstore.Options{
		Driver:        cfg.StoreDriver,
		Timeout:       cfg.StoreTimeout,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
		BoltPath:      cfg.BoltPath,
	}

	if cfg.StoreDriver == docstore.DriverFirestore {
		client, err := firebase.NewFirestoreClient(ctx, cfg.FirestoreCredentialsFile, cfg.FirestoreProjectID)
		if err != nil {
			return nil, err
		}
		opts.Firestore = client
	}

	return docstore.Open(ctx, opts)
}
