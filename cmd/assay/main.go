package main

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/soaringjerry/Assay/internal/auth"
	"github.com/soaringjerry/Assay/internal/config"
	"github.com/soaringjerry/Assay/internal/console"
	"github.com/soaringjerry/Assay/internal/db"
	"github.com/soaringjerry/Assay/internal/jobs"
	"github.com/soaringjerry/Assay/internal/logging"
	"github.com/soaringjerry/Assay/internal/services"
)

const loginAttempts = 3

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logs := logging.Setup(logging.Options{
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxMB,
		MaxBackups: cfg.LogBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer logs.Close()

	if err := run(cfg); err != nil && !errors.Is(err, io.EOF) {
		log.Printf("assay: %v", err)
		logs.Close()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Store == "sqlite" {
		if err := MigrateIfNeeded(ctx, cfg.SnapshotPath, cfg.SQLitePath, cfg.MigrationsDir); err != nil {
			return err
		}
	}
	gw, err := db.NewGateway(ctx, cfg.GatewayOptions())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := gw.Close(); cerr != nil {
			log.Printf("assay: close store: %v", cerr)
		}
	}()

	engine := services.NewEngine(gw, cfg.Roles)
	if err := engine.Load(ctx); err != nil {
		log.Printf("assay: %v; starting with an empty catalog", err)
	}
	if cfg.SeedSample {
		if seeded, err := engine.SeedSample(); err != nil {
			log.Printf("assay: seed sample data: %v", err)
		} else if seeded {
			log.Printf("assay: sample surveys created")
		}
	}

	sweep, err := jobs.Start(engine, cfg.CloseSweep)
	if err != nil {
		return err
	}

	authm, err := auth.NewManager(cfg.JWTSecret, cfg.SessionTTL, cfg.Roles)
	if err != nil {
		return err
	}
	term := console.NewTerminal(os.Stdin, os.Stdout)
	console.Banner(term, "Assay")
	sess := &console.Session{Engine: engine, Auth: authm, Prompt: term, Locale: cfg.Locale}

	done := make(chan error, 1)
	go func() {
		if err := console.Login(sess, loginAttempts); err != nil {
			done <- err
			return
		}
		done <- console.Run(sess)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		log.Printf("assay: shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	<-sweep.Stop().Done()
	if serr := engine.Shutdown(shutdownCtx); serr != nil {
		log.Printf("assay: final save: %v", serr)
	}
	return err
}
