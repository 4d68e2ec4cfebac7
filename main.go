package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/bettertactics/internal/backup"
	"github.com/example/bettertactics/internal/clock"
	"github.com/example/bettertactics/internal/config"
	"github.com/example/bettertactics/internal/importer"
	"github.com/example/bettertactics/internal/scheduler"
	"github.com/example/bettertactics/internal/selection"
	"github.com/example/bettertactics/internal/service"
	"github.com/example/bettertactics/internal/store"
)

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer st.Close()

	clk := clock.Real{}
	sched := scheduler.New(scheduler.Config{
		DefaultEase:     cfg.SRSDefaultEase,
		MinimumEase:     cfg.SRSMinimumEase,
		EasyBonus:       cfg.SRSEasyBonus,
		LearningSteps:   scheduler.DefaultConfig().LearningSteps,
		RelearningSteps: scheduler.DefaultConfig().RelearningSteps,
		DayEndHour:      cfg.SRSDayEndHour,
	}, clk)
	sel := selection.New(st, sched, selection.DefaultConfig(), clk)
	// svc is the typed façade an HTTP layer would mount; this module
	// stops at constructing it, per the core/HTTP split.
	svc := service.New(st, sched, sel, clk)
	log.Printf("service façade ready: %T", svc)

	// The import task is spawned once per process; Run returns right
	// away when the lichess_db_imported flag is already set. Otherwise
	// it's long-lived and cancellable at batch boundaries.
	go func() {
		if err := importer.Run(ctx, importer.DefaultConfig(), st); err != nil {
			log.Printf("importer: %v", err)
		}
	}()

	backupDaemon := backup.New(st, backup.Config{
		Enabled: cfg.BackupEnabled,
		Path:    cfg.BackupPath,
		Hour:    cfg.BackupHour,
	}, clk)
	if err := backupDaemon.Start(ctx); err != nil {
		log.Fatalf("backup: %v", err)
	}

	done := make(chan struct{})
	go func() {
		sig := <-sigChan
		log.Printf("received signal: %v", sig)
		cancel()
		backupDaemon.Stop()
		close(done)
	}()

	log.Printf("bettertactics core started (configured for %s:%d, HTTP layer not part of this module)",
		cfg.BindInterface, cfg.BindPort)
	<-done
	log.Println("bettertactics core stopped")
}
