// Package backup schedules and writes the daily user-data snapshot.
package backup

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/example/bettertactics/internal/clock"
	"github.com/example/bettertactics/internal/store"
)

// Config tunes where and when backups are written.
type Config struct {
	Enabled bool
	Path    string
	Hour    int
}

// Daemon runs the daily backup job. It owns no state beyond the
// underlying gocron scheduler; the store is the single shared
// resource it writes into.
type Daemon struct {
	store     *store.Store
	cfg       Config
	clk       clock.Clock
	scheduler *gocron.Scheduler
}

func New(st *store.Store, cfg Config, clk clock.Clock) *Daemon {
	return &Daemon{
		store:     st,
		cfg:       cfg,
		clk:       clk,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start checks whether today's backup already ran (catching up on a
// missed run since the last restart), then schedules the daily job.
// It returns immediately; the scheduler runs in the background until
// Stop is called or ctx is cancelled.
func (d *Daemon) Start(ctx context.Context) error {
	if !d.cfg.Enabled {
		log.Println("backup: disabled, not starting daemon")
		return nil
	}

	if err := os.MkdirAll(d.cfg.Path, 0755); err != nil {
		return fmt.Errorf("backup: failed to create backup directory: %w", err)
	}

	if err := d.catchUpIfNeeded(ctx); err != nil {
		log.Printf("backup: catch-up run failed: %v", err)
	}

	if _, err := d.scheduler.Every(1).Day().At(fmt.Sprintf("%02d:00", d.cfg.Hour)).Do(func() {
		if err := d.runOnce(ctx); err != nil {
			log.Printf("backup: scheduled run failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("backup: failed to schedule daily job: %w", err)
	}

	d.scheduler.StartAsync()

	go func() {
		<-ctx.Done()
		d.scheduler.Stop()
	}()

	return nil
}

func (d *Daemon) Stop() {
	d.scheduler.Stop()
}

// catchUpIfNeeded runs a backup immediately if the last recorded
// backup date is before the most recent occurrence of the configured
// backup hour, so a process
// that was down through its scheduled hour doesn't silently skip a day.
func (d *Daemon) catchUpIfNeeded(ctx context.Context) error {
	appData, err := d.store.GetAppData(ctx)
	if err != nil {
		return err
	}

	now := d.clk.Now()
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), d.cfg.Hour, 0, 0, 0, now.Location())
	if cutoff.After(now) {
		cutoff = cutoff.AddDate(0, 0, -1)
	}

	if appData.LastBackupDate != nil && !appData.LastBackupDate.Before(cutoff) {
		return nil
	}

	log.Println("backup: no backup recorded for today, running catch-up backup")
	return d.runOnce(ctx)
}

func (d *Daemon) runOnce(ctx context.Context) error {
	now := d.clk.Now()
	filename := fmt.Sprintf("%s.sqlite", now.Format("20060102"))
	dest := filepath.Join(d.cfg.Path, filename)

	if err := d.store.Backup(ctx, dest); err != nil {
		return err
	}

	log.Printf("backup: wrote snapshot to %s", dest)
	return d.store.SetLastBackupDate(ctx, now)
}
