// Package scheduler implements the Scheduler component (spec §4.G): an
// hourly tick that fires daily tasks at most once per calendar date.
package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jcgurango/meremail/internal/config"
	"github.com/jcgurango/meremail/internal/logging"
	"github.com/jcgurango/meremail/internal/store"
)

const (
	tickInterval    = 1 * time.Hour
	backupRetention = 7 * 24 * time.Hour
	retentionMaxAge = 30 * 24 * time.Hour
	isoDateLayout   = "2006-01-02"
)

// Scheduler runs the daily snapshot and retention sweep tasks (spec §4.G).
type Scheduler struct {
	store *store.Store
	cfg   config.Config
	log   logging.Logger
}

func New(st *store.Store, cfg config.Config) *Scheduler {
	return &Scheduler{store: st, cfg: cfg, log: logging.Logger{Name: "scheduler"}}
}

// Run fires on startup and every hour thereafter until ctx is cancelled
// (spec §4.G "fires on process startup and every hour thereafter").
func (s *Scheduler) Run(ctx context.Context) {
	s.tick()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	today := time.Now().UTC().Format(isoDateLayout)

	state, err := s.store.GetSchedulerState()
	if err != nil {
		s.log.Error("scheduler: read state failed", err)
		return
	}

	if state.LastBackupDate != today {
		if err := s.runDailySnapshot(); err != nil {
			s.log.Error("scheduler: daily snapshot failed", err)
		} else if err := s.store.SetLastBackupDate(today); err != nil {
			s.log.Error("scheduler: record backup date failed", err)
		}
	}

	if state.LastRetentionCleanupDate != today {
		if err := s.runRetentionSweep(); err != nil {
			s.log.Error("scheduler: retention sweep failed", err)
		} else if err := s.store.SetLastRetentionCleanupDate(today); err != nil {
			s.log.Error("scheduler: record retention date failed", err)
		}
	}
}

// RunBackupNow triggers an out-of-band snapshot, bypassing the once-per-day
// gate (CLI `meremaild backup now`).
func (s *Scheduler) RunBackupNow() error {
	return s.runDailySnapshot()
}

// runDailySnapshot implements spec §4.G task 1.
func (s *Scheduler) runDailySnapshot() error {
	backupDir := filepath.Join(s.cfg.DataRoot, "backups")
	dest := filepath.Join(backupDir, fmt.Sprintf("meremail-%s.db", time.Now().UTC().Format("20060102-150405")))

	if err := store.Backup(s.store.DB(), dest); err != nil {
		return err
	}

	return s.pruneOldBackups(backupDir)
}

func (s *Scheduler) pruneOldBackups(dir string) error {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	cutoff := time.Now().UTC().Add(-backupRetention)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				s.log.Error("scheduler: prune backup failed", err)
			}
		}
	}
	return nil
}

// runRetentionSweep implements spec §4.G task 2.
func (s *Scheduler) runRetentionSweep() error {
	cutoff := time.Now().UTC().Add(-retentionMaxAge)

	if s.cfg.TrashFolderID != nil {
		if err := s.sweepFolder(*s.cfg.TrashFolderID, cutoff, true); err != nil {
			return err
		}
	}
	if s.cfg.JunkFolderID != nil {
		if err := s.sweepFolder(*s.cfg.JunkFolderID, cutoff, false); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) sweepFolder(folderID uint, cutoff time.Time, byTrashedAt bool) error {
	threads, err := s.store.ListThreadsForRetention(folderID, cutoff, byTrashedAt)
	if err != nil {
		return err
	}

	for _, t := range threads {
		removed, err := s.store.DeleteThread(t.ID)
		if err != nil {
			s.log.Error("scheduler: delete thread failed", err)
			continue
		}
		for _, a := range removed {
			if err := os.Remove(a.FilePath); err != nil && !os.IsNotExist(err) {
				s.log.Error("scheduler: remove attachment file failed", err)
			}
		}
	}
	return nil
}
