package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/amaumene/gowatch/internal/controllers"
	"github.com/amaumene/gowatch/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	backupPrefix     = "gowatch-"
	backupSuffix     = ".json"
	backupTimeLayout = "20060102-150405"
)

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron         *cron.Cron
	transferCtrl *controllers.TransferController
	syncCtrl     *controllers.SyncController
	metrics      *metrics.Metrics
	logger       *logrus.Logger

	backupSchedule  string
	refreshSchedule string
	backupDir       string
	backupKeep      int
	now             func() time.Time
}

// Options selects which jobs run and where backups go
type Options struct {
	BackupSchedule  string // empty disables backups
	RefreshSchedule string // empty disables remote refresh
	BackupDir       string
	BackupKeep      int
}

// NewScheduler creates a new scheduler. syncCtrl may be nil when no remote is
// configured.
func NewScheduler(
	transferCtrl *controllers.TransferController,
	syncCtrl *controllers.SyncController,
	m *metrics.Metrics,
	opts Options,
	logger *logrus.Logger,
) *Scheduler {
	keep := opts.BackupKeep
	if keep < 1 {
		keep = 1
	}
	return &Scheduler{
		cron:            cron.New(),
		transferCtrl:    transferCtrl,
		syncCtrl:        syncCtrl,
		metrics:         m,
		logger:          logger,
		backupSchedule:  opts.BackupSchedule,
		refreshSchedule: opts.RefreshSchedule,
		backupDir:       opts.BackupDir,
		backupKeep:      keep,
		now:             time.Now,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	if s.backupSchedule != "" {
		if _, err := s.cron.AddFunc(s.backupSchedule, s.runBackup); err != nil {
			return fmt.Errorf("failed to add backup job: %w", err)
		}
	}

	if s.refreshSchedule != "" && s.syncCtrl != nil {
		if _, err := s.cron.AddFunc(s.refreshSchedule, s.runRefresh); err != nil {
			return fmt.Errorf("failed to add refresh job: %w", err)
		}
	}

	s.cron.Start()
	s.logger.WithField("jobs", len(s.cron.Entries())).Info("Scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	<-s.cron.Stop().Done()
}

// runBackup executes the backup job
func (s *Scheduler) runBackup() {
	s.logger.Info("Running scheduled backup")

	path, err := s.Backup()
	if s.metrics != nil {
		s.metrics.ObserveBackup(err)
	}
	if err != nil {
		s.logger.WithError(err).Error("Backup job failed")
		return
	}
	s.logger.WithField("path", path).Info("Backup job completed successfully")
}

// runRefresh executes the remote reload job
func (s *Scheduler) runRefresh() {
	s.logger.Info("Running scheduled remote refresh")

	if _, err := s.syncCtrl.Pull(context.Background()); err != nil {
		s.logger.WithError(err).Error("Refresh job failed")
	} else {
		s.logger.Info("Refresh job completed successfully")
	}
}

// Backup writes an export into the backup directory and prunes old ones
func (s *Scheduler) Backup() (string, error) {
	name := backupPrefix + s.now().Format(backupTimeLayout) + backupSuffix
	path := filepath.Join(s.backupDir, name)

	if err := s.transferCtrl.ExportFile(path); err != nil {
		return "", fmt.Errorf("failed to write backup: %w", err)
	}

	if err := s.prune(); err != nil {
		s.logger.WithError(err).Warn("Failed to prune old backups")
	}
	return path, nil
}

// prune keeps the newest backupKeep backups
func (s *Scheduler) prune() error {
	entries, err := os.ReadDir(s.backupDir)
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	var backups []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasPrefix(e.Name(), backupPrefix) && strings.HasSuffix(e.Name(), backupSuffix) {
			backups = append(backups, e.Name())
		}
	}
	if len(backups) <= s.backupKeep {
		return nil
	}

	// Timestamped names sort chronologically
	sort.Strings(backups)
	for _, name := range backups[:len(backups)-s.backupKeep] {
		if err := os.Remove(filepath.Join(s.backupDir, name)); err != nil {
			return fmt.Errorf("failed to remove backup %s: %w", name, err)
		}
		s.logger.WithField("file", name).Debug("Removed old backup")
	}
	return nil
}
