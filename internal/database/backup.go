package database

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"carrental/internal/config"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// BackupService snapshots the SQLite file on a cron schedule and runs
// other registered maintenance jobs on the same scheduler.
type BackupService struct {
	dbPath string
	config config.BackupConfig
	logger *zerolog.Logger

	mu   sync.Mutex
	cron *cron.Cron
	jobs []maintenanceJob
}

type maintenanceJob struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

func NewBackupService(dbPath string, cfg config.BackupConfig, logger *zerolog.Logger) *BackupService {
	return &BackupService{
		dbPath: dbPath,
		config: cfg,
		logger: logger,
	}
}

// CronSpec turns the configured schedule into a cron spec. Plain durations
// such as "6h" are accepted as "@every 6h".
func CronSpec(schedule string) string {
	schedule = strings.TrimSpace(schedule)
	if schedule == "" {
		return "@daily"
	}
	if d, err := time.ParseDuration(schedule); err == nil {
		return "@every " + d.String()
	}
	return schedule
}

// AddJob registers an extra maintenance job. Must be called before Start.
func (s *BackupService) AddJob(name, schedule string, run func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, maintenanceJob{name: name, schedule: CronSpec(schedule), run: run})
}

// Start blocks until ctx is done.
func (s *BackupService) Start(ctx context.Context) error {
	s.mu.Lock()
	c := cron.New()
	if s.config.Enabled {
		spec := CronSpec(s.config.Schedule)
		if _, err := c.AddFunc(spec, func() {
			if err := s.PerformBackup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("invalid backup schedule %q: %w", s.config.Schedule, err)
		}
		s.logger.Info().Str("schedule", spec).Msg("Backup service started")
	} else {
		s.logger.Info().Msg("Backup service is disabled")
	}

	for _, job := range s.jobs {
		job := job
		if _, err := c.AddFunc(job.schedule, func() {
			if err := job.run(ctx); err != nil {
				s.logger.Error().Err(err).Str("job", job.name).Msg("Maintenance job failed")
			}
		}); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("invalid schedule for job %s: %w", job.name, err)
		}
	}
	s.cron = c
	s.mu.Unlock()

	if len(c.Entries()) == 0 {
		<-ctx.Done()
		return nil
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (s *BackupService) PerformBackup(ctx context.Context) error {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(s.config.StoragePath, fmt.Sprintf("backup_%s.db", timestamp))

	s.logger.Info().Str("path", backupPath).Msg("Performing database backup using VACUUM INTO")

	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("failed to open source database: %w", err)
	}
	defer db.Close()

	// VACUUM INTO gives a consistent online copy
	if _, err = db.ExecContext(ctx, "VACUUM INTO ?", backupPath); err != nil {
		s.logger.Warn().Err(err).Msg("VACUUM INTO failed, falling back to file copy")
		return s.performBackupFallback(backupPath)
	}

	s.logger.Info().Msg("Backup completed successfully")
	return nil
}

func (s *BackupService) performBackupFallback(backupPath string) error {
	source, err := os.Open(s.dbPath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer destination.Close()

	// not atomic for SQLite under concurrent writes
	if _, err = io.Copy(destination, source); err != nil {
		return err
	}

	s.logger.Info().Msg("Fallback backup completed successfully")
	return nil
}

func (s *BackupService) CleanupOldBackups() {
	if s.config.RetentionDays <= 0 {
		return
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return
	}

	cutoff := time.Now().AddDate(0, 0, -s.config.RetentionDays)

	for _, file := range files {
		if file.IsDir() || !strings.HasPrefix(file.Name(), "backup_") {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("Deleting old backup")
			if err := os.Remove(filepath.Join(s.config.StoragePath, file.Name())); err != nil {
				s.logger.Warn().Err(err).Str("file", file.Name()).Msg("Failed to delete old backup")
			}
		}
	}
}
