package services

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/huangang/cdashconf/internal/config"
	"github.com/huangang/cdashconf/pkg/logger"
	"github.com/robfig/cron/v3"
)

const backupCleanupSchedule = "@hourly"

// BackupCleaner removes files from the backup directory once they are older
// than the backup timeframe. The log file and its rotated copies are kept.
type BackupCleaner struct {
	dir       string
	logFile   string
	timeframe time.Duration
	now       func() time.Time

	cronScheduler *cron.Cron
}

func NewBackupCleaner(cfg *config.Config) *BackupCleaner {
	return &BackupCleaner{
		dir:       cfg.BackupDir(),
		logFile:   filepath.Base(cfg.LogFile()),
		timeframe: cfg.BackupTimeframe(),
		now:       time.Now,
	}
}

// Run performs one cleanup pass and returns how many files were removed. A
// zero timeframe disables cleanup.
func (c *BackupCleaner) Run() (int, error) {
	if c.timeframe <= 0 {
		return 0, nil
	}

	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := c.now().Add(-c.timeframe)
	removed := 0
	var errs []error

	for _, entry := range entries {
		if entry.IsDir() || c.isLogFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	return removed, errors.Join(errs...)
}

// isLogFile matches cdash.log and the cdash-<timestamp>.log copies made on rotation.
func (c *BackupCleaner) isLogFile(name string) bool {
	if name == c.logFile {
		return true
	}
	ext := filepath.Ext(c.logFile)
	stem := strings.TrimSuffix(c.logFile, ext)
	return strings.HasPrefix(name, stem+"-") &&
		(strings.HasSuffix(name, ext) || strings.HasSuffix(name, ext+".gz"))
}

func (c *BackupCleaner) Start() error {
	c.cronScheduler = cron.New()

	if _, err := c.cronScheduler.AddFunc(backupCleanupSchedule, c.runLogged); err != nil {
		return err
	}

	c.runLogged()
	c.cronScheduler.Start()
	logger.Info().Str("dir", c.dir).Dur("timeframe", c.timeframe).Msg("[BackupCleanup] Scheduler started")
	return nil
}

// Stop waits for a running pass to finish.
func (c *BackupCleaner) Stop() {
	if c.cronScheduler != nil {
		<-c.cronScheduler.Stop().Done()
	}
}

func (c *BackupCleaner) runLogged() {
	removed, err := c.Run()
	if err != nil {
		logger.Error().Err(err).Msg("[BackupCleanup] Cleanup failed")
	}
	if removed > 0 {
		logger.Infof("[BackupCleanup] Removed %d files older than %s", removed, c.timeframe)
	}
}
