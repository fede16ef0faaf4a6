package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Validate reports every out-of-range setting at once. Load never calls it:
// consumers decide whether a bad value is fatal.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Database.Type) {
	case "", "mysql", "pgsql", "postgres", "postgresql", "sqlite", "sqlite3":
	default:
		errs = append(errs, fmt.Errorf("database.type: unsupported %q", c.Database.Type))
	}
	if err := validatePort(c.Database.Port); err != nil {
		errs = append(errs, fmt.Errorf("database.port: %w", err))
	}
	if err := validatePort(c.Network.ServerPort); err != nil {
		errs = append(errs, fmt.Errorf("network.server_port: %w", err))
	}
	if c.Session.CookieExpirationSeconds <= 0 {
		errs = append(errs, fmt.Errorf("session.cookie_expiration_seconds: must be positive, got %d", c.Session.CookieExpirationSeconds))
	}
	if c.Paths.RootDir == "" {
		errs = append(errs, errors.New("paths.root_dir: must not be empty"))
	}
	if c.Paths.UploadDir == "" {
		errs = append(errs, errors.New("paths.upload_dir: must not be empty"))
	}
	if c.Log.MaxSizeMB < 0 {
		errs = append(errs, fmt.Errorf("log.max_size_mb: must not be negative, got %d", c.Log.MaxSizeMB))
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.LDAP.Enabled {
		if c.LDAP.Host == "" {
			errs = append(errs, errors.New("ldap.host: required when LDAP is enabled"))
		}
		if c.LDAP.BaseDN == "" {
			errs = append(errs, errors.New("ldap.base_dn: required when LDAP is enabled"))
		}
		if c.LDAP.ProtocolVersion != 3 {
			errs = append(errs, fmt.Errorf("ldap.protocol_version: only 3 is supported, got %d", c.LDAP.ProtocolVersion))
		}
		if c.LDAP.Authenticated && c.LDAP.BindDN == "" {
			errs = append(errs, errors.New("ldap.bind_dn: required for authenticated binds"))
		}
	}
	if c.Maintenance.BackupTimeframeHours < 0 {
		errs = append(errs, fmt.Errorf("maintenance.backup_timeframe_hours: must not be negative, got %d", c.Maintenance.BackupTimeframeHours))
	}
	if c.Maintenance.ActiveProjectDays < 0 {
		errs = append(errs, fmt.Errorf("maintenance.active_project_days: must not be negative, got %d", c.Maintenance.ActiveProjectDays))
	}
	if c.Submission.ProcessingTimeLimitSeconds <= 0 {
		errs = append(errs, fmt.Errorf("submission.processing_time_limit_seconds: must be positive, got %d", c.Submission.ProcessingTimeLimitSeconds))
	}
	if c.Submission.ProcessingMaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("submission.processing_max_attempts: must be at least 1, got %d", c.Submission.ProcessingMaxAttempts))
	}
	if c.Submission.MaxUploadQuotaGB < 0 {
		errs = append(errs, fmt.Errorf("submission.max_upload_quota_gb: must not be negative, got %d", c.Submission.MaxUploadQuotaGB))
	}
	if c.Submission.LargeTextLimit < 0 {
		errs = append(errs, fmt.Errorf("submission.large_text_limit: must not be negative, got %d", c.Submission.LargeTextLimit))
	}
	if c.Mode.AsyncSubmission && c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr: required for asynchronous submission"))
	}

	return errors.Join(errs...)
}

func validatePort(port string) error {
	if port == "" {
		return nil
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("not a number: %q", port)
	}
	if n <= 0 || n > 65535 {
		return fmt.Errorf("out of range: %d", n)
	}
	return nil
}

// TruncateLargeText cuts s to the large text limit, in bytes, without
// splitting a UTF-8 sequence. A limit of 0 leaves s untouched.
func (s *SubmissionConfig) TruncateLargeText(text string) string {
	limit := s.LargeTextLimit
	if limit <= 0 || len(text) <= limit {
		return text
	}
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	return text[:limit]
}
