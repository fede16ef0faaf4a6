package config

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the deployment configuration of a CDash instance. It is built once
// at startup and handed to whatever needs it; nothing mutates it afterwards.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	Mode        ModeConfig        `yaml:"mode"`
	Site        SiteConfig        `yaml:"site"`
	Email       EmailConfig       `yaml:"email"`
	Session     SessionConfig     `yaml:"session"`
	Network     NetworkConfig     `yaml:"network"`
	Paths       PathsConfig       `yaml:"paths"`
	Log         LogConfig         `yaml:"log"`
	Auth        AuthConfig        `yaml:"auth"`
	LDAP        LDAPConfig        `yaml:"ldap"`
	Maintenance MaintenanceConfig `yaml:"maintenance"`
	Clients     ClientsConfig     `yaml:"clients"`
	Submission  SubmissionConfig  `yaml:"submission"`
	Redis       RedisConfig       `yaml:"redis"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"` // empty uses the driver default
	Login    string `yaml:"login"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // mysql (or empty), pgsql, sqlite
}

type ModeConfig struct {
	Production        Flag `yaml:"production"`
	Testing           Flag `yaml:"testing"`
	TestingRenameLogs Flag `yaml:"testing_rename_logs"`
	AsyncSubmission   Flag `yaml:"async_submission"`
}

type SiteConfig struct {
	MainTitle         string            `yaml:"main_title"`
	MainSubtitle      string            `yaml:"main_subtitle"`
	CSSFile           string            `yaml:"css_file"`
	UseLocalDirectory Flag              `yaml:"use_local_directory"`
	UseCompression    Flag              `yaml:"use_compression"`
	GoogleAnalytics   string            `yaml:"google_analytics"`
	GoogleMapAPIKeys  map[string]string `yaml:"google_map_api_keys"`
}

type EmailConfig struct {
	Admin              string `yaml:"admin"`
	From               string `yaml:"from"`
	Reply              string `yaml:"reply"`
	RegistrationVerify Flag   `yaml:"registration_verify"`
}

type SessionConfig struct {
	CookieExpirationSeconds int  `yaml:"cookie_expiration_seconds"`
	UseHTTPS                Flag `yaml:"use_https"`
	AllowLoginCookie        Flag `yaml:"allow_login_cookie"`
}

type NetworkConfig struct {
	ServerName           string   `yaml:"server_name"` // empty uses the current host name
	ServerPort           string   `yaml:"server_port"`
	CurlRequestLocalhost Flag     `yaml:"curl_request_localhost"`
	CurlLocalhostPrefix  string   `yaml:"curl_localhost_prefix"`
	BaseURL              string   `yaml:"base_url"`
	ForwardingIP         string   `yaml:"forwarding_ip"` // SQL LIKE pattern
	DefaultIPLocations   []string `yaml:"default_ip_locations"`
}

// PathsConfig holds the settable paths. The backup directory and the log file
// are always derived from RootDir, see Config.BackupDir and Config.LogFile.
type PathsConfig struct {
	RootDir             string `yaml:"root_dir,omitempty"`
	UploadDir           string `yaml:"upload_dir"` // absolute or relative to RootDir
	DownloadRelativeURL string `yaml:"download_relative_url"`
}

type LogConfig struct {
	MaxSizeMB int    `yaml:"max_size_mb"` // spread over 10 files
	Level     string `yaml:"level"`
}

type AuthConfig struct {
	External                Flag `yaml:"external"`
	UserCreateProjects      Flag `yaml:"user_create_projects"`
	FullEmailWhenAddingUser Flag `yaml:"full_email_when_adding_user"`
}

type LDAPConfig struct {
	Enabled         Flag   `yaml:"enabled"`
	Host            string `yaml:"host"` // host name or ldap:// / ldaps:// URL
	BaseDN          string `yaml:"base_dn"`
	ProtocolVersion int    `yaml:"protocol_version"`
	Filter          string `yaml:"filter"`
	OptReferrals    Flag   `yaml:"opt_referrals"`
	Authenticated   Flag   `yaml:"authenticated"`
	BindDN          string `yaml:"bind_dn"`
	BindPassword    string `yaml:"bind_password"`
}

type MaintenanceConfig struct {
	BackupTimeframeHours            int  `yaml:"backup_timeframe_hours"`
	AutoRemoveBuilds                Flag `yaml:"auto_remove_builds"`
	ActiveProjectDays               int  `yaml:"active_project_days"`
	WarnAboutUnregisteredCommitters Flag `yaml:"warn_about_unregistered_committers"`
}

type ClientsConfig struct {
	Manage              Flag   `yaml:"manage"`
	GitCommand          string `yaml:"git_command"`
	DefaultGitDirectory string `yaml:"default_git_directory"`
}

type SubmissionConfig struct {
	ProcessingTimeLimitSeconds int `yaml:"processing_time_limit_seconds"`
	ProcessingMaxAttempts      int `yaml:"processing_max_attempts"`
	MaxUploadQuotaGB           int `yaml:"max_upload_quota_gb"`
	LargeTextLimit             int `yaml:"large_text_limit"` // bytes, 0 for unlimited
}

// RedisConfig is the broker used when asynchronous submission is enabled.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

const (
	defaultConfigPath = "config.yaml"
	backupDirName     = "backup"
	logFileName       = "cdash.log"

	defaultGoogleMapKey = "ABQIAAAAT7I3XxP5nXC2xZUbg5AhLhQlpUmSySBnNeRIYFXQdqJETZJpYBStoWsCJtLvtHDiIJzsxJ953H3rgg"
)

// Defaults returns a configuration with every setting at its default value,
// rooted at root.
func Defaults(root string) *Config {
	return &Config{
		Database: DatabaseConfig{
			Login:    "cdash",
			Password: "cdash",
			Name:     "cdash",
			Type:     "pgsql",
		},
		Site: SiteConfig{
			MainTitle:      "CDash",
			MainSubtitle:   "Projects",
			CSSFile:        "cdash.css",
			UseCompression: true,
			GoogleMapAPIKeys: map[string]string{
				"localhost": defaultGoogleMapKey,
			},
		},
		Email: EmailConfig{
			Admin:              "admin@cdash.org",
			From:               "admin@cdash.org",
			Reply:              "noreply@cdash.org",
			RegistrationVerify: true,
		},
		Session: SessionConfig{
			CookieExpirationSeconds: 3600,
			AllowLoginCookie:        true,
		},
		Network: NetworkConfig{
			CurlRequestLocalhost: true,
			ForwardingIP:         "192.%",
			DefaultIPLocations:   []string{},
		},
		Paths: PathsConfig{
			RootDir:             normalizeRoot(root),
			UploadDir:           "upload",
			DownloadRelativeURL: "upload",
		},
		Log: LogConfig{
			MaxSizeMB: 50,
			Level:     "info",
		},
		LDAP: LDAPConfig{
			Host:            "localhost",
			BaseDN:          "ou=people,dc=organization,dc=com",
			ProtocolVersion: 3,
			OptReferrals:    true,
			BindDN:          "cn=user,ou=people,dc=orgranization,dc=com",
			BindPassword:    "password",
		},
		Maintenance: MaintenanceConfig{
			BackupTimeframeHours: 48,
			ActiveProjectDays:    7,
		},
		Clients: ClientsConfig{
			GitCommand:          "git",
			DefaultGitDirectory: "git",
		},
		Submission: SubmissionConfig{
			ProcessingTimeLimitSeconds: 450,
			ProcessingMaxAttempts:      5,
			MaxUploadQuotaGB:           10,
			LargeTextLimit:             0,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
	}
}

// FromEnv returns the defaults rooted at root with the environment overrides
// applied. Unset variables keep their defaults.
func FromEnv(root string) *Config {
	cfg := Defaults(root)
	cfg.overrideFromEnv()
	return cfg
}

// Load builds the configuration from the defaults, the optional YAML file at
// configPath and the environment, in that order. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	cfg, err := LoadFile(configPath)
	if err != nil {
		return nil, err
	}

	if cfg.Paths.RootDir == "" {
		cfg.Paths.RootDir = DefaultRootDir()
	}
	cfg.overrideFromEnv()
	cfg.Paths.RootDir = normalizeRoot(cfg.Paths.RootDir)
	return cfg, nil
}

// LoadFile returns the defaults overlaid by the YAML file at configPath,
// without environment overrides. The root directory stays empty unless the
// file pins it, so the result can be saved back without capturing the
// environment or the install location.
func LoadFile(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	cfg := Defaults("")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	// Maps are replaced by the file, not merged with the defaults.
	defaultKeys := cfg.Site.GoogleMapAPIKeys
	cfg.Site.GoogleMapAPIKeys = nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.Site.GoogleMapAPIKeys == nil {
		cfg.Site.GoogleMapAPIKeys = defaultKeys
	}

	cfg.Paths.RootDir = normalizeRoot(cfg.Paths.RootDir)
	return cfg, nil
}

// DefaultRootDir returns the installation directory: the parent of the
// directory holding the running executable, or the working directory when the
// executable cannot be located.
func DefaultRootDir() string {
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		return normalizeRoot(filepath.Dir(filepath.Dir(exe)))
	}
	if wd, err := os.Getwd(); err == nil {
		return normalizeRoot(wd)
	}
	return "."
}

func normalizeRoot(root string) string {
	if root == "" {
		return ""
	}
	return path.Clean(strings.ReplaceAll(root, "\\", "/"))
}

// BackupDir is always <root>/backup.
func (c *Config) BackupDir() string {
	return strings.TrimSuffix(c.Paths.RootDir, "/") + "/" + backupDirName
}

// LogFile is always <root>/backup/cdash.log.
func (c *Config) LogFile() string {
	return c.BackupDir() + "/" + logFileName
}

// UploadPath resolves the upload directory against the root directory.
func (c *Config) UploadPath() string {
	dir := strings.ReplaceAll(c.Paths.UploadDir, "\\", "/")
	if path.IsAbs(dir) || filepath.IsAbs(dir) {
		return dir
	}
	return path.Join(c.Paths.RootDir, dir)
}

func (c *Config) CookieExpiration() time.Duration {
	return time.Duration(c.Session.CookieExpirationSeconds) * time.Second
}

func (c *Config) BackupTimeframe() time.Duration {
	return time.Duration(c.Maintenance.BackupTimeframeHours) * time.Hour
}

func (s *SubmissionConfig) ProcessingTimeLimit() time.Duration {
	return time.Duration(s.ProcessingTimeLimitSeconds) * time.Second
}

// UploadQuotaBytes converts the per-project quota from GB to bytes.
func (s *SubmissionConfig) UploadQuotaBytes() int64 {
	return int64(s.MaxUploadQuotaGB) << 30
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}

const redactedValue = "******"

// Redacted returns a copy of the configuration with credentials masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.Database.Password = redact(c.Database.Password)
	out.LDAP.BindPassword = redact(c.LDAP.BindPassword)
	out.Redis.Password = redact(c.Redis.Password)

	if c.Site.GoogleMapAPIKeys != nil {
		out.Site.GoogleMapAPIKeys = make(map[string]string, len(c.Site.GoogleMapAPIKeys))
		for host, key := range c.Site.GoogleMapAPIKeys {
			out.Site.GoogleMapAPIKeys[host] = redact(key)
		}
	}
	if c.Network.DefaultIPLocations != nil {
		out.Network.DefaultIPLocations = append([]string{}, c.Network.DefaultIPLocations...)
	}
	return &out
}

func redact(s string) string {
	if s == "" {
		return ""
	}
	return redactedValue
}
