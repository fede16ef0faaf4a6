package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variables read at load time. The DB_PORT_5432_TCP_* pair is
// what a linked postgres container exports; the CDASH_* names win over it.
const (
	EnvLinkedDBHost   = "DB_PORT_5432_TCP_ADDR"
	EnvLinkedDBPort   = "DB_PORT_5432_TCP_PORT"
	EnvDBHost         = "CDASH_DB_HOST"
	EnvDBPort         = "CDASH_DB_PORT"
	EnvDBLogin        = "CDASH_DB_LOGIN"
	EnvDBPassword     = "CDASH_DB_PASS"
	EnvDBName         = "CDASH_DB_NAME"
	EnvDBType         = "CDASH_DB_TYPE"
	EnvRootDir        = "CDASH_ROOT_DIR"
	EnvBaseURL        = "CDASH_BASE_URL"
	EnvLDAPBindPasswd = "CDASH_LDAP_BIND_PASSWORD"
	EnvLogLevel       = "CDASH_LOG_LEVEL"
	EnvRedisURL       = "CDASH_REDIS_URL"
)

func (c *Config) overrideFromEnv() {
	if host := os.Getenv(EnvLinkedDBHost); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv(EnvLinkedDBPort); port != "" {
		c.Database.Port = port
	}
	if host := os.Getenv(EnvDBHost); host != "" {
		c.Database.Host = host
	}
	if port := os.Getenv(EnvDBPort); port != "" {
		c.Database.Port = port
	}
	if login := os.Getenv(EnvDBLogin); login != "" {
		c.Database.Login = login
	}
	if pass := os.Getenv(EnvDBPassword); pass != "" {
		c.Database.Password = pass
	}
	if name := os.Getenv(EnvDBName); name != "" {
		c.Database.Name = name
	}
	if dbType := os.Getenv(EnvDBType); dbType != "" {
		c.Database.Type = dbType
	}
	if root := os.Getenv(EnvRootDir); root != "" {
		c.Paths.RootDir = normalizeRoot(root)
	}
	if baseURL := os.Getenv(EnvBaseURL); baseURL != "" {
		c.Network.BaseURL = baseURL
	}
	if pass := os.Getenv(EnvLDAPBindPasswd); pass != "" {
		c.LDAP.BindPassword = pass
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
	// Format: redis://:password@host:port/db
	if redisURL := os.Getenv(EnvRedisURL); redisURL != "" {
		c.parseRedisURL(redisURL)
	}
}

// parseRedisURL parses a Redis URL and sets config values
// Format: redis://:password@host:port/db
func (c *Config) parseRedisURL(redisURL string) {
	url := strings.TrimPrefix(redisURL, "redis://")

	if atIdx := strings.LastIndex(url, "@"); atIdx != -1 {
		authPart := url[:atIdx]
		url = url[atIdx+1:]
		// :password or user:password
		if colonIdx := strings.Index(authPart, ":"); colonIdx != -1 {
			c.Redis.Password = authPart[colonIdx+1:]
		}
	}

	if slashIdx := strings.LastIndex(url, "/"); slashIdx != -1 {
		dbStr := url[slashIdx+1:]
		url = url[:slashIdx]
		if db, err := strconv.Atoi(dbStr); err == nil {
			c.Redis.DB = db
		}
	}

	if url != "" {
		c.Redis.Addr = url
	}
}
