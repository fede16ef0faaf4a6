package config

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// ImportReport lists what ImportPHP did with each assignment it found.
type ImportReport struct {
	Applied []string
	Skipped []SkippedSetting
}

type SkippedSetting struct {
	Name   string
	Reason string
}

type phpKind int

const (
	phpString phpKind = iota
	phpInt
	phpBool
	phpEmptyArray
)

type phpValue struct {
	kind phpKind
	str  string
	num  int
	bln  bool
}

var (
	phpBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	phpAssignment   = regexp.MustCompile(`(?m)^[ \t]*\$(CDASH_[A-Z0-9_]+)(?:\[\s*['"]([^'"]*)['"]\s*\])?\s*=\s*('(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"|[^;]*?)\s*;`)
	phpGetenv       = regexp.MustCompile(`^getenv\(\s*['"]([^'"]+)['"]\s*\)$`)
	phpInteger      = regexp.MustCompile(`^-?[0-9]+$`)
	phpEmptyArrayRe = regexp.MustCompile(`^(?i:array)\(\s*\)$|^\[\s*\]$`)
)

// derivedPHPSettings are computed from the root directory and cannot be imported.
var derivedPHPSettings = map[string]bool{
	"CDASH_BACKUP_DIRECTORY": true,
	"CDASH_LOG_FILE":         true,
}

// ImportPHP applies the literal $CDASH_* assignments of a legacy
// config.local.php to cfg. getenv resolves getenv('NAME') calls. Expressions
// and unknown settings are reported as skipped; only a read failure is an error.
func ImportPHP(r io.Reader, cfg *Config, getenv func(string) string) (*ImportReport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read php config: %w", err)
	}
	src := phpBlockComment.ReplaceAllString(string(data), "")

	bindings := phpBindings(cfg)
	report := &ImportReport{}

	for _, m := range phpAssignment.FindAllStringSubmatch(src, -1) {
		name, index, raw := m[1], m[2], strings.TrimSpace(m[3])
		display := name
		if index != "" {
			display = fmt.Sprintf("%s[%s]", name, index)
		}

		if derivedPHPSettings[name] {
			report.skip(display, "derived from the root directory")
			continue
		}

		val, ok := parsePHPValue(raw, getenv)
		if !ok {
			report.skip(display, "not a literal value")
			continue
		}

		if index != "" {
			if name != "CDASH_GOOGLE_MAP_API_KEY" || val.kind != phpString {
				report.skip(display, "unsupported array assignment")
				continue
			}
			if cfg.Site.GoogleMapAPIKeys == nil {
				cfg.Site.GoogleMapAPIKeys = map[string]string{}
			}
			cfg.Site.GoogleMapAPIKeys[index] = val.str
			report.Applied = append(report.Applied, display)
			continue
		}

		bind, known := bindings[name]
		if !known {
			report.skip(display, "unknown setting")
			continue
		}
		if err := bind(val); err != nil {
			report.skip(display, err.Error())
			continue
		}
		report.Applied = append(report.Applied, display)
	}

	cfg.Paths.RootDir = normalizeRoot(cfg.Paths.RootDir)
	return report, nil
}

func (r *ImportReport) skip(name, reason string) {
	r.Skipped = append(r.Skipped, SkippedSetting{Name: name, Reason: reason})
}

func parsePHPValue(raw string, getenv func(string) string) (phpValue, bool) {
	switch {
	case isQuoted(raw, '\''):
		s := raw[1 : len(raw)-1]
		s = strings.NewReplacer(`\'`, `'`, `\\`, `\`).Replace(s)
		return phpValue{kind: phpString, str: s}, true
	case isQuoted(raw, '"'):
		s := raw[1 : len(raw)-1]
		if strings.Contains(s, "$") {
			return phpValue{}, false
		}
		s = strings.NewReplacer(`\"`, `"`, `\\`, `\`, `\n`, "\n", `\t`, "\t").Replace(s)
		return phpValue{kind: phpString, str: s}, true
	case strings.EqualFold(raw, "true"):
		return phpValue{kind: phpBool, bln: true}, true
	case strings.EqualFold(raw, "false"):
		return phpValue{kind: phpBool, bln: false}, true
	case phpInteger.MatchString(raw):
		n, err := strconv.Atoi(raw)
		if err != nil {
			return phpValue{}, false
		}
		return phpValue{kind: phpInt, num: n}, true
	case phpEmptyArrayRe.MatchString(raw):
		return phpValue{kind: phpEmptyArray}, true
	}

	if m := phpGetenv.FindStringSubmatch(raw); m != nil {
		v := ""
		if getenv != nil {
			v = getenv(m[1])
		}
		return phpValue{kind: phpString, str: v}, true
	}
	return phpValue{}, false
}

// isQuoted reports whether raw is exactly one string literal delimited by
// quote, so 'a'.'b' is rejected.
func isQuoted(raw string, quote byte) bool {
	if len(raw) < 2 || raw[0] != quote || raw[len(raw)-1] != quote {
		return false
	}
	for i := 1; i < len(raw)-1; i++ {
		switch raw[i] {
		case '\\':
			i++
		case quote:
			return false
		}
	}
	return true
}

type phpBinding func(phpValue) error

func phpBindings(c *Config) map[string]phpBinding {
	return map[string]phpBinding{
		"CDASH_ROOT_DIR":    bindString(&c.Paths.RootDir),
		"CDASH_DB_HOST":     bindString(&c.Database.Host),
		"CDASH_DB_LOGIN":    bindString(&c.Database.Login),
		"CDASH_DB_PORT":     bindString(&c.Database.Port),
		"CDASH_DB_PASS":     bindString(&c.Database.Password),
		"CDASH_DB_NAME":     bindString(&c.Database.Name),
		"CDASH_DB_TYPE":     bindString(&c.Database.Type),
		"CDASH_LOG_LEVEL":   bindString(&c.Log.Level),
		"CDASH_EMAILADMIN":  bindString(&c.Email.Admin),
		"CDASH_EMAIL_FROM":  bindString(&c.Email.From),
		"CDASH_EMAIL_REPLY": bindString(&c.Email.Reply),

		"CDASH_PRODUCTION_MODE":         bindFlag(&c.Mode.Production),
		"CDASH_TESTING_MODE":            bindFlag(&c.Mode.Testing),
		"CDASH_TESTING_RENAME_LOGS":     bindFlag(&c.Mode.TestingRenameLogs),
		"CDASH_ASYNCHRONOUS_SUBMISSION": bindFlag(&c.Mode.AsyncSubmission),

		"CDASH_MAININDEX_TITLE":          bindString(&c.Site.MainTitle),
		"CDASH_MAININDEX_SUBTITLE":       bindString(&c.Site.MainSubtitle),
		"CDASH_CSS_FILE":                 bindString(&c.Site.CSSFile),
		"CDASH_USE_LOCAL_DIRECTORY":      bindFlag(&c.Site.UseLocalDirectory),
		"CDASH_USE_COMPRESSION":          bindFlag(&c.Site.UseCompression),
		"CDASH_DEFAULT_GOOGLE_ANALYTICS": bindString(&c.Site.GoogleAnalytics),
		"CDASH_GOOGLE_MAP_API_KEY":       bindStringMap(&c.Site.GoogleMapAPIKeys),

		"CDASH_REGISTRATION_EMAIL_VERIFY": bindFlag(&c.Email.RegistrationVerify),

		"CDASH_COOKIE_EXPIRATION_TIME": bindInt(&c.Session.CookieExpirationSeconds),
		"CDASH_USE_HTTPS":              bindFlag(&c.Session.UseHTTPS),
		"CDASH_ALLOW_LOGIN_COOKIE":     bindFlag(&c.Session.AllowLoginCookie),

		"CDASH_SERVER_NAME":            bindString(&c.Network.ServerName),
		"CDASH_SERVER_PORT":            bindString(&c.Network.ServerPort),
		"CDASH_CURL_REQUEST_LOCALHOST": bindFlag(&c.Network.CurlRequestLocalhost),
		"CDASH_CURL_LOCALHOST_PREFIX":  bindString(&c.Network.CurlLocalhostPrefix),
		"CDASH_BASE_URL":               bindString(&c.Network.BaseURL),
		"CDASH_FORWARDING_IP":          bindString(&c.Network.ForwardingIP),
		"CDASH_DEFAULT_IP_LOCATIONS":   bindStringSlice(&c.Network.DefaultIPLocations),

		"CDASH_UPLOAD_DIRECTORY":      bindString(&c.Paths.UploadDir),
		"CDASH_DOWNLOAD_RELATIVE_URL": bindString(&c.Paths.DownloadRelativeURL),

		"CDASH_LOG_FILE_MAXSIZE_MB": bindInt(&c.Log.MaxSizeMB),

		"CDASH_EXTERNAL_AUTH":               bindFlag(&c.Auth.External),
		"CDASH_USER_CREATE_PROJECTS":        bindFlag(&c.Auth.UserCreateProjects),
		"CDASH_FULL_EMAIL_WHEN_ADDING_USER": bindFlag(&c.Auth.FullEmailWhenAddingUser),

		"CDASH_USE_LDAP":              bindFlag(&c.LDAP.Enabled),
		"CDASH_LDAP_HOSTNAME":         bindString(&c.LDAP.Host),
		"CDASH_LDAP_BASEDN":           bindString(&c.LDAP.BaseDN),
		"CDASH_LDAP_PROTOCOL_VERSION": bindInt(&c.LDAP.ProtocolVersion),
		"CDASH_LDAP_FILTER":           bindString(&c.LDAP.Filter),
		"CDASH_LDAP_OPT_REFERRALS":    bindFlag(&c.LDAP.OptReferrals),
		"CDASH_LDAP_AUTHENTICATED":    bindFlag(&c.LDAP.Authenticated),
		"CDASH_LDAP_BIND_DN":          bindString(&c.LDAP.BindDN),
		"CDASH_LDAP_BIND_PASSWORD":    bindString(&c.LDAP.BindPassword),

		"CDASH_BACKUP_TIMEFRAME":                   bindInt(&c.Maintenance.BackupTimeframeHours),
		"CDASH_AUTOREMOVE_BUILDS":                  bindFlag(&c.Maintenance.AutoRemoveBuilds),
		"CDASH_ACTIVE_PROJECT_DAYS":                bindInt(&c.Maintenance.ActiveProjectDays),
		"CDASH_WARN_ABOUT_UNREGISTERED_COMMITTERS": bindFlag(&c.Maintenance.WarnAboutUnregisteredCommitters),

		"CDASH_MANAGE_CLIENTS":        bindFlag(&c.Clients.Manage),
		"CDASH_GIT_COMMAND":           bindString(&c.Clients.GitCommand),
		"CDASH_DEFAULT_GIT_DIRECTORY": bindString(&c.Clients.DefaultGitDirectory),

		"CDASH_SUBMISSION_PROCESSING_TIME_LIMIT":   bindInt(&c.Submission.ProcessingTimeLimitSeconds),
		"CDASH_SUBMISSION_PROCESSING_MAX_ATTEMPTS": bindInt(&c.Submission.ProcessingMaxAttempts),
		"CDASH_MAX_UPLOAD_QUOTA":                   bindInt(&c.Submission.MaxUploadQuotaGB),
		"CDASH_LARGE_TEXT_LIMIT":                   bindInt(&c.Submission.LargeTextLimit),
	}
}

func bindString(dst *string) phpBinding {
	return func(v phpValue) error {
		switch v.kind {
		case phpString:
			*dst = v.str
		case phpInt:
			*dst = strconv.Itoa(v.num)
		default:
			return fmt.Errorf("expected a string")
		}
		return nil
	}
}

func bindInt(dst *int) phpBinding {
	return func(v phpValue) error {
		switch v.kind {
		case phpInt:
			*dst = v.num
		case phpString:
			n, err := strconv.Atoi(strings.TrimSpace(v.str))
			if err != nil {
				return fmt.Errorf("expected an integer, got %q", v.str)
			}
			*dst = n
		default:
			return fmt.Errorf("expected an integer")
		}
		return nil
	}
}

func bindFlag(dst *Flag) phpBinding {
	return func(v phpValue) error {
		switch v.kind {
		case phpBool:
			*dst = Flag(v.bln)
		case phpInt:
			b, err := ParseFlag(strconv.Itoa(v.num))
			if err != nil {
				return err
			}
			*dst = Flag(b)
		case phpString:
			b, err := ParseFlag(v.str)
			if err != nil {
				return err
			}
			*dst = Flag(b)
		default:
			return fmt.Errorf("expected a flag")
		}
		return nil
	}
}

func bindStringMap(dst *map[string]string) phpBinding {
	return func(v phpValue) error {
		if v.kind != phpEmptyArray {
			return fmt.Errorf("expected an array")
		}
		*dst = map[string]string{}
		return nil
	}
}

func bindStringSlice(dst *[]string) phpBinding {
	return func(v phpValue) error {
		if v.kind != phpEmptyArray {
			return fmt.Errorf("expected an array")
		}
		*dst = []string{}
		return nil
	}
}
