package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/huangang/cdashconf/internal/config"
)

const ldapTimeout = 10 * time.Second

var ErrLDAPDisabled = errors.New("LDAP is not enabled")

type LDAPService struct {
	config *config.LDAPConfig
}

func NewLDAPService(cfg *config.LDAPConfig) *LDAPService {
	return &LDAPService{config: cfg}
}

// URL returns the server URL. A bare host name is treated as plain ldap://
// on the default port.
func (s *LDAPService) URL() string {
	if strings.Contains(s.config.Host, "://") {
		return s.config.Host
	}
	return "ldap://" + s.config.Host
}

// ProbeFilter is the search filter used to check the base DN, restricted by
// the configured extra filter.
func (s *LDAPService) ProbeFilter() string {
	if s.config.Filter == "" {
		return "(objectClass=*)"
	}
	return "(&(objectClass=*)" + s.config.Filter + ")"
}

// Check connects to the configured server, binds with the service account
// when authenticated binds are on, and runs a one-entry search under the base
// DN. Referral chasing is not supported by the client and is ignored.
func (s *LDAPService) Check(ctx context.Context) error {
	if !s.config.Enabled {
		return ErrLDAPDisabled
	}
	if s.config.ProtocolVersion != 3 {
		return fmt.Errorf("unsupported LDAP protocol version %d", s.config.ProtocolVersion)
	}

	timeout := ldapTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return ctx.Err()
		}
	}

	conn, err := ldap.DialURL(s.URL(), ldap.DialWithDialer(&net.Dialer{Timeout: timeout}))
	if err != nil {
		return fmt.Errorf("failed to connect to LDAP server: %w", err)
	}
	defer conn.Close()
	conn.SetTimeout(timeout)

	if s.config.Authenticated {
		if err := conn.Bind(s.config.BindDN, s.config.BindPassword); err != nil {
			return fmt.Errorf("failed to bind with service account: %w", err)
		}
	}

	searchRequest := ldap.NewSearchRequest(
		s.config.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 1, int(timeout/time.Second), false,
		s.ProbeFilter(),
		[]string{"dn"},
		nil,
	)

	if _, err := conn.Search(searchRequest); err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return fmt.Errorf("LDAP search failed: %w", err)
	}
	return nil
}
