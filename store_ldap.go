package adldap

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog"
)

// ldapStore is the production Store over github.com/go-ldap/ldap/v3. It
// holds a single connection; the Session layer serializes use of it.
type ldapStore struct {
	conn   *ldap.Conn
	log    zerolog.Logger
	bound  bool
	server string
}

// NewLDAPStore returns an unbound Store backed by a real LDAP
// connection.
func NewLDAPStore() Store {
	return &ldapStore{log: zerolog.Nop()}
}

func (s *ldapStore) Bind(ctx context.Context, cfg *Config) error {
	if cfg == nil || cfg.Host == "" {
		return fmt.Errorf("%w: no host configured", ErrConnection)
	}
	s.log = cfg.Logger
	s.server = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	tlsConfig, err := newTLSConfig(cfg)
	if err != nil {
		return err
	}

	// Plain ldap:// is deliberately unsupported: a simple bind over a
	// cleartext connection sends the domain password on the wire.
	start := time.Now()
	conn, err := ldap.DialURL("ldaps://"+s.server,
		ldap.DialWithTLSConfig(tlsConfig),
		ldap.DialWithDialer(&net.Dialer{Timeout: cfg.Timeout}),
	)
	if err != nil {
		s.log.Warn().Err(err).Str("server", s.server).Msg("dial failed")
		return &StoreError{Op: "bind", Code: ldap.LDAPResultConnectError, Err: err}
	}
	conn.SetTimeout(cfg.Timeout)

	if cfg.KerberosRealm != "" {
		err = kerberosBind(conn, cfg)
	} else {
		err = conn.Bind(cfg.Username, cfg.Password)
	}
	if err != nil {
		conn.Close()
		s.log.Warn().Err(err).Str("server", s.server).Msg("bind failed")
		return wrapStoreError("bind", "", err)
	}

	s.conn = conn
	s.bound = true
	s.log.Debug().
		Str("server", s.server).
		Dur("elapsed", time.Since(start)).
		Msg("bound to directory")
	return nil
}

func (s *ldapStore) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Unbind()
	s.conn = nil
	s.bound = false
	return err
}

func (s *ldapStore) SearchPage(ctx context.Context, base, filter string, scope Scope, attrs []string, pageSize uint32, cookie []byte) (*Page, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	paging := ldap.NewControlPaging(pageSize)
	if len(cookie) > 0 {
		paging.SetCookie(cookie)
	}

	req := ldap.NewSearchRequest(
		base,
		ldapScope(scope),
		ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		attrs,
		[]ldap.Control{paging},
	)

	result, err := s.conn.Search(req)
	if err != nil {
		s.log.Warn().Err(err).Str("filter", filter).Str("base", base).Msg("search page failed")
		return nil, wrapStoreError("search", base, err)
	}

	page := &Page{Records: make([]Record, 0, len(result.Entries))}
	for _, entry := range result.Entries {
		attributes := make(map[string][]string, len(entry.Attributes))
		for _, attr := range entry.Attributes {
			attributes[attr.Name] = attr.Values
		}
		page.Records = append(page.Records, Record{DN: entry.DN, Attributes: attributes})
	}

	if ctrl, ok := ldap.FindControl(result.Controls, ldap.ControlTypePaging).(*ldap.ControlPaging); ok {
		page.HasControl = true
		page.Cookie = ctrl.Cookie
	}

	s.log.Debug().
		Str("filter", filter).
		Str("base", base).
		Int("records", len(page.Records)).
		Bool("more", page.HasControl && len(page.Cookie) > 0).
		Msg("search page")
	return page, nil
}

func (s *ldapStore) Add(ctx context.Context, dn string, attrs Properties) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	req := ldap.NewAddRequest(dn, nil)
	for name, values := range attrs {
		req.Attribute(name, values)
	}

	if err := s.conn.Add(req); err != nil {
		return wrapStoreError("add", dn, err)
	}
	s.log.Debug().Str("dn", dn).Msg("object added")
	return nil
}

// DiffModify turns an (old, new) attribute pair into the minimal
// modification list: attributes absent from old are added, attributes
// whose new value list is empty are deleted, and anything else that
// differs is replaced. An empty pair yields an empty modify request,
// which directory servers acknowledge as a successful no-op.
func (s *ldapStore) DiffModify(ctx context.Context, dn string, old, new Properties) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	req := ldap.NewModifyRequest(dn, nil)
	for name, newValues := range new {
		oldValues, had := old[name]
		switch {
		case !had && len(newValues) > 0:
			req.Add(name, newValues)
		case had && len(newValues) == 0:
			req.Delete(name, []string{})
		case had && !valuesEqual(oldValues, newValues):
			req.Replace(name, newValues)
		}
	}
	for name := range old {
		if _, ok := new[name]; !ok {
			req.Delete(name, []string{})
		}
	}

	if err := s.conn.Modify(req); err != nil {
		return wrapStoreError("modify", dn, err)
	}
	s.log.Debug().Str("dn", dn).Int("attributes", len(new)).Msg("object modified")
	return nil
}

func (s *ldapStore) Delete(ctx context.Context, dn string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if err := s.conn.Del(ldap.NewDelRequest(dn, nil)); err != nil {
		return wrapStoreError("delete", dn, err)
	}
	s.log.Debug().Str("dn", dn).Msg("object deleted")
	return nil
}

func (s *ldapStore) Rename(ctx context.Context, dn, newRDN, newParent string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	req := ldap.NewModifyDNRequest(dn, newRDN, true, newParent)
	if err := s.conn.ModifyDN(req); err != nil {
		return wrapStoreError("rename", dn, err)
	}
	s.log.Debug().Str("dn", dn).Str("parent", newParent).Msg("object renamed")
	return nil
}

func (s *ldapStore) ready(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.bound || s.conn == nil {
		return ErrNotConnected
	}
	return nil
}

func ldapScope(scope Scope) int {
	switch scope {
	case ScopeBase:
		return ldap.ScopeBaseObject
	case ScopeOneLevel:
		return ldap.ScopeSingleLevel
	default:
		return ldap.ScopeWholeSubtree
	}
}

func valuesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// newTLSConfig assembles the TLS settings for the LDAPS dial. With no CA
// material configured the system trust store applies.
func newTLSConfig(cfg *Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	if cfg.CACertFile == "" && cfg.CACertDir == "" {
		return tlsConfig, nil
	}

	pool, err := x509.SystemCertPool()
	if err != nil {
		pool = x509.NewCertPool()
	}

	if cfg.CACertFile != "" {
		pem, err := os.ReadFile(cfg.CACertFile)
		if err != nil {
			return nil, fmt.Errorf("%w: reading CA certificate: %v", ErrConnection, err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%w: no certificates in %s", ErrConnection, cfg.CACertFile)
		}
	}

	if cfg.CACertDir != "" {
		entries, err := os.ReadDir(cfg.CACertDir)
		if err != nil {
			return nil, fmt.Errorf("%w: reading CA directory: %v", ErrConnection, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			pem, err := os.ReadFile(filepath.Join(cfg.CACertDir, entry.Name()))
			if err != nil {
				continue
			}
			pool.AppendCertsFromPEM(pem)
		}
	}

	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}
