package adldap

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/go-ldap/ldap/v3/gssapi"
	krb5client "github.com/jcmturner/gokrb5/v8/client"
)

// kerberosBind authenticates a connection with GSSAPI. Credential
// selection order: explicit credential cache, explicit keytab, password.
func kerberosBind(conn *ldap.Conn, cfg *Config) error {
	client, err := newGSSAPIClient(cfg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAuth, err)
	}
	defer func() {
		_ = client.DeleteSecContext()
	}()

	spn := cfg.KerberosSPN
	if spn == "" {
		spn = "ldap/" + strings.ToLower(cfg.Host)
	}

	if err := conn.GSSAPIBind(client, spn, ""); err != nil {
		return err
	}
	return nil
}

func newGSSAPIClient(cfg *Config) (ldap.GSSAPIClient, error) {
	krb5conf := cfg.KerberosConfig
	if krb5conf == "" {
		krb5conf = "/etc/krb5.conf"
	}
	if _, err := os.Stat(krb5conf); err != nil {
		return nil, fmt.Errorf("kerberos configuration not found at %s", krb5conf)
	}

	if cfg.KerberosCCache != "" {
		return gssapi.NewClientFromCCache(cfg.KerberosCCache, krb5conf,
			krb5client.DisablePAFXFAST(true))
	}

	if cfg.KerberosKeytab != "" {
		return gssapi.NewClientWithKeytab(cfg.Username, cfg.KerberosRealm,
			cfg.KerberosKeytab, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	if cfg.Username != "" && cfg.Password != "" {
		return gssapi.NewClientWithPassword(cfg.Username, cfg.KerberosRealm,
			cfg.Password, krb5conf, krb5client.DisablePAFXFAST(true))
	}

	return nil, fmt.Errorf("no usable kerberos credentials configured")
}
