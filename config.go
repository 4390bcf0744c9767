package adldap

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds the settings for a directory session.
type Config struct {
	// Connection settings.
	Host    string        // directory server host (always contacted over LDAPS)
	Port    int           `default:"636"`
	Timeout time.Duration `default:"30s"` // dial and per-request network timeout

	// Authentication settings. A simple bind is performed with
	// Username/Password; setting KerberosRealm switches to a GSSAPI bind.
	Username       string
	Password       string
	KerberosRealm  string // Kerberos realm; enables GSSAPI bind when set
	KerberosKeytab string // path to a keytab file
	KerberosCCache string // path to a credential cache
	KerberosConfig string // path to krb5.conf (default /etc/krb5.conf)
	KerberosSPN    string // explicit service principal override

	// TLS settings.
	CACertFile         string // PEM file with the CA certificate
	CACertDir          string // directory of CA certificates
	InsecureSkipVerify bool   // skip server certificate verification

	// Search settings.
	PageSize uint32 `default:"500"` // page size for paginated searches

	// Logger receives structured operation logs. Zero value disables
	// logging.
	Logger zerolog.Logger
}

// DefaultConfig returns a Config with the package defaults applied.
func DefaultConfig() *Config {
	cfg := &Config{Logger: zerolog.Nop()}
	if err := defaults.Set(cfg); err != nil {
		// Only reachable with a broken struct tag.
		panic(fmt.Sprintf("adldap: applying config defaults: %v", err))
	}
	return cfg
}

// ConfigFromEnv builds a Config from ADLDAP_* environment variables,
// first loading any variables defined in the named dotenv files. Missing
// files are ignored so a plain environment works unchanged.
//
// Recognized variables: ADLDAP_HOST, ADLDAP_PORT, ADLDAP_USERNAME,
// ADLDAP_PASSWORD, ADLDAP_PAGESIZE, ADLDAP_TIMEOUT, ADLDAP_CACERT_FILE,
// ADLDAP_CACERT_DIR, ADLDAP_KRB5_REALM, ADLDAP_KRB5_KEYTAB,
// ADLDAP_KRB5_CCACHE, ADLDAP_KRB5_CONFIG.
func ConfigFromEnv(filenames ...string) (*Config, error) {
	for _, name := range filenames {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("adldap: loading %s: %w", name, err)
		}
	}

	cfg := DefaultConfig()
	cfg.Host = os.Getenv("ADLDAP_HOST")
	cfg.Username = os.Getenv("ADLDAP_USERNAME")
	cfg.Password = os.Getenv("ADLDAP_PASSWORD")
	cfg.CACertFile = os.Getenv("ADLDAP_CACERT_FILE")
	cfg.CACertDir = os.Getenv("ADLDAP_CACERT_DIR")
	cfg.KerberosRealm = os.Getenv("ADLDAP_KRB5_REALM")
	cfg.KerberosKeytab = os.Getenv("ADLDAP_KRB5_KEYTAB")
	cfg.KerberosCCache = os.Getenv("ADLDAP_KRB5_CCACHE")
	cfg.KerberosConfig = os.Getenv("ADLDAP_KRB5_CONFIG")

	if v := os.Getenv("ADLDAP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("adldap: ADLDAP_PORT: %w", err)
		}
		cfg.Port = port
	}

	if v := os.Getenv("ADLDAP_PAGESIZE"); v != "" {
		size, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("adldap: ADLDAP_PAGESIZE: %w", err)
		}
		cfg.PageSize = uint32(size)
	}

	if v := os.Getenv("ADLDAP_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("adldap: ADLDAP_TIMEOUT: %w", err)
		}
		cfg.Timeout = timeout
	}

	return cfg, nil
}
