// Package config reads settings from the environment, after loading a .env
// file when one is present.
package config

import (
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"clubsite/internal/apperr"
	sitemodel "clubsite/internal/site/model"

	"github.com/joho/godotenv"
)

const (
	ModeProduction  = "production"
	ModeDevelopment = "development"

	StoreREST     = "rest"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	MailResend = "resend"
	MailSMTP   = "smtp"
)

type Postgres struct {
	User, Password, Host, Port, DBName string
	SSLMode                            string
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
}

type Config struct {
	Addr     string
	LogLevel string
	Mode     string

	ClubName        string
	ClubDescription string
	InquiryEmail    string

	KeyPrefix      string
	StoreDriver    string
	RestURL        string
	RestToken      string
	LegacyEncoding bool
	Postgres       Postgres

	MailDriver   string
	ResendAPIKey string
	MailFrom     string
	SMTP         SMTP

	JWTSecret          string
	GCSBucket          string
	GCSCredentialsFile string
	ContactRateLimit   int

	// TrustedProxies may report the client address in X-Forwarded-For.
	TrustedProxies []netip.Prefix
	AllowedOrigin  string
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv. Tests pass a map lookup.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Addr:     ":" + strings.TrimPrefix(get("PORT", "8080"), ":"),
		LogLevel: get("LOG_LEVEL", "info"),
		Mode:     get("APP_ENV", ModeDevelopment),

		ClubName:        get("CLUB_NAME", sitemodel.ClubDefaults.ClubName),
		ClubDescription: get("CLUB_DESCRIPTION", sitemodel.ClubDefaults.ClubDescription),
		InquiryEmail:    get("INQUIRY_EMAIL", sitemodel.ClubDefaults.InquiryEmail),

		KeyPrefix:   get("KV_KEY_PREFIX", "walk4health"),
		StoreDriver: get("STORE_DRIVER", StoreREST),
		RestURL:     get("KV_REST_API_URL", get("UPSTASH_REDIS_REST_URL", "")),
		RestToken:   get("KV_REST_API_TOKEN", get("UPSTASH_REDIS_REST_TOKEN", "")),
		Postgres: Postgres{
			User:     get("user", ""),
			Password: get("password", ""),
			Host:     get("host", ""),
			Port:     get("port", "5432"),
			DBName:   get("dbname", ""),
			SSLMode:  get("sslmode", "require"),
		},

		MailDriver:   get("MAIL_DRIVER", MailResend),
		ResendAPIKey: get("RESEND_API_KEY", get("SENDGRID_API_KEY", "")),
		MailFrom:     get("MAIL_FROM", "noreply@walk4health.co.nz"),
		SMTP: SMTP{
			Host:     get("SMTP_HOST", ""),
			User:     get("SMTP_USER", ""),
			Password: get("SMTP_PASSWORD", ""),
		},

		JWTSecret:          get("ADMIN_JWT_SECRET", ""),
		GCSBucket:          get("GCS_BUCKET", ""),
		GCSCredentialsFile: get("GCS_CREDENTIALS_FILE", ""),
		AllowedOrigin:      get("CORS_ORIGIN", "*"),
	}

	var err error
	if cfg.SMTP.Port, err = strconv.Atoi(get("SMTP_PORT", "587")); err != nil {
		return nil, apperr.Invalid("SMTP_PORT", "must be a number")
	}
	if cfg.ContactRateLimit, err = strconv.Atoi(get("CONTACT_RATE_PER_MINUTE", "5")); err != nil {
		return nil, apperr.Invalid("CONTACT_RATE_PER_MINUTE", "must be a number")
	}
	if cfg.TrustedProxies, err = parsePrefixes(get("TRUSTED_PROXIES", "")); err != nil {
		return nil, apperr.Invalid("TRUSTED_PROXIES", err.Error())
	}
	if cfg.LegacyEncoding, err = strconv.ParseBool(get("KV_LEGACY_DOUBLE_ENCODE", "false")); err != nil {
		return nil, apperr.Invalid("KV_LEGACY_DOUBLE_ENCODE", "must be true or false")
	}

	switch cfg.Mode {
	case ModeProduction, ModeDevelopment:
	default:
		return nil, apperr.Invalid("APP_ENV", fmt.Sprintf("unknown mode %q", cfg.Mode))
	}
	switch cfg.StoreDriver {
	case StoreREST, StorePostgres, StoreMemory:
	default:
		return nil, apperr.Invalid("STORE_DRIVER", fmt.Sprintf("unknown driver %q", cfg.StoreDriver))
	}
	switch cfg.MailDriver {
	case MailResend, MailSMTP:
	default:
		return nil, apperr.Invalid("MAIL_DRIVER", fmt.Sprintf("unknown driver %q", cfg.MailDriver))
	}
	return cfg, nil
}

// CheckStore reports missing credentials for the selected store driver.
func (c *Config) CheckStore() error {
	switch c.StoreDriver {
	case StoreREST:
		if c.RestURL == "" || c.RestToken == "" {
			return &apperr.NotConfiguredError{What: "KV_REST_API_URL / KV_REST_API_TOKEN"}
		}
	case StorePostgres:
		if c.Postgres.Host == "" || c.Postgres.DBName == "" {
			return &apperr.NotConfiguredError{What: "postgres host / dbname"}
		}
	}
	return nil
}

func (c *Config) Production() bool { return c.Mode == ModeProduction }

// DSN is the lib/pq connection string.
func (p Postgres) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.DBName, p.SSLMode)
}

// parsePrefixes reads a comma separated list of CIDR ranges or single
// addresses.
func parsePrefixes(list string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, fmt.Errorf("bad range %q", item)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("bad address %q", item)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}
