// Package config resolves server settings from defaults, an optional .env
// file, REWEAR_* environment variables and command-line flags, in that order
// of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/erazemk/rewear/internal/model"
)

// Config holds the resolved server settings.
type Config struct {
	DBPath         string
	Addr           string
	LogPath        string
	AdminName      string
	AdminEmail     string
	JWTSecret      string // empty means use the secret stored in the database
	TokenTTL       time.Duration
	StartingPoints int
	AllowedOrigins []string
}

// Defaults.
const (
	DefaultDBPath     = "rewear.sqlite3"
	DefaultAddr       = ":8080"
	DefaultAdminName  = "Admin"
	DefaultAdminEmail = "admin@rewear.local"
	DefaultEnvFile    = ".env"
)

// Usage is printed for -h.
const Usage = `Usage: rewear [flags]

Flags:
  -d, -db <path>          SQLite database path (default: rewear.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin display name on first run (default: Admin)
  -e, -email <address>    admin email on first run (default: admin@rewear.local)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment (also read from .env, or the file named by REWEAR_ENV_FILE):
  REWEAR_DB, REWEAR_ADDR, REWEAR_LOG, REWEAR_ADMIN_NAME, REWEAR_ADMIN_EMAIL,
  REWEAR_JWT_SECRET, REWEAR_TOKEN_TTL (e.g. 168h), REWEAR_STARTING_POINTS,
  REWEAR_ALLOWED_ORIGINS (comma separated)
`

// Load resolves the configuration. lookup reads the process environment; it
// is a parameter so tests can supply their own. Flags in args win over
// everything else. flag.ErrHelp is returned unchanged for -h.
func Load(args []string, lookup func(string) (string, bool), stderr io.Writer) (*Config, error) {
	envFile := DefaultEnvFile
	if v, ok := lookup("REWEAR_ENV_FILE"); ok && v != "" {
		envFile = v
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", envFile, err)
	}

	get := func(key, def string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		if v, ok := dotenv[key]; ok {
			return v
		}
		return def
	}

	cfg := &Config{
		DBPath:     get("REWEAR_DB", DefaultDBPath),
		Addr:       get("REWEAR_ADDR", DefaultAddr),
		LogPath:    get("REWEAR_LOG", ""),
		AdminName:  get("REWEAR_ADMIN_NAME", DefaultAdminName),
		AdminEmail: get("REWEAR_ADMIN_EMAIL", DefaultAdminEmail),
		JWTSecret:  get("REWEAR_JWT_SECRET", ""),
	}

	ttl := get("REWEAR_TOKEN_TTL", "")
	if ttl != "" {
		if cfg.TokenTTL, err = time.ParseDuration(ttl); err != nil {
			return nil, fmt.Errorf("REWEAR_TOKEN_TTL: %w", err)
		}
	}

	cfg.StartingPoints = model.DefaultStartingPoints
	if v := get("REWEAR_STARTING_POINTS", ""); v != "" {
		if cfg.StartingPoints, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("REWEAR_STARTING_POINTS: %w", err)
		}
	}

	for _, origin := range strings.Split(get("REWEAR_ALLOWED_ORIGINS", ""), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	fset := flag.NewFlagSet("rewear", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() { fmt.Fprint(stderr, Usage) }

	fset.StringVar(&cfg.DBPath, "db", cfg.DBPath, "")
	fset.StringVar(&cfg.DBPath, "d", cfg.DBPath, "")
	fset.StringVar(&cfg.Addr, "addr", cfg.Addr, "")
	fset.StringVar(&cfg.Addr, "a", cfg.Addr, "")
	fset.StringVar(&cfg.AdminName, "user", cfg.AdminName, "")
	fset.StringVar(&cfg.AdminName, "u", cfg.AdminName, "")
	fset.StringVar(&cfg.AdminEmail, "email", cfg.AdminEmail, "")
	fset.StringVar(&cfg.AdminEmail, "e", cfg.AdminEmail, "")
	fset.StringVar(&cfg.LogPath, "log", cfg.LogPath, "")
	fset.StringVar(&cfg.LogPath, "l", cfg.LogPath, "")

	if err := fset.Parse(args); err != nil {
		return nil, err
	}
	if fset.NArg() > 0 {
		return nil, fmt.Errorf("unexpected argument: %s", fset.Arg(0))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved values.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return errors.New("database path must not be empty")
	}
	if c.Addr == "" {
		return errors.New("listen address must not be empty")
	}
	if c.StartingPoints < 0 {
		return fmt.Errorf("starting points must not be negative, got %d", c.StartingPoints)
	}
	if c.TokenTTL < 0 {
		return fmt.Errorf("token TTL must not be negative, got %s", c.TokenTTL)
	}
	email, err := model.NormalizeEmail(c.AdminEmail)
	if err != nil {
		return fmt.Errorf("admin email: %w", err)
	}
	c.AdminEmail = email
	return nil
}
