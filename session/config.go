package session

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Config configures the opening of a Session. Its struct tags allow it to be
// embedded directly into a go-flags option group.
type Config struct {
	Path               string        `long:"path" env:"FILE" default:"livesql.db" description:"Path of the SQLite database file. Use ':memory:' for an in-memory database"`
	JournalMode        string        `long:"journal-mode" env:"JOURNAL_MODE" default:"WAL" choice:"DELETE" choice:"TRUNCATE" choice:"PERSIST" choice:"MEMORY" choice:"WAL" choice:"OFF" description:"SQLite journal_mode"`
	Synchronous        string        `long:"synchronous" env:"SYNCHRONOUS" default:"NORMAL" choice:"OFF" choice:"NORMAL" choice:"FULL" choice:"EXTRA" description:"SQLite synchronous pragma"`
	BusyTimeout        time.Duration `long:"busy-timeout" env:"BUSY_TIMEOUT" default:"5s" description:"Duration to wait on a locked database before failing"`
	ForeignKeys        bool          `long:"foreign-keys" env:"FOREIGN_KEYS" description:"Enforce foreign key constraints"`
	StatementCacheSize int           `long:"statement-cache-size" env:"STATEMENT_CACHE_SIZE" default:"256" description:"Maximum number of prepared statements retained by the statement cache"`
}

// DefaultConfig returns a Config of |path| with default settings.
func DefaultConfig(path string) Config {
	return Config{
		Path:               path,
		JournalMode:        "WAL",
		Synchronous:        "NORMAL",
		BusyTimeout:        5 * time.Second,
		ForeignKeys:        true,
		StatementCacheSize: 256,
	}
}

// Validate returns an error if the Config is not usable.
func (cfg Config) Validate() error {
	if cfg.Path == "" {
		return errors.New("expected Path")
	} else if cfg.StatementCacheSize <= 0 {
		return errors.Errorf("invalid StatementCacheSize (%d; expected > 0)", cfg.StatementCacheSize)
	} else if cfg.BusyTimeout < 0 {
		return errors.Errorf("invalid BusyTimeout (%s; expected >= 0)", cfg.BusyTimeout)
	}
	return nil
}

// DSN returns the go-sqlite3 data source name of the Config. Settings are
// passed as go-sqlite3 URI parameters.
func (cfg Config) DSN() string {
	var v = url.Values{}
	if cfg.JournalMode != "" {
		v.Set("_journal_mode", cfg.JournalMode)
	}
	if cfg.Synchronous != "" {
		v.Set("_synchronous", cfg.Synchronous)
	}
	if cfg.BusyTimeout != 0 {
		v.Set("_busy_timeout", strconv.FormatInt(cfg.BusyTimeout.Milliseconds(), 10))
	}
	if cfg.ForeignKeys {
		v.Set("_foreign_keys", "1")
	}
	if len(v) == 0 {
		return cfg.Path
	} else if strings.Contains(cfg.Path, "?") {
		return cfg.Path + "&" + v.Encode()
	}
	return cfg.Path + "?" + v.Encode()
}
