// Package syncconfig loads and checks the database synchronization
// settings. Nothing here opens a connection: DSNs are built and parsed
// with each driver's own parser, never dialed.
package syncconfig

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5"
	"github.com/microsoft/go-mssqldb/msdsn"
	"github.com/spf13/viper"

	"sherlouk/internal/storage"
)

// Sync modes.
const (
	ModeAppend  = "append"
	ModeReplace = "replace"
	ModeUpsert  = "upsert"
)

const (
	MinInterval  = time.Minute
	MaxBatchSize = 100_000
)

// Settings is the sync settings document.
type Settings struct {
	Backend  string `mapstructure:"backend"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	// Params are extra DSN query parameters ("k=v&k2=v2").
	Params    string        `mapstructure:"params"`
	Table     string        `mapstructure:"table"`
	Interval  time.Duration `mapstructure:"interval"`
	BatchSize int           `mapstructure:"batch_size"`
	Mode      string        `mapstructure:"mode"`
}

// Summary is what Check reports back. The password never appears in it.
type Summary struct {
	Backend   string        `json:"backend"`
	DSN       string        `json:"dsn"`
	Host      string        `json:"host"`
	Port      int           `json:"port"`
	User      string        `json:"user"`
	Database  string        `json:"database"`
	Table     string        `json:"table"`
	Interval  time.Duration `json:"interval"`
	BatchSize int           `json:"batch_size"`
	Mode      string        `json:"mode"`
}

var keys = []string{
	"backend", "dsn", "host", "port", "user", "password", "database",
	"params", "table", "interval", "batch_size", "mode",
}

// Load reads settings from path (YAML, JSON or TOML by extension; empty
// means environment only). SHERLOUK_SYNC_<KEY> variables override the
// file.
func Load(path string) (Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("SHERLOUK_SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", "mysql")
	v.SetDefault("dsn", "")
	v.SetDefault("host", "")
	v.SetDefault("port", 0)
	v.SetDefault("user", "")
	v.SetDefault("password", "")
	v.SetDefault("database", "")
	v.SetDefault("params", "")
	v.SetDefault("table", "imported_data")
	v.SetDefault("interval", "15m")
	v.SetDefault("batch_size", 1000)
	v.SetDefault("mode", ModeAppend)

	for _, k := range keys {
		if err := v.BindEnv(k, "SHERLOUK_SYNC_"+strings.ToUpper(k)); err != nil {
			return Settings{}, fmt.Errorf("bind env %s: %w", k, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("read sync settings: %w", err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decode sync settings: %w", err)
	}
	s.Backend = storage.CanonicalKind(s.Backend)
	return s, nil
}

// ResolveDSN returns s.DSN when set, otherwise a DSN built from the
// component fields for s.Backend.
func (s Settings) ResolveDSN() (string, error) {
	if dsn := strings.TrimSpace(s.DSN); dsn != "" {
		return dsn, nil
	}

	switch storage.CanonicalKind(s.Backend) {
	case "mysql":
		return buildMySQLDSN(s)
	case "postgres":
		return buildPostgresDSN(s), nil
	case "mssql":
		return buildMSSQLDSN(s), nil
	case "sqlite":
		return buildSQLiteDSN(s), nil
	default:
		return "", fmt.Errorf("unsupported sync backend %q", s.Backend)
	}
}

// Check validates s and parses its DSN with the backend driver.
func (s Settings) Check() (Summary, error) {
	backend := storage.CanonicalKind(s.Backend)

	if s.Interval < MinInterval {
		return Summary{}, fmt.Errorf("interval %s is below the minimum of %s", s.Interval, MinInterval)
	}
	if s.BatchSize < 1 || s.BatchSize > MaxBatchSize {
		return Summary{}, fmt.Errorf("batch_size %d out of range [1, %d]", s.BatchSize, MaxBatchSize)
	}
	mode := strings.ToLower(strings.TrimSpace(s.Mode))
	switch mode {
	case ModeAppend, ModeReplace, ModeUpsert:
	default:
		return Summary{}, fmt.Errorf("unsupported sync mode %q (want append, replace or upsert)", s.Mode)
	}
	if strings.TrimSpace(s.Table) == "" {
		return Summary{}, fmt.Errorf("table is required")
	}

	dsn, err := s.ResolveDSN()
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Backend:   backend,
		Table:     s.Table,
		Interval:  s.Interval,
		BatchSize: s.BatchSize,
		Mode:      mode,
	}

	sum.DSN = redactDSN(dsn)
	switch backend {
	case "mysql":
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return Summary{}, fmt.Errorf("parse mysql dsn: %w", err)
		}
		sum.User, sum.Database = cfg.User, cfg.DBName
		sum.Host, sum.Port = splitHostPort(cfg.Addr)
		if cfg.Passwd != "" {
			cfg.Passwd = redacted
			sum.DSN = cfg.FormatDSN()
		}
	case "postgres":
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return Summary{}, fmt.Errorf("parse postgres dsn: %w", err)
		}
		sum.Host, sum.Port = cfg.Host, int(cfg.Port)
		sum.User, sum.Database = cfg.User, cfg.Database
	case "mssql":
		cfg, err := msdsn.Parse(dsn)
		if err != nil {
			return Summary{}, fmt.Errorf("parse sqlserver dsn: %w", err)
		}
		sum.Host, sum.Port = cfg.Host, int(cfg.Port)
		sum.User, sum.Database = cfg.User, cfg.Database
	case "sqlite":
		sum.Database = sqlitePath(dsn)
	}
	return sum, nil
}

// String renders the summary for terminal output.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "backend:    %s\n", s.Backend)
	fmt.Fprintf(&b, "dsn:        %s\n", s.DSN)
	if s.Host != "" {
		fmt.Fprintf(&b, "host:       %s:%d\n", s.Host, s.Port)
	}
	if s.User != "" {
		fmt.Fprintf(&b, "user:       %s\n", s.User)
	}
	fmt.Fprintf(&b, "database:   %s\n", s.Database)
	fmt.Fprintf(&b, "table:      %s\n", s.Table)
	fmt.Fprintf(&b, "interval:   %s\n", s.Interval)
	fmt.Fprintf(&b, "batch size: %d\n", s.BatchSize)
	fmt.Fprintf(&b, "mode:       %s", s.Mode)
	return b.String()
}

const redacted = "xxxxx"

// redactDSN masks the password in URL and keyword/value DSNs.
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && !strings.Contains(dsn, " ") {
		if u.User != nil {
			if _, ok := u.User.Password(); ok {
				u.User = url.UserPassword(u.User.Username(), redacted)
			}
		}
		q := u.Query()
		for k := range q {
			if isPasswordKey(k) {
				q.Set(k, redacted)
			}
		}
		u.RawQuery = q.Encode()
		return u.String()
	}

	sep := " "
	parts := strings.Fields(dsn)
	if strings.Contains(dsn, ";") {
		sep = ";"
		parts = strings.Split(dsn, ";")
	}
	for i, p := range parts {
		k, _, ok := strings.Cut(p, "=")
		if ok && isPasswordKey(k) {
			parts[i] = k + "=" + redacted
		}
	}
	return strings.Join(parts, sep)
}

func isPasswordKey(k string) bool {
	switch strings.ToLower(strings.TrimSpace(k)) {
	case "password", "pwd":
		return true
	}
	return false
}

func splitHostPort(addr string) (string, int) {
	i := strings.LastIndex(addr, ":")
	if i < 0 {
		return addr, 0
	}
	p, err := strconv.Atoi(addr[i+1:])
	if err != nil {
		return addr, 0
	}
	return addr[:i], p
}

func sqlitePath(dsn string) string {
	p := strings.TrimPrefix(dsn, "file:")
	if i := strings.Index(p, "?"); i >= 0 {
		p = p[:i]
	}
	return p
}
