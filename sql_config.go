package crudboot

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
)

type Provider string

const (
	ProviderPostgres  Provider = "postgres"
	ProviderMySQL     Provider = "mysql"
	ProviderSQLite    Provider = "sqlite"
	ProviderSQLServer Provider = "sqlserver"
)

const DefaultConnectionName = "DefaultConnection"

// ParseProvider accepts the usual spellings of the supported providers.
func ParseProvider(name string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "postgres", "postgresql", "pgsql":
		return ProviderPostgres, nil
	case "mysql", "mariadb":
		return ProviderMySQL, nil
	case "sqlite", "sqlite3":
		return ProviderSQLite, nil
	case "sqlserver", "mssql":
		return ProviderSQLServer, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedProvider, name)
}

type SQLConfig struct {
	Name             string
	Provider         Provider
	ConnectionString string
	Host             string
	Port             int
	Username         string
	Password         string
	Database         string
	Options          map[string]string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	Isolation        sql.IsolationLevel
	QueryLogging     bool
}

func NewSQLConfig() *SQLConfig {
	return &SQLConfig{
		Name:            DefaultConnectionName,
		Provider:        ProviderPostgres,
		Host:            "localhost",
		Port:            5432,
		Options:         make(map[string]string),
		MaxOpenConns:    25,
		MaxIdleConns:    25,
		ConnMaxLifetime: 5 * time.Minute,
		Isolation:       sql.LevelReadUncommitted,
	}
}

// SetConnectionString sets the three externally supplied settings at once.
// An empty name falls back to DefaultConnectionName and an empty provider to
// postgres.
func (c *SQLConfig) SetConnectionString(name, connectionString, provider string) error {
	if strings.TrimSpace(connectionString) == "" {
		return ErrMissingConnectionString
	}
	p, err := ParseProvider(provider)
	if err != nil {
		return err
	}
	if name == "" {
		name = DefaultConnectionName
	}
	c.Name = name
	c.ConnectionString = connectionString
	c.Provider = p
	return nil
}

func (c *SQLConfig) WithName(name string) *SQLConfig {
	c.Name = name
	return c
}

func (c *SQLConfig) WithProvider(provider Provider) *SQLConfig {
	c.Provider = provider
	return c
}

func (c *SQLConfig) WithConnectionString(connectionString string) *SQLConfig {
	c.ConnectionString = connectionString
	return c
}

func (c *SQLConfig) WithCredentials(username, password string) *SQLConfig {
	c.Username = username
	c.Password = password
	return c
}

func (c *SQLConfig) WithHost(host string, port int) *SQLConfig {
	c.Host = host
	c.Port = port
	return c
}

func (c *SQLConfig) WithDatabase(database string) *SQLConfig {
	c.Database = database
	return c
}

func (c *SQLConfig) WithOption(key, value string) *SQLConfig {
	c.Options[key] = value
	return c
}

func (c *SQLConfig) WithPool(maxOpen, maxIdle int, maxLifetime time.Duration) *SQLConfig {
	c.MaxOpenConns = maxOpen
	c.MaxIdleConns = maxIdle
	c.ConnMaxLifetime = maxLifetime
	return c
}

func (c *SQLConfig) WithIsolation(level sql.IsolationLevel) *SQLConfig {
	c.Isolation = level
	return c
}

func (c *SQLConfig) WithQueryLogging(enabled bool) *SQLConfig {
	c.QueryLogging = enabled
	return c
}

// BuildDSN returns ConnectionString when set, otherwise a DSN assembled from
// the host settings in the format of the provider.
func (c *SQLConfig) BuildDSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	switch c.Provider {
	case ProviderPostgres:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
			c.Host, c.Port, c.Username, c.Password, c.Database)
		if _, ok := c.Options["sslmode"]; !ok {
			dsn += " sslmode=disable"
		}
		for _, key := range sortedKeys(c.Options) {
			dsn += fmt.Sprintf(" %s=%s", key, c.Options[key])
		}
		return dsn
	case ProviderMySQL:
		query := url.Values{}
		query.Set("parseTime", "true")
		for key, value := range c.Options {
			query.Set(key, value)
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?%s",
			c.Username, c.Password, c.Host, c.Port, c.Database, query.Encode())
	case ProviderSQLServer:
		query := url.Values{}
		query.Set("database", c.Database)
		for key, value := range c.Options {
			query.Set(key, value)
		}
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.Username, c.Password),
			Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
			RawQuery: query.Encode(),
		}
		return u.String()
	case ProviderSQLite:
		return c.Database
	default:
		return ""
	}
}

func (c *SQLConfig) Validate() error {
	if _, err := ParseProvider(string(c.Provider)); err != nil {
		return err
	}
	if c.BuildDSN() == "" {
		return fmt.Errorf("%s: %w", c.Name, ErrMissingConnectionString)
	}
	return nil
}

func (c *SQLConfig) driverName() string {
	switch c.Provider {
	case ProviderSQLite:
		return sqlite.DriverName
	default:
		return string(c.Provider)
	}
}

// Connect opens and pings the database/sql pool of the provider.
func (c *SQLConfig) Connect() (*sql.DB, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	db, err := sql.Open(c.driverName(), c.BuildDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)
	if c.Provider == ProviderSQLite {
		// one connection keeps an in-memory database alive and serialises writers
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

func (c *SQLConfig) Dialector(conn *sql.DB) (gorm.Dialector, error) {
	switch c.Provider {
	case ProviderPostgres:
		return postgres.New(postgres.Config{Conn: conn}), nil
	case ProviderMySQL:
		return mysql.New(mysql.Config{Conn: conn}), nil
	case ProviderSQLite:
		return &sqlite.Dialector{DriverName: sqlite.DriverName, Conn: conn}, nil
	case ProviderSQLServer:
		return sqlserver.New(sqlserver.Config{Conn: conn}), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, c.Provider)
}

// Open connects and returns a gorm handle whose SQL logging goes to logger.
func (c *SQLConfig) Open(logger *zap.Logger) (*gorm.DB, error) {
	conn, err := c.Connect()
	if err != nil {
		return nil, err
	}
	dialector, err := c.Dialector(conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	// repositories open their own write transactions
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 NewGormLogger(logger, c.QueryLogging),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open %s: %w", c.Name, err)
	}
	return db, nil
}

// LoadSQLConfigFromEnv reads <prefix>_NAME, _CONNECTION_STRING, _PROVIDER,
// _HOST, _PORT, _USER, _PASSWORD, _DATABASE, _ISOLATION and _QUERY_LOGGING.
func LoadSQLConfigFromEnv(prefix string) (*SQLConfig, error) {
	env := func(key string) string {
		return strings.TrimSpace(os.Getenv(prefix + "_" + key))
	}

	c := NewSQLConfig()
	provider, err := ParseProvider(env("PROVIDER"))
	if err != nil {
		return nil, err
	}
	c.Provider = provider
	if name := env("NAME"); name != "" {
		c.Name = name
	}
	c.ConnectionString = env("CONNECTION_STRING")
	if host := env("HOST"); host != "" {
		c.Host = host
	}
	if port := env("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid %s_PORT %q: %w", prefix, port, err)
		}
		c.Port = p
	}
	c.Username = env("USER")
	c.Password = env("PASSWORD")
	c.Database = env("DATABASE")
	if isolation := env("ISOLATION"); isolation != "" {
		level, err := ParseIsolation(isolation)
		if err != nil {
			return nil, err
		}
		c.Isolation = level
	}
	c.QueryLogging = env("QUERY_LOGGING") == "true"

	if c.ConnectionString == "" && c.Database == "" {
		return nil, fmt.Errorf("%s: %w", c.Name, ErrMissingConnectionString)
	}
	return c, nil
}

func ParseIsolation(name string) (sql.IsolationLevel, error) {
	switch strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(name)) {
	case "default":
		return sql.LevelDefault, nil
	case "readuncommitted":
		return sql.LevelReadUncommitted, nil
	case "readcommitted":
		return sql.LevelReadCommitted, nil
	case "repeatableread":
		return sql.LevelRepeatableRead, nil
	case "snapshot":
		return sql.LevelSnapshot, nil
	case "serializable":
		return sql.LevelSerializable, nil
	}
	return sql.LevelDefault, fmt.Errorf("unknown isolation level %q", name)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
