package crudboot

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
)

func TestParseProvider(t *testing.T) {
	tests := []struct {
		input   string
		want    Provider
		wantErr bool
	}{
		{input: "", want: ProviderPostgres},
		{input: "PostgreSQL", want: ProviderPostgres},
		{input: "pgsql", want: ProviderPostgres},
		{input: "MariaDB", want: ProviderMySQL},
		{input: "sqlite3", want: ProviderSQLite},
		{input: " mssql ", want: ProviderSQLServer},
		{input: "oracle", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseProvider(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLConfig_Defaults(t *testing.T) {
	config := NewSQLConfig()
	assert.Equal(t, DefaultConnectionName, config.Name)
	assert.Equal(t, ProviderPostgres, config.Provider)
	assert.Equal(t, 25, config.MaxOpenConns)
	assert.Equal(t, 5*time.Minute, config.ConnMaxLifetime)
	assert.Equal(t, sql.LevelReadUncommitted, config.Isolation)
}

func TestSQLConfig_SetConnectionString(t *testing.T) {
	config := NewSQLConfig()
	assert.ErrorIs(t, config.SetConnectionString("Main", "  ", "mysql"), ErrMissingConnectionString)
	assert.ErrorIs(t, config.SetConnectionString("Main", "dsn", "db2"), ErrUnsupportedProvider)

	require.NoError(t, config.SetConnectionString("", "user:pw@tcp(db:3306)/shop", "mysql"))
	assert.Equal(t, DefaultConnectionName, config.Name)
	assert.Equal(t, ProviderMySQL, config.Provider)
	assert.Equal(t, "user:pw@tcp(db:3306)/shop", config.BuildDSN())
}

func TestSQLConfig_BuildDSN(t *testing.T) {
	tests := []struct {
		name   string
		config *SQLConfig
		want   string
	}{
		{
			name: "postgres",
			config: NewSQLConfig().
				WithCredentials("app", "secret").
				WithDatabase("shop").
				WithOption("TimeZone", "UTC"),
			want: "host=localhost port=5432 user=app password=secret dbname=shop sslmode=disable TimeZone=UTC",
		},
		{
			name: "postgres with sslmode",
			config: NewSQLConfig().
				WithHost("db", 6432).
				WithCredentials("app", "secret").
				WithDatabase("shop").
				WithOption("sslmode", "require"),
			want: "host=db port=6432 user=app password=secret dbname=shop sslmode=require",
		},
		{
			name: "mysql",
			config: NewSQLConfig().
				WithProvider(ProviderMySQL).
				WithHost("db", 3306).
				WithCredentials("app", "secret").
				WithDatabase("shop"),
			want: "app:secret@tcp(db:3306)/shop?parseTime=true",
		},
		{
			name: "sqlserver",
			config: NewSQLConfig().
				WithProvider(ProviderSQLServer).
				WithHost("db", 1433).
				WithCredentials("sa", "secret").
				WithDatabase("shop"),
			want: "sqlserver://sa:secret@db:1433?database=shop",
		},
		{
			name:   "sqlite",
			config: NewSQLConfig().WithProvider(ProviderSQLite).WithDatabase("shop.db"),
			want:   "shop.db",
		},
		{
			name: "connection string wins",
			config: NewSQLConfig().
				WithDatabase("ignored").
				WithConnectionString("postgres://app@db/shop"),
			want: "postgres://app@db/shop",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.BuildDSN())
		})
	}
}

func TestSQLConfig_Validate(t *testing.T) {
	assert.ErrorIs(t, NewSQLConfig().WithProvider(ProviderSQLite).Validate(), ErrMissingConnectionString)
	assert.ErrorIs(t, NewSQLConfig().WithProvider("oracle").Validate(), ErrUnsupportedProvider)
	assert.NoError(t, NewSQLConfig().WithDatabase("shop").Validate())
}

func TestSQLConfig_Dialector(t *testing.T) {
	conn, err := sql.Open("postgres", "host=localhost dbname=none")
	require.NoError(t, err)
	defer conn.Close()

	d, err := NewSQLConfig().Dialector(conn)
	require.NoError(t, err)
	assert.IsType(t, &postgres.Dialector{}, d)

	d, err = NewSQLConfig().WithProvider(ProviderMySQL).Dialector(conn)
	require.NoError(t, err)
	assert.IsType(t, &mysql.Dialector{}, d)

	d, err = NewSQLConfig().WithProvider(ProviderSQLServer).Dialector(conn)
	require.NoError(t, err)
	assert.IsType(t, &sqlserver.Dialector{}, d)

	_, err = NewSQLConfig().WithProvider("oracle").Dialector(conn)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
}

func TestSQLConfig_OpenSQLite(t *testing.T) {
	db, err := NewSQLConfig().
		WithName("Local").
		WithProvider(ProviderSQLite).
		WithDatabase(":memory:").
		WithPool(10, 5, time.Minute).
		WithQueryLogging(true).
		Open(zap.NewNop())
	require.NoError(t, err)

	conn, err := db.DB()
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, 1, conn.Stats().MaxOpenConnections)
	assert.Equal(t, "sqlite", db.Dialector.Name())
}

func TestLoadSQLConfigFromEnv(t *testing.T) {
	t.Run("from parts", func(t *testing.T) {
		t.Setenv("DB_PROVIDER", "mysql")
		t.Setenv("DB_HOST", "db")
		t.Setenv("DB_PORT", "3307")
		t.Setenv("DB_USER", "app")
		t.Setenv("DB_PASSWORD", "secret")
		t.Setenv("DB_DATABASE", "shop")
		t.Setenv("DB_ISOLATION", "read_committed")
		t.Setenv("DB_QUERY_LOGGING", "true")

		config, err := LoadSQLConfigFromEnv("DB")
		require.NoError(t, err)
		assert.Equal(t, ProviderMySQL, config.Provider)
		assert.Equal(t, "app:secret@tcp(db:3307)/shop?parseTime=true", config.BuildDSN())
		assert.Equal(t, sql.LevelReadCommitted, config.Isolation)
		assert.True(t, config.QueryLogging)
	})

	t.Run("from a connection string", func(t *testing.T) {
		t.Setenv("DB_NAME", "Reporting")
		t.Setenv("DB_CONNECTION_STRING", "file:report.db")
		t.Setenv("DB_PROVIDER", "sqlite")

		config, err := LoadSQLConfigFromEnv("DB")
		require.NoError(t, err)
		assert.Equal(t, "Reporting", config.Name)
		assert.Equal(t, "file:report.db", config.BuildDSN())
		assert.False(t, config.QueryLogging)
	})

	t.Run("nothing to connect to", func(t *testing.T) {
		_, err := LoadSQLConfigFromEnv("EMPTY")
		assert.ErrorIs(t, err, ErrMissingConnectionString)
	})

	t.Run("bad values", func(t *testing.T) {
		t.Setenv("BAD_DATABASE", "shop")
		t.Setenv("BAD_PORT", "abc")
		_, err := LoadSQLConfigFromEnv("BAD")
		assert.Error(t, err)

		t.Setenv("BAD_PORT", "")
		t.Setenv("BAD_ISOLATION", "chaos")
		_, err = LoadSQLConfigFromEnv("BAD")
		assert.Error(t, err)

		t.Setenv("BAD_ISOLATION", "")
		t.Setenv("BAD_PROVIDER", "oracle")
		_, err = LoadSQLConfigFromEnv("BAD")
		assert.ErrorIs(t, err, ErrUnsupportedProvider)
	})
}

func TestParseIsolation(t *testing.T) {
	for input, want := range map[string]sql.IsolationLevel{
		"Default":          sql.LevelDefault,
		"ReadUncommitted":  sql.LevelReadUncommitted,
		"read-committed":   sql.LevelReadCommitted,
		"REPEATABLE READ":  sql.LevelRepeatableRead,
		"snapshot":         sql.LevelSnapshot,
		"serializable":     sql.LevelSerializable,
	} {
		got, err := ParseIsolation(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
	_, err := ParseIsolation("dirty")
	assert.Error(t, err)
}
