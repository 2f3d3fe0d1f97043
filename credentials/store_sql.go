package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// userRow maps the users table of a SQL deployment of the application.
type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID       string         `bun:"id,pk"`
	Email    string         `bun:"email"`
	Name     sql.NullString `bun:"name"`
	Role     sql.NullString `bun:"role"`
	Password sql.NullString `bun:"password"`
}

// SQLStore reads users from a relational database through bun.
type SQLStore struct {
	bun *bun.DB
}

// sqlTarget translates a store DSN into a database/sql driver name, a driver-specific
// data source name, and a dialect key.
func sqlTarget(dsn string) (driverName, dataSource, dbType string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn, "postgres", nil
	case strings.HasPrefix(dsn, "mysql://"):
		source, err := mysqlDataSource(dsn)
		if err != nil {
			return "", "", "", err
		}
		return "mysql", source, "mysql", nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://"), "sqlite", nil
	case strings.HasPrefix(dsn, "file:"):
		return "sqlite", dsn, "sqlite", nil
	}
	return "", "", "", fmt.Errorf("credentials: unsupported SQL DSN %q", RedactDSN(dsn))
}

// mysqlDataSource accepts a mysql:// DSN in either URL form (user:pass@host:3306/db?params)
// or the driver's own form (user:pass@tcp(host:3306)/db) and returns the driver's form.
func mysqlDataSource(dsn string) (string, error) {
	rest := strings.TrimPrefix(dsn, "mysql://")
	if strings.Contains(rest, "tcp(") || strings.Contains(rest, "unix(") {
		return rest, nil
	}
	invalid := fmt.Errorf("credentials: invalid MySQL DSN %q", RedactDSN(dsn))
	u, err := url.Parse(dsn)
	if err != nil || u.Hostname() == "" {
		return "", invalid
	}
	cfg := mysql.NewConfig()
	cfg.User = u.User.Username()
	cfg.Passwd, _ = u.User.Password()
	cfg.Net = "tcp"
	cfg.Addr = u.Host
	if u.Port() == "" {
		cfg.Addr = net.JoinHostPort(u.Hostname(), "3306")
	}
	cfg.DBName = strings.TrimPrefix(u.Path, "/")
	source := cfg.FormatDSN()
	if u.RawQuery == "" {
		return source, nil
	}
	// let the driver interpret the parameters so that unknown ones are rejected up front
	withParams, err := mysql.ParseDSN(source + "?" + u.RawQuery)
	if err != nil {
		return "", fmt.Errorf("%w: %s", invalid, err)
	}
	return withParams.FormatDSN(), nil
}

func createBunDB(sqlDB *sql.DB, dbType string) *bun.DB {
	switch dbType {
	case "postgres":
		return bun.NewDB(sqlDB, pgdialect.New())
	case "mysql":
		return bun.NewDB(sqlDB, mysqldialect.New())
	default:
		return bun.NewDB(sqlDB, sqlitedialect.New())
	}
}

func openSQLStore(ctx context.Context, dsn string) (*SQLStore, error) {
	driverName, dataSource, dbType, err := sqlTarget(dsn)
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(driverName, dataSource)
	if err != nil {
		return nil, fmt.Errorf("credentials: failed to open database: %w", err)
	}
	if dbType == "sqlite" {
		// in-memory sqlite databases exist per connection
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("credentials: failed to connect to database: %w", err)
	}
	return &SQLStore{bun: createBunDB(sqlDB, dbType)}, nil
}

func (s *SQLStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	var row userRow
	err := s.bun.NewSelect().Model(&row).Where("email = ?", email).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("credentials: user lookup failed: %w", err)
	}
	return User{
		ID:           row.ID,
		Email:        row.Email,
		Name:         row.Name.String,
		Role:         row.Role.String,
		PasswordHash: row.Password.String,
	}, nil
}

func (s *SQLStore) Close(context.Context) error {
	return s.bun.Close()
}
