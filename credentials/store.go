// Package credentials checks sign-in credentials directly against the application's user
// store, bypassing the HTTP sign-in flow. It is used to tell apart a broken sign-in
// endpoint from an account whose stored password does not match.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUserNotFound     = errors.New("no user found with this email")
	ErrNoPasswordHash   = errors.New("user has no password hash")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrMissingArguments = errors.New("email and password required")
)

// User is an account record as stored by the application. PasswordHash is a bcrypt hash,
// or empty for accounts created through an OAuth provider.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         string
	PasswordHash string
}

// Store looks up users by email address.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (User, error)
	Close(ctx context.Context) error
}

// OpenStore connects to a user store, choosing the backend from the DSN scheme:
// mongodb:// and mongodb+srv:// for MongoDB, postgres:// or postgresql:// for
// PostgreSQL, mysql:// for MySQL, and sqlite:// or file: for SQLite. A mysql:// DSN may
// be in URL form (mysql://u:p@db:3306/astro) or in the driver's own form
// (mysql://u:p@tcp(db:3306)/astro). The database
// parameter names the MongoDB database; if empty, the path of the DSN is used.
func OpenStore(ctx context.Context, dsn, database string) (Store, error) {
	scheme, _, ok := strings.Cut(dsn, ":")
	if !ok {
		return nil, fmt.Errorf("credentials: DSN %q has no scheme", RedactDSN(dsn))
	}
	switch strings.ToLower(scheme) {
	case "mongodb", "mongodb+srv":
		return openMongoStore(ctx, dsn, database)
	case "postgres", "postgresql", "mysql", "sqlite", "file":
		return openSQLStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("credentials: unsupported user store scheme %q", scheme)
	}
}

// RedactDSN hides the password part of a URL-style DSN for log output.
func RedactDSN(dsn string) string {
	schemeEnd := strings.Index(dsn, "://")
	at := strings.LastIndex(dsn, "@")
	if schemeEnd < 0 || at < schemeEnd {
		return dsn
	}
	userInfo := dsn[schemeEnd+3 : at]
	if user, _, hasPassword := strings.Cut(userInfo, ":"); hasPassword {
		return dsn[:schemeEnd+3] + user + ":***" + dsn[at:]
	}
	return dsn
}
