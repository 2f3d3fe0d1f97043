package credentials

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const defaultRole = "client"

// DefaultWeakPasswords is a short list of common passwords for AuditWeakPasswords.
var DefaultWeakPasswords = []string{
	"password",
	"password1",
	"password123",
	"123456",
	"12345678",
	"qwerty",
	"letmein",
	"admin",
	"admin123",
	"changeme",
	"welcome",
}

// Principal is the identity produced by a successful Authorize.
type Principal struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// Inspection describes what the store holds for an email address, without revealing
// the hash itself.
type Inspection struct {
	Email       string
	Found       bool
	ID          string
	Name        string
	Role        string
	HasPassword bool
	HashLength  int
}

// AuditFinding is the result of checking one account against a list of weak passwords.
type AuditFinding struct {
	Email       string
	Found       bool
	HasPassword bool
	Weak        bool
	Err         error
}

// Verifier runs credential checks against a Store.
type Verifier struct {
	store Store
}

func NewVerifier(store Store) *Verifier {
	return &Verifier{store: store}
}

// Inspect looks up an account. A missing account is not an error.
func (v *Verifier) Inspect(ctx context.Context, email string) (Inspection, error) {
	ret := Inspection{Email: email}
	u, err := v.store.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return ret, nil
	}
	if err != nil {
		return ret, err
	}
	ret.Found = true
	ret.ID = u.ID
	ret.Name = u.Name
	ret.Role = u.Role
	ret.HasPassword = u.PasswordHash != ""
	ret.HashLength = len(u.PasswordHash)
	return ret, nil
}

// Authorize performs the same checks as the application's credentials sign-in: the user
// must exist, have a password hash, and the password must match it. The role defaults to
// "client" when the account has none.
func (v *Verifier) Authorize(ctx context.Context, email, password string) (Principal, error) {
	if email == "" || password == "" {
		return Principal{}, ErrMissingArguments
	}
	u, err := v.store.FindUserByEmail(ctx, email)
	if err != nil {
		return Principal{}, err
	}
	if u.PasswordHash == "" {
		return Principal{}, ErrNoPasswordHash
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return Principal{}, ErrInvalidPassword
		}
		return Principal{}, fmt.Errorf("credentials: stored hash is unusable: %w", err)
	}
	role := u.Role
	if role == "" {
		role = defaultRole
	}
	return Principal{ID: u.ID, Email: u.Email, Name: u.Name, Role: role}, nil
}

// AuditWeakPasswords reports, for each account, whether its password is one of the
// candidates. It never reports which candidate matched.
func (v *Verifier) AuditWeakPasswords(ctx context.Context, emails, candidates []string) ([]AuditFinding, error) {
	if len(emails) == 0 {
		return nil, errors.New("credentials: no accounts to audit")
	}
	if len(candidates) == 0 {
		candidates = DefaultWeakPasswords
	}
	ret := make([]AuditFinding, 0, len(emails))
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			return ret, err
		}
		finding := AuditFinding{Email: email}
		u, err := v.store.FindUserByEmail(ctx, email)
		switch {
		case errors.Is(err, ErrUserNotFound):
		case err != nil:
			finding.Err = err
		default:
			finding.Found = true
			finding.HasPassword = u.PasswordHash != ""
			if finding.HasPassword {
				finding.Weak = matchesAny([]byte(u.PasswordHash), candidates)
			}
		}
		ret = append(ret, finding)
	}
	return ret, nil
}

func matchesAny(hash []byte, candidates []string) bool {
	for _, c := range candidates {
		if bcrypt.CompareHashAndPassword(hash, []byte(c)) == nil {
			return true
		}
	}
	return false
}
