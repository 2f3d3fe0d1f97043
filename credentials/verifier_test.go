package credentials

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{ err error }

func (f failingStore) FindUserByEmail(context.Context, string) (User, error) { return User{}, f.err }
func (f failingStore) Close(context.Context) error                           { return nil }

func testUsers(t *testing.T) []userRow {
	return []userRow{
		{ID: "c1", Email: "client@example.com", Name: nullString("Client"), Password: nullString(hashOf(t, "correct horse"))},
		{ID: "a1", Email: "admin@example.com", Name: nullString("Admin"), Role: nullString("admin"), Password: nullString(hashOf(t, "admin123"))},
		{ID: "g1", Email: "google@example.com", Name: nullString("OAuth"), Role: nullString("client")},
	}
}

func TestAuthorize(t *testing.T) {
	withTestStore(t, testUsers(t), func(s *SQLStore) {
		v := NewVerifier(s)
		ctx := context.Background()

		p, err := v.Authorize(ctx, "client@example.com", "correct horse")
		require.NoError(t, err)
		assert.Equal(t, Principal{ID: "c1", Email: "client@example.com", Name: "Client", Role: "client"}, p)

		p, err = v.Authorize(ctx, "admin@example.com", "admin123")
		require.NoError(t, err)
		assert.Equal(t, "admin", p.Role)

		_, err = v.Authorize(ctx, "client@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidPassword)

		_, err = v.Authorize(ctx, "google@example.com", "anything")
		assert.ErrorIs(t, err, ErrNoPasswordHash)

		_, err = v.Authorize(ctx, "nobody@example.com", "anything")
		assert.ErrorIs(t, err, ErrUserNotFound)

		_, err = v.Authorize(ctx, "", "x")
		assert.ErrorIs(t, err, ErrMissingArguments)
		_, err = v.Authorize(ctx, "client@example.com", "")
		assert.ErrorIs(t, err, ErrMissingArguments)
	})
}

func TestAuthorizeWithCorruptHash(t *testing.T) {
	users := []userRow{{ID: "x", Email: "x@example.com", Password: nullString("not-a-bcrypt-hash")}}
	withTestStore(t, users, func(s *SQLStore) {
		_, err := NewVerifier(s).Authorize(context.Background(), "x@example.com", "pw")
		require.Error(t, err)
		assert.False(t, errors.Is(err, ErrInvalidPassword))
	})
}

func TestInspect(t *testing.T) {
	withTestStore(t, testUsers(t), func(s *SQLStore) {
		v := NewVerifier(s)
		i, err := v.Inspect(context.Background(), "client@example.com")
		require.NoError(t, err)
		assert.True(t, i.Found)
		assert.True(t, i.HasPassword)
		assert.Equal(t, 60, i.HashLength)
		assert.Equal(t, "Client", i.Name)

		i, err = v.Inspect(context.Background(), "google@example.com")
		require.NoError(t, err)
		assert.False(t, i.HasPassword)

		i, err = v.Inspect(context.Background(), "nobody@example.com")
		require.NoError(t, err)
		assert.False(t, i.Found)
	})
}

func TestInspectPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewVerifier(failingStore{err: boom}).Inspect(context.Background(), "a@b.c")
	assert.ErrorIs(t, err, boom)
}

func TestAuditWeakPasswords(t *testing.T) {
	withTestStore(t, testUsers(t), func(s *SQLStore) {
		v := NewVerifier(s)
		findings, err := v.AuditWeakPasswords(context.Background(),
			[]string{"client@example.com", "admin@example.com", "google@example.com", "nobody@example.com"}, nil)
		require.NoError(t, err)
		require.Len(t, findings, 4)

		assert.Equal(t, AuditFinding{Email: "client@example.com", Found: true, HasPassword: true}, findings[0])
		assert.Equal(t, AuditFinding{Email: "admin@example.com", Found: true, HasPassword: true, Weak: true}, findings[1])
		assert.Equal(t, AuditFinding{Email: "google@example.com", Found: true}, findings[2])
		assert.Equal(t, AuditFinding{Email: "nobody@example.com"}, findings[3])

		findings, err = v.AuditWeakPasswords(context.Background(), []string{"client@example.com"}, []string{"correct horse"})
		require.NoError(t, err)
		assert.True(t, findings[0].Weak)
	})
}

func TestAuditWeakPasswordsNeedsAccounts(t *testing.T) {
	_, err := NewVerifier(failingStore{}).AuditWeakPasswords(context.Background(), nil, nil)
	assert.Error(t, err)
}

func TestAuditWeakPasswordsRecordsStoreErrors(t *testing.T) {
	boom := errors.New("timeout")
	findings, err := NewVerifier(failingStore{err: boom}).AuditWeakPasswords(context.Background(), []string{"a@b.c"}, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, findings[0].Err, boom)
}
