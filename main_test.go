package main

import (
	"bytes"
	"context"
	"database/sql"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/celestia-astro/astroprobe/config"
	"github.com/celestia-astro/astroprobe/framework"
	"github.com/celestia-astro/astroprobe/mockapi"
	"github.com/celestia-astro/astroprobe/report"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// isolate keeps config files and ASTROPROBE_ variables of the developer's environment out
// of the test.
func isolate(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	for _, kv := range os.Environ() {
		if name, _, _ := strings.Cut(kv, "="); strings.HasPrefix(name, "ASTROPROBE_") {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}
	color.NoColor = true
}

func execute(t *testing.T, args ...string) (string, error) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRunAgainstMockAPI(t *testing.T) {
	isolate(t)
	api, err := mockapi.New(mockapi.Options{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	output := filepath.Join(t.TempDir(), "results.yaml")

	var serverURL string
	httphelpers.WithServer(api, func(server *httptest.Server) {
		serverURL = server.URL
		out, err := execute(t, "run", "--url", server.URL+"/", "--delay", "0s", "--output", output)
		require.NoError(t, err, out)
		assert.Contains(t, out, "Connecting to target at "+server.URL+"/api")
		assert.Contains(t, out, "Some tests will be skipped because the following capabilities were not enabled")
		assert.Contains(t, out, "[API health]")
		assert.Contains(t, out, "PASS API health/API root responds (HTTP 200: API is working)")
		assert.Contains(t, out, "Success rate: 100.0%")
		assert.NotContains(t, out, "To run only the failed tests again")
	})

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	r, err := report.Read(f, output)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Summary.Failed)
	assert.NotZero(t, r.Summary.Skipped)
	assert.Equal(t, serverURL, r.Target)
}

func TestRunInParallelAgainstMockAPI(t *testing.T) {
	isolate(t)
	api, err := mockapi.New(mockapi.Options{BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	httphelpers.WithServer(api, func(server *httptest.Server) {
		out, err := execute(t, "run", "--url", server.URL, "--delay", "0s", "--parallel", "4")
		require.NoError(t, err, out)
		assert.Less(t, strings.Index(out, "[API health]"), strings.Index(out, "[error handling]"))
	})
}

func TestRunReportsFailuresAndRerunCommand(t *testing.T) {
	isolate(t)
	handler := httphelpers.HandlerWithResponse(500, nil, []byte("internal error"))

	httphelpers.WithServer(handler, func(server *httptest.Server) {
		out, err := execute(t, "run", "--url", server.URL, "--delay", "0s", "--run", "^API health/")
		assert.ErrorIs(t, err, errSilentFailure)
		assert.Contains(t, out, "FAIL API health/API root responds (HTTP 500: internal error)")
		assert.Contains(t, out, "Success rate: 0.0%")
		assert.Contains(t, out, "To run only the failed tests again:")
		assert.Contains(t, out, "--run '^API health/API root responds(/|$)'")
	})
}

func TestRunRequiresURL(t *testing.T) {
	isolate(t)
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no target URL")
}

func TestRerunCommand(t *testing.T) {
	cfg := config.Config{
		BaseURL:       "https://preview.example.com",
		Capabilities:  []string{"writes"},
		WebhookSecret: "whsec_secret",
	}
	failures := []framework.TestResult{
		{TestID: framework.TestID{Path: []string{"client portal", "profile"}}},
		{TestID: framework.TestID{Path: []string{"admin portal"}}},
		{TestID: framework.TestID{Path: []string{"admin portal", "stats"}}},
	}
	cmd := rerunCommand("astroprobe", cfg, "/etc/astro test.yaml", failures)
	assert.Equal(t, "astroprobe run --url https://preview.example.com --config '/etc/astro test.yaml'"+
		" --capability writes --run '^client portal/profile(/|$)' --run '^admin portal(/|$)'", cmd)
	assert.NotContains(t, cmd, "whsec_secret")
}

func TestRenderSummary(t *testing.T) {
	results := framework.Run(framework.RunParams{}, func(c *framework.Context) {
		c.Run("a", func(c *framework.Context) {})
		c.Run("b", func(c *framework.Context) {
			c.Detailf("HTTP 500: boom")
			c.Errorf("failed")
		})
		c.Run("c", func(c *framework.Context) { c.Skip() })
	})
	summary := renderSummary(results)
	assert.Contains(t, summary, "Total:   3")
	assert.Contains(t, summary, "Passed:  1")
	assert.Contains(t, summary, "Failed:  1")
	assert.Contains(t, summary, "Skipped: 1")
	assert.Contains(t, summary, "Success rate: 50.0%")
	assert.Contains(t, summary, "b: HTTP 500: boom")
}

func TestConsoleTestLogger(t *testing.T) {
	color.NoColor = true
	var out bytes.Buffer
	logger := &ConsoleTestLogger{Out: &out, DebugOutputOnFailure: true}
	suite := framework.TestID{Path: []string{"API health"}}
	leaf := suite.Plus("API root responds")
	debug := framework.CapturedOutput{{Time: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC), Message: ">> GET /api"}}

	logger.TestStarted(suite)
	logger.TestStarted(leaf)
	logger.TestError(leaf, assert.AnError)
	logger.TestFinished(leaf, true, "HTTP 500: boom", debug)
	logger.TestFinished(leaf, false, "", debug)
	logger.TestSkipped(leaf, "capability \"email\" is not enabled")

	assert.Equal(t, "[API health]\n"+
		"    "+assert.AnError.Error()+"\n"+
		"  FAIL API health/API root responds (HTTP 500: boom)\n"+
		"    DEBUG [2025-01-02 03:04:05.000] >> GET /api\n"+
		"  PASS API health/API root responds\n"+
		"  SKIP API health/API root responds (capability \"email\" is not enabled)\n",
		out.String())
}

func createUserStore(t *testing.T, users map[string]string) string {
	path := filepath.Join(t.TempDir(), "users.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`CREATE TABLE users (id TEXT PRIMARY KEY, email TEXT, name TEXT, role TEXT, password TEXT)`)
	require.NoError(t, err)
	i := 0
	for email, password := range users {
		i++
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
		require.NoError(t, err)
		_, err = db.Exec(`INSERT INTO users (id, email, name, role, password) VALUES (?, ?, ?, ?, ?)`,
			"u"+string(rune('0'+i)), email, "User", nil, string(hash))
		require.NoError(t, err)
	}
	return "sqlite://" + path
}

func TestVerifyCredentials(t *testing.T) {
	isolate(t)
	dsn := createUserStore(t, map[string]string{"client@example.com": "correct-horse"})

	out, err := execute(t, "verify-credentials", "--dsn", dsn, "--email", "client@example.com", "--password", "correct-horse")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Role:         (none, defaults to client)")
	assert.Contains(t, out, "Sign-in would be accepted as client@example.com (id u1, role client)")

	out, err = execute(t, "verify-credentials", "--dsn", dsn, "--email", "client@example.com", "--password", "wrong")
	assert.ErrorIs(t, err, errSilentFailure)
	assert.Contains(t, out, "Sign-in would be rejected")

	out, err = execute(t, "verify-credentials", "--dsn", dsn, "--email", "nobody@example.com", "--password", "x")
	assert.ErrorIs(t, err, errSilentFailure)
	assert.Contains(t, out, "No account found for nobody@example.com")
}

func TestVerifyCredentialsReadsPasswordFromInput(t *testing.T) {
	isolate(t)
	dsn := createUserStore(t, map[string]string{"client@example.com": "correct-horse"})
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(strings.NewReader("correct-horse\n"))
	cmd.SetArgs([]string{"verify-credentials", "--dsn", dsn, "--email", "client@example.com"})
	require.NoError(t, cmd.Execute(), out.String())
	assert.Contains(t, out.String(), "Sign-in would be accepted")
}

func TestVerifyCredentialsRequiresStore(t *testing.T) {
	isolate(t)
	_, err := execute(t, "verify-credentials", "--email", "client@example.com", "--password", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no user store")
}

func TestAuditPasswords(t *testing.T) {
	isolate(t)
	dsn := createUserStore(t, map[string]string{"weak@example.com": "letmein"})
	dir := t.TempDir()
	candidates := filepath.Join(dir, "candidates.txt")
	require.NoError(t, os.WriteFile(candidates, []byte("# common\n\nhunter2\nletmein\n"), 0o600))

	out, err := execute(t, "audit-passwords", "--dsn", dsn, "--email", "weak@example.com,nobody@example.com",
		"--candidates", candidates)
	assert.ErrorIs(t, err, errSilentFailure)
	assert.Contains(t, out, "weak@example.com: WEAK PASSWORD")
	assert.Contains(t, out, "nobody@example.com: not found")
	assert.Contains(t, out, "1 of 2 accounts have a weak password")
	assert.NotContains(t, out, "letmein")

	out, err = execute(t, "audit-passwords", "--dsn", dsn, "--email", "weak@example.com",
		"--candidates", writeFile(t, dir, "strong.txt", "hunter2\n"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "weak@example.com: ok")
}

func TestShowConfigHidesSecrets(t *testing.T) {
	isolate(t)
	path := writeFile(t, t.TempDir(), "astroprobe.yaml", `
base_url: https://preview.example.com
client:
  email: client@example.com
  password: hunter2
webhook_secret: whsec_123
user_store:
  dsn: postgres://app:dbpass@db/astro
`)
	out, err := execute(t, "--config", path, "show-config")
	require.NoError(t, err, out)
	assert.Contains(t, out, "# config file: "+path)
	assert.Contains(t, out, "base_url: https://preview.example.com")
	assert.Contains(t, out, "email: client@example.com")
	assert.Contains(t, out, "request_timeout: 10s")
	for _, secret := range []string{"hunter2", "whsec_123", "dbpass"} {
		assert.NotContains(t, out, secret)
	}
}

func TestServeMock(t *testing.T) {
	isolate(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	out := &lockedBuffer{}
	cmd := newRootCmd()
	cmd.SetErr(out)
	go func() {
		done <- serveMock(ctx, cmd, config.Config{}, "localhost:0")
	}()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "Mock API listening") },
		5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.Fail(t, "mock server did not shut down")
	}
	assert.Contains(t, out.String(), demoClient.Email)
}

type lockedBuffer struct {
	buf  bytes.Buffer
	lock sync.Mutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

func writeFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
