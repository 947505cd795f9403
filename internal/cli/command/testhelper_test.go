package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/vaultgate/internal/core/domain"
)

// sha256("hello")
const helloHex = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

const anchorsYAML = `ledger:
  - id: blob1
    digest: ` + helloHex + `
manifest:
  - key: mode
    value: strict
`

// syncBuffer is a bytes.Buffer safe for a writer and a concurrent reader.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

// testApp returns the app wired to in-memory writers. Exit codes come back
// as errors instead of terminating the test binary.
func testApp() (*cli.App, *syncBuffer, *syncBuffer) {
	app := App()
	stdout, stderr := &syncBuffer{}, &syncBuffer{}
	app.Writer = stdout
	app.ErrWriter = stderr
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app, stdout, stderr
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	app, stdout, stderr := testApp()
	err := app.RunContext(context.Background(), append([]string{"vaultgate"}, args...))
	return stdout.String(), stderr.String(), err
}

// mustRun runs args and fails the test on any error.
func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := runCLI(t, args...)
	if err != nil {
		t.Fatalf("vaultgate %s: %v\nstderr: %s", strings.Join(args, " "), err, stderr)
	}
	return stdout
}

func exitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ec cli.ExitCoder
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return ExitError
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTestBlob(t *testing.T, path, id, state, signature string) {
	t.Helper()
	blob := &domain.VaultedBlob{
		ID:          id,
		Timestamp:   1700000000000,
		StateVector: []byte(state),
		Metadata:    map[string]string{"core": "nes"},
		Signature:   signature,
	}
	if err := writeBlobFile(path, blob, nil); err != nil {
		t.Fatal(err)
	}
}

// fixture is a trust anchor file and a matching blob file.
type fixture struct {
	dir   string
	trust string
	blob  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:   dir,
		trust: writeFile(t, dir, "anchors.yaml", anchorsYAML),
		blob:  filepath.Join(dir, "blob1.vgb"),
	}
	writeTestBlob(t, f.blob, "blob1", "hello", "sig")
	return f
}
