package encapdoc

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 3, 14, 15, 9, 26, 535000000, time.UTC)

func fixedClock() time.Time { return fixedNow }

// testConfig converts input into a fresh output file under t.TempDir()
func testConfig(t *testing.T, kind DocumentKind, input string) Config {
	t.Helper()
	return Config{
		Kind:       kind,
		InputPath:  input,
		OutputPath: filepath.Join(t.TempDir(), "out.dcm"),
	}
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func newEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg, WithClock(fixedClock))
	require.NoError(t, err)
	return e
}

func stringsReader(s string) *strings.Reader {
	return strings.NewReader(s)
}
