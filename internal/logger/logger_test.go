package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesJSON(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	var buf bytes.Buffer
	log, err := New(Options{Out: &buf})
	require.NoError(t, err)

	log.Debugw("hidden at info level")
	zap.S().Infow("via global", "k", "v")
	require.NoError(t, log.Sync())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, buf.String())

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	assert.Equal(t, "info", rec["level"])
	assert.Equal(t, "via global", rec["msg"])
	assert.Equal(t, "v", rec["k"])
}

func TestNewFileSink(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	log, err := New(Options{Dir: dir, Debug: true, Out: &buf})
	require.NoError(t, err)

	log.Debugw("debug line")
	_ = log.Sync()

	data, err := os.ReadFile(filepath.Join(dir, time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug line")
	assert.Contains(t, buf.String(), "debug line")
}
