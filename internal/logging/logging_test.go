package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	var buf bytes.Buffer
	l, closer, err := New(Config{Level: WarnLevel, Output: &buf})
	require.NoError(t, err)
	defer closer.Close()

	l.Info("hidden")
	l.Warn("shown", "key", "value")
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "value")
}

func TestNew_JSONWith(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := New(Config{Level: DebugLevel, Output: &buf, JSON: true})
	require.NoError(t, err)

	l.With("component", "memory").Debug("compressed")
	assert.Contains(t, buf.String(), `"component":"memory"`)
	assert.Contains(t, buf.String(), `"msg":"compressed"`)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "wkagent.log")
	l, closer, err := New(Config{File: path})
	require.NoError(t, err)
	l.Error("to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("x")
	assert.NotNil(t, l.With("a", 1))
}

func TestSetLevel_AppliesToDerivedLoggers(t *testing.T) {
	var buf bytes.Buffer
	l, _, err := New(Config{Level: InfoLevel, Output: &buf})
	require.NoError(t, err)
	child := l.With("component", "engine")

	child.Debug("hidden")
	assert.True(t, SetLevel(l, DebugLevel))
	child.Debug("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.False(t, SetLevel(Nop(), DebugLevel))
}
