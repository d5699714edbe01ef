package driver

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfigKeepsDefaults(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader("digits: 4\nsuites: [checks, more]\n"))
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Digits)
	require.Equal(t, 80, cfg.Width)
	require.Equal(t, []string{"checks", "more"}, cfg.Suites)
	require.Equal(t, ".rcore", cfg.CacheDir)
	require.Equal(t, 4, cfg.InterpreterOptions().Digits)
}

func TestDecodeConfigEmptyDocument(t *testing.T) {
	cfg, err := DecodeConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
}

func TestDecodeConfigRejectsUnknownFields(t *testing.T) {
	_, err := DecodeConfig(strings.NewReader("digitz: 3\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "digitz")
}

func TestDecodeConfigValidates(t *testing.T) {
	_, err := DecodeConfig(strings.NewReader("digits: 30\nlog_level: loud\n"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	require.Len(t, verr.Issues, 2)
	require.Contains(t, verr.Error(), "digits must be between 1 and 22")
}

func TestFindConfigWalksUpward(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ConfigFileName), []byte("width: 60\n"), 0o644))

	found, err := FindConfig(nested)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, ConfigFileName), found)

	cfg, err := LoadConfigFrom(nested)
	require.NoError(t, err)
	require.Equal(t, 60, cfg.Width)
	require.Equal(t, filepath.Join(root, "tests"), cfg.Resolve("tests"))
}

func TestLoadConfigFromWithoutFile(t *testing.T) {
	dir := t.TempDir()
	_, err := FindConfig(dir)
	if err == nil {
		t.Skip("an rcore.yml exists above the temp directory")
	}
	require.ErrorIs(t, err, ErrConfigNotFound)
	cfg, err := LoadConfigFrom(dir)
	require.NoError(t, err)
	require.Equal(t, "", cfg.Path)
}

func TestNewLogger(t *testing.T) {
	var buf strings.Builder
	logger, err := NewLogger(&buf, "warn", true)
	require.NoError(t, err)
	logger.Info().Msg("hidden")
	logger.Warn().Str("k", "v").Msg("shown")
	require.NotContains(t, buf.String(), "hidden")
	require.Contains(t, buf.String(), `"k":"v"`)

	_, err = NewLogger(&buf, "chatty", false)
	require.Error(t, err)

	level, err := ParseLevel("")
	require.NoError(t, err)
	require.Equal(t, zerolog.InfoLevel, level)
}
