package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, 4.0, s.MaxAreaDeg2)
	assert.Equal(t, 0.25, s.TileAreaDeg2)
	assert.Equal(t, 2, s.PollIntervalSeconds)
	assert.NotEmpty(t, s.InstallID)
	assert.NoError(t, s.Validate())
}

func TestMergeDefaultsFillsMissingFields(t *testing.T) {
	s := &UserSettings{BackendURL: "http://maps.example.com"}
	mergeDefaults(s)

	assert.Equal(t, "http://maps.example.com", s.BackendURL)
	assert.Equal(t, 4.0, s.MaxAreaDeg2)
	assert.Equal(t, 10, s.MaxHistoryEntries)
	assert.NotEmpty(t, s.InstallID)
}

func TestMergeDefaultsKeepsInstallID(t *testing.T) {
	s := &UserSettings{InstallID: "existing-id"}
	mergeDefaults(s)
	assert.Equal(t, "existing-id", s.InstallID)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv(EnvBackendURL, "http://override:9000")
	t.Setenv(EnvMaxAreaDeg2, "6.5")
	t.Setenv(EnvTileAreaDeg2, "0.5")

	s := DefaultSettings()
	applyEnvOverrides(s)

	assert.Equal(t, "http://override:9000", s.BackendURL)
	assert.Equal(t, 6.5, s.MaxAreaDeg2)
	assert.Equal(t, 0.5, s.TileAreaDeg2)
}

func TestApplyEnvOverridesIgnoresGarbage(t *testing.T) {
	t.Setenv(EnvMaxAreaDeg2, "not-a-number")
	t.Setenv(EnvTileAreaDeg2, "-1")

	s := DefaultSettings()
	applyEnvOverrides(s)

	assert.Equal(t, 4.0, s.MaxAreaDeg2)
	assert.Equal(t, 0.25, s.TileAreaDeg2)
}

func TestValidate(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	bad := *s
	bad.TileAreaDeg2 = 8.0 // above MaxAreaDeg2
	assert.Error(t, bad.Validate())

	bad = *s
	bad.PollIntervalSeconds = 0
	assert.Error(t, bad.Validate())

	bad = *s
	bad.DownloadPath = ""
	assert.Error(t, bad.Validate())
}
