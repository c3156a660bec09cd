package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/regionmap/internal/regions"
	"github.com/talgya/regionmap/internal/terrain"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Validate())
	assert.Equal(t, regions.DefaultConfig(), cfg.RegionsConfig())
	assert.Equal(t, terrain.DefaultRampConfig(), cfg.RampConfig())
	assert.Equal(t, terrain.DefaultChokeConfig(), cfg.ChokeConfig())
	assert.Equal(t, "arena", cfg.GenConfig("arena").Name)
}

func TestLoad_Defaults(t *testing.T) {
	resetViper(t)
	SetDefaults()

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestInit_ConfigFileAndEnv(t *testing.T) {
	resetViper(t)
	path := filepath.Join(t.TempDir(), "regionmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
decompose:
  min_region_size: 24
  parallel: false
chokes:
  max_length: 6
`), 0o644))
	t.Setenv("REGIONMAP_SERVER_PORT", "9191")
	t.Setenv("REGIONMAP_DATABASE_PATH", "/tmp/maps.db")

	require.NoError(t, Init(path))
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 24, cfg.Decompose.MinRegionSize)
	assert.False(t, cfg.Decompose.Parallel)
	assert.Equal(t, 6.0, cfg.Chokes.MaxLength)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "/tmp/maps.db", cfg.Database.Path)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().Decompose.RegionEpsilon, cfg.Decompose.RegionEpsilon)
}

func TestInit_MissingExplicitFile(t *testing.T) {
	resetViper(t)
	assert.Error(t, Init(filepath.Join(t.TempDir(), "nope.yaml")))
}

func TestLoad_Invalid(t *testing.T) {
	resetViper(t)
	SetDefaults()
	viper.Set("log.level", "loud")
	viper.Set("decompose.palette_size", 1)

	_, err := Load()
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 2)
	assert.Equal(t, "log.level", verrs[0].Field)
	assert.Equal(t, "decompose.palette_size", verrs[1].Field)
	assert.Contains(t, err.Error(), "2 validation errors")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"bad format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"empty db", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"rate", func(c *Config) { c.Server.PathRatePerMinute = 0 }, "server.path_rate_per_minute"},
		{"tiny map", func(c *Config) { c.Generate.Width = 4 }, "generate.width"},
		{"water", func(c *Config) { c.Generate.WaterLevel = 1 }, "generate.water_level"},
		{"epsilon", func(c *Config) { c.Decompose.RegionEpsilon = 0.5 }, "decompose.region_epsilon"},
		{"ratio", func(c *Config) { c.Decompose.ObstructionInsideRatio = 1.5 }, "decompose.obstruction_inside_ratio"},
		{"combo", func(c *Config) { c.Decompose.MaxComboSize = -1 }, "decompose.max_combo_size"},
		{"combo budget", func(c *Config) { c.Decompose.ComboWarnThreshold = 0 }, "decompose.combo_warn_threshold"},
		{"snap", func(c *Config) { c.Pathing.SnapRadius = -1 }, "pathing.snap_radius"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			errs := cfg.Validate()
			require.Len(t, errs, 1)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}
