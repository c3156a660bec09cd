// Package config loads regionmap settings from a YAML file, REGIONMAP_*
// environment variables, and command-line flags via viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/viper"

	"github.com/talgya/regionmap/internal/grid"
	"github.com/talgya/regionmap/internal/pathing"
	"github.com/talgya/regionmap/internal/regions"
	"github.com/talgya/regionmap/internal/terrain"
)

// EnvPrefix is prepended to every environment override, e.g.
// REGIONMAP_SERVER_PORT.
const EnvPrefix = "REGIONMAP"

// Config is the complete set of regionmap settings.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Server    ServerConfig    `mapstructure:"server"`
	Generate  GenerateConfig  `mapstructure:"generate"`
	Decompose DecomposeConfig `mapstructure:"decompose"`
	Ramps     RampConfig      `mapstructure:"ramps"`
	Chokes    ChokeConfig     `mapstructure:"chokes"`
	Pathing   PathingConfig   `mapstructure:"pathing"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // text or json
}

// DatabaseConfig locates the region graph store.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port              int    `mapstructure:"port"`
	AdminKey          string `mapstructure:"admin_key"`
	PathRatePerMinute int    `mapstructure:"path_rate_per_minute"`
}

// GenerateConfig controls procedural map generation.
type GenerateConfig struct {
	Width         int     `mapstructure:"width"`
	Height        int     `mapstructure:"height"`
	Seed          int64   `mapstructure:"seed"`
	Levels        int     `mapstructure:"levels"`
	WaterLevel    float64 `mapstructure:"water_level"`
	Frequency     float64 `mapstructure:"frequency"`
	Octaves       int     `mapstructure:"octaves"`
	RampsPerLevel int     `mapstructure:"ramps_per_level"`
	RampSpacing   int     `mapstructure:"ramp_spacing"`
	Rocks         int     `mapstructure:"rocks"`
	Expansions    int     `mapstructure:"expansions"`
}

// DecomposeConfig mirrors regions.Config.
type DecomposeConfig struct {
	RegionEpsilon          float64 `mapstructure:"region_epsilon"`
	RegionMinPoints        int     `mapstructure:"region_min_points"`
	HeightScale            float64 `mapstructure:"height_scale"`
	MinRegionSize          int     `mapstructure:"min_region_size"`
	RampMinSize            int     `mapstructure:"ramp_min_size"`
	ObstacleMinSize        int     `mapstructure:"obstacle_min_size"`
	MaxComboSize           int     `mapstructure:"max_combo_size"`
	ComboWarnThreshold     int     `mapstructure:"combo_warn_threshold"`
	ObstructionInsideRatio float64 `mapstructure:"obstruction_inside_ratio"`
	PaletteSize            int     `mapstructure:"palette_size"`
	ExpandBlockRadius      float64 `mapstructure:"expand_block_radius"`
	Parallel               bool    `mapstructure:"parallel"`
}

// RampConfig mirrors terrain.RampConfig.
type RampConfig struct {
	Epsilon   float64 `mapstructure:"epsilon"`
	MinPoints int     `mapstructure:"min_points"`
	MinSize   int     `mapstructure:"min_size"`
}

// ChokeConfig mirrors terrain.ChokeConfig.
type ChokeConfig struct {
	MaxLength      float64 `mapstructure:"max_length"`
	MaxProbe       int     `mapstructure:"max_probe"`
	Widening       int     `mapstructure:"widening"`
	SuppressRadius int     `mapstructure:"suppress_radius"`
}

// PathingConfig mirrors pathing.Config.
type PathingConfig struct {
	SnapRadius int `mapstructure:"snap_radius"`
}

// Default returns the built-in settings. Analysis parameters come from the
// packages that own them.
func Default() *Config {
	gen := grid.DefaultGenConfig()
	dec := regions.DefaultConfig()
	ramps := terrain.DefaultRampConfig()
	chokes := terrain.DefaultChokeConfig()

	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Database: DatabaseConfig{
			Path: "regionmap.db",
		},
		Server: ServerConfig{
			Port:              8080,
			PathRatePerMinute: 120,
		},
		Generate: GenerateConfig{
			Width:         gen.Width,
			Height:        gen.Height,
			Seed:          gen.Seed,
			Levels:        gen.Levels,
			WaterLevel:    gen.WaterLevel,
			Frequency:     gen.Frequency,
			Octaves:       gen.Octaves,
			RampsPerLevel: gen.RampsPerLevel,
			RampSpacing:   gen.RampSpacing,
			Rocks:         gen.Rocks,
			Expansions:    gen.Expansions,
		},
		Decompose: DecomposeConfig{
			RegionEpsilon:          dec.RegionEpsilon,
			RegionMinPoints:        dec.RegionMinPoints,
			HeightScale:            dec.HeightScale,
			MinRegionSize:          dec.MinRegionSize,
			RampMinSize:            dec.RampMinSize,
			ObstacleMinSize:        dec.ObstacleMinSize,
			MaxComboSize:           dec.MaxComboSize,
			ComboWarnThreshold:     dec.ComboWarnThreshold,
			ObstructionInsideRatio: dec.ObstructionInsideRatio,
			PaletteSize:            dec.PaletteSize,
			ExpandBlockRadius:      dec.ExpandBlockRadius,
			Parallel:               dec.Parallel,
		},
		Ramps: RampConfig{
			Epsilon:   ramps.Epsilon,
			MinPoints: ramps.MinPoints,
			MinSize:   ramps.MinSize,
		},
		Chokes: ChokeConfig{
			MaxLength:      chokes.MaxLength,
			MaxProbe:       chokes.MaxProbe,
			Widening:       chokes.Widening,
			SuppressRadius: chokes.SuppressRadius,
		},
		Pathing: PathingConfig{
			SnapRadius: pathing.DefaultConfig().SnapRadius,
		},
	}
}

// SetDefaults registers every default with viper so that environment
// variables can override keys that no config file mentions.
func SetDefaults() {
	d := Default()

	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)

	viper.SetDefault("database.path", d.Database.Path)

	viper.SetDefault("server.port", d.Server.Port)
	viper.SetDefault("server.admin_key", d.Server.AdminKey)
	viper.SetDefault("server.path_rate_per_minute", d.Server.PathRatePerMinute)

	viper.SetDefault("generate.width", d.Generate.Width)
	viper.SetDefault("generate.height", d.Generate.Height)
	viper.SetDefault("generate.seed", d.Generate.Seed)
	viper.SetDefault("generate.levels", d.Generate.Levels)
	viper.SetDefault("generate.water_level", d.Generate.WaterLevel)
	viper.SetDefault("generate.frequency", d.Generate.Frequency)
	viper.SetDefault("generate.octaves", d.Generate.Octaves)
	viper.SetDefault("generate.ramps_per_level", d.Generate.RampsPerLevel)
	viper.SetDefault("generate.ramp_spacing", d.Generate.RampSpacing)
	viper.SetDefault("generate.rocks", d.Generate.Rocks)
	viper.SetDefault("generate.expansions", d.Generate.Expansions)

	viper.SetDefault("decompose.region_epsilon", d.Decompose.RegionEpsilon)
	viper.SetDefault("decompose.region_min_points", d.Decompose.RegionMinPoints)
	viper.SetDefault("decompose.height_scale", d.Decompose.HeightScale)
	viper.SetDefault("decompose.min_region_size", d.Decompose.MinRegionSize)
	viper.SetDefault("decompose.ramp_min_size", d.Decompose.RampMinSize)
	viper.SetDefault("decompose.obstacle_min_size", d.Decompose.ObstacleMinSize)
	viper.SetDefault("decompose.max_combo_size", d.Decompose.MaxComboSize)
	viper.SetDefault("decompose.combo_warn_threshold", d.Decompose.ComboWarnThreshold)
	viper.SetDefault("decompose.obstruction_inside_ratio", d.Decompose.ObstructionInsideRatio)
	viper.SetDefault("decompose.palette_size", d.Decompose.PaletteSize)
	viper.SetDefault("decompose.expand_block_radius", d.Decompose.ExpandBlockRadius)
	viper.SetDefault("decompose.parallel", d.Decompose.Parallel)

	viper.SetDefault("ramps.epsilon", d.Ramps.Epsilon)
	viper.SetDefault("ramps.min_points", d.Ramps.MinPoints)
	viper.SetDefault("ramps.min_size", d.Ramps.MinSize)

	viper.SetDefault("chokes.max_length", d.Chokes.MaxLength)
	viper.SetDefault("chokes.max_probe", d.Chokes.MaxProbe)
	viper.SetDefault("chokes.widening", d.Chokes.Widening)
	viper.SetDefault("chokes.suppress_radius", d.Chokes.SuppressRadius)

	viper.SetDefault("pathing.snap_radius", d.Pathing.SnapRadius)
}

// Init points viper at the config file (or the default search path),
// enables REGIONMAP_* environment overrides, and registers defaults. A
// missing config file is not an error; a malformed one is.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("regionmap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath(ConfigDir())
	}

	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load reads the configuration from viper into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the per-user config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "regionmap")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".regionmap"
	}
	return filepath.Join(home, ".config", "regionmap")
}

// RegionsConfig converts to the decomposer's parameters.
func (c *Config) RegionsConfig() regions.Config {
	d := c.Decompose
	return regions.Config{
		RegionEpsilon:          d.RegionEpsilon,
		RegionMinPoints:        d.RegionMinPoints,
		HeightScale:            d.HeightScale,
		MinRegionSize:          d.MinRegionSize,
		RampMinSize:            d.RampMinSize,
		ObstacleMinSize:        d.ObstacleMinSize,
		MaxComboSize:           d.MaxComboSize,
		ComboWarnThreshold:     d.ComboWarnThreshold,
		ObstructionInsideRatio: d.ObstructionInsideRatio,
		PaletteSize:            d.PaletteSize,
		ExpandBlockRadius:      d.ExpandBlockRadius,
		Parallel:               d.Parallel,
	}
}

// RampConfig converts to the ramp finder's parameters.
func (c *Config) RampConfig() terrain.RampConfig {
	return terrain.RampConfig{
		Epsilon:   c.Ramps.Epsilon,
		MinPoints: c.Ramps.MinPoints,
		MinSize:   c.Ramps.MinSize,
	}
}

// ChokeConfig converts to the choke finder's parameters.
func (c *Config) ChokeConfig() terrain.ChokeConfig {
	return terrain.ChokeConfig{
		MaxLength:      c.Chokes.MaxLength,
		MaxProbe:       c.Chokes.MaxProbe,
		Widening:       c.Chokes.Widening,
		SuppressRadius: c.Chokes.SuppressRadius,
	}
}

// PathingConfig converts to the pathfinder's parameters.
func (c *Config) PathingConfig() pathing.Config {
	return pathing.Config{SnapRadius: c.Pathing.SnapRadius}
}

// GenConfig converts to map generation parameters for the named map.
func (c *Config) GenConfig(name string) grid.GenConfig {
	g := c.Generate
	return grid.GenConfig{
		Name:          name,
		Width:         g.Width,
		Height:        g.Height,
		Seed:          g.Seed,
		Levels:        g.Levels,
		WaterLevel:    g.WaterLevel,
		Frequency:     g.Frequency,
		Octaves:       g.Octaves,
		RampsPerLevel: g.RampsPerLevel,
		RampSpacing:   g.RampSpacing,
		Rocks:         g.Rocks,
		Expansions:    g.Expansions,
	}
}

// ValidLogLevels returns the accepted log levels.
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidLogFormats returns the accepted log formats.
func ValidLogFormats() []string {
	return []string{"text", "json"}
}

func isValidLogLevel(level string) bool {
	return slices.Contains(ValidLogLevels(), strings.ToLower(level))
}
