package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError is a single invalid setting.
type ValidationError struct {
	Field   string // config key, e.g. "decompose.min_region_size"
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects every invalid setting found by Validate.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// Validate checks c and returns all validation errors found.
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field string, value any, msg string) {
		errs = append(errs, ValidationError{Field: field, Value: value, Message: msg})
	}

	if !isValidLogLevel(c.Log.Level) {
		add("log.level", c.Log.Level, "must be one of "+strings.Join(ValidLogLevels(), ", "))
	}
	if !slices.Contains(ValidLogFormats(), strings.ToLower(c.Log.Format)) {
		add("log.format", c.Log.Format, "must be one of "+strings.Join(ValidLogFormats(), ", "))
	}

	if c.Database.Path == "" {
		add("database.path", c.Database.Path, "must not be empty")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", c.Server.Port, "must be between 1 and 65535")
	}
	if c.Server.PathRatePerMinute < 1 {
		add("server.path_rate_per_minute", c.Server.PathRatePerMinute, "must be at least 1")
	}

	g := c.Generate
	if g.Width < 8 || g.Height < 8 {
		add("generate.width", fmt.Sprintf("%dx%d", g.Width, g.Height), "map must be at least 8x8")
	}
	if g.Levels < 1 {
		add("generate.levels", g.Levels, "must be at least 1")
	}
	if g.WaterLevel < 0 || g.WaterLevel >= 1 {
		add("generate.water_level", g.WaterLevel, "must be in [0, 1)")
	}

	d := c.Decompose
	if d.RegionEpsilon < 1 {
		add("decompose.region_epsilon", d.RegionEpsilon, "must be at least 1 so adjacent cells cluster")
	}
	if d.RegionMinPoints < 1 {
		add("decompose.region_min_points", d.RegionMinPoints, "must be at least 1")
	}
	if d.MinRegionSize < 1 {
		add("decompose.min_region_size", d.MinRegionSize, "must be at least 1")
	}
	if d.MaxComboSize < 0 {
		add("decompose.max_combo_size", d.MaxComboSize, "must not be negative (0 means no cap)")
	}
	if d.ComboWarnThreshold < 1 {
		add("decompose.combo_warn_threshold", d.ComboWarnThreshold, "must be at least 1")
	}
	if d.ObstructionInsideRatio < 0 || d.ObstructionInsideRatio > 1 {
		add("decompose.obstruction_inside_ratio", d.ObstructionInsideRatio, "must be in [0, 1]")
	}
	if d.PaletteSize < 2 {
		add("decompose.palette_size", d.PaletteSize, "must be at least 2 (color 0 is reserved for ramps)")
	}
	if d.ExpandBlockRadius < 0 {
		add("decompose.expand_block_radius", d.ExpandBlockRadius, "must not be negative")
	}

	if c.Ramps.Epsilon <= 0 {
		add("ramps.epsilon", c.Ramps.Epsilon, "must be positive")
	}
	if c.Chokes.MaxLength < 1 {
		add("chokes.max_length", c.Chokes.MaxLength, "must be at least 1")
	}
	if c.Pathing.SnapRadius < 0 {
		add("pathing.snap_radius", c.Pathing.SnapRadius, "must not be negative")
	}

	return errs
}
