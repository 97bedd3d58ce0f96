package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all pipeline settings. Values come from an optional YAML
// file named by PIPELINE_CONFIG, with environment variables taking
// precedence over the file, and built-in defaults beneath both.
type Config struct {
	TripsPath    string `yaml:"trips_path"`
	ZonesPath    string `yaml:"zones_path"`
	ZonesGeoPath string `yaml:"zones_geo_path"` // optional geometry source
	OutputDir    string `yaml:"output_dir"`

	// DistanceUnit is the unit of the trip source's distance column,
	// "mi" or "km". Miles are converted once at load time.
	DistanceUnit string `yaml:"distance_unit"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// MetricsAddr enables the health/metrics HTTP listener for long
	// runs when non-empty, e.g. ":8080".
	MetricsAddr string `yaml:"metrics_addr"`
}

// Load reads configuration from the optional YAML file and environment
// variables, applying defaults where unset.
func Load() (*Config, error) {
	cfg := &Config{
		TripsPath:    "data/raw/yellow_tripdata.csv",
		ZonesPath:    "data/raw/taxi_zone_lookup.csv",
		ZonesGeoPath: "data/geojson/taxi_zones.geojson",
		OutputDir:    "cleaned_data",
		DistanceUnit: "mi",
		LogLevel:     "info",
		LogFormat:    "json",
	}

	if path := os.Getenv("PIPELINE_CONFIG"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(&cfg.TripsPath, "TRIPS_PATH")
	applyEnv(&cfg.ZonesPath, "ZONES_PATH")
	applyEnv(&cfg.ZonesGeoPath, "ZONES_GEO_PATH")
	applyEnv(&cfg.OutputDir, "OUTPUT_DIR")
	applyEnv(&cfg.DistanceUnit, "DISTANCE_UNIT")
	applyEnv(&cfg.LogLevel, "LOG_LEVEL")
	applyEnv(&cfg.LogFormat, "LOG_FORMAT")
	applyEnv(&cfg.MetricsAddr, "METRICS_ADDR")

	if cfg.TripsPath == "" {
		return nil, errors.New("TRIPS_PATH is required")
	}
	if cfg.ZonesPath == "" {
		return nil, errors.New("ZONES_PATH is required")
	}
	if cfg.OutputDir == "" {
		return nil, errors.New("OUTPUT_DIR is required")
	}
	if cfg.DistanceUnit != "mi" && cfg.DistanceUnit != "km" {
		return nil, fmt.Errorf("invalid DISTANCE_UNIT %q: must be mi or km", cfg.DistanceUnit)
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
