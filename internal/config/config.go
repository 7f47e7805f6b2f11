package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig           `yaml:"store" mapstructure:"store"`
	Places     PlacesConfig          `yaml:"places" mapstructure:"places"`
	Foursquare FoursquareConfig      `yaml:"foursquare" mapstructure:"foursquare"`
	Geocode    GeocodeConfig         `yaml:"geocode" mapstructure:"geocode"`
	Discovery  DiscoveryConfig       `yaml:"discovery" mapstructure:"discovery"`
	Enrich     EnrichConfig          `yaml:"enrich" mapstructure:"enrich"`
	Gates      GateConfig            `yaml:"gates" mapstructure:"gates"`
	Cities     map[string]CityConfig `yaml:"cities" mapstructure:"cities"`
	Categories []string              `yaml:"categories" mapstructure:"categories"`
	Server     ServerConfig          `yaml:"server" mapstructure:"server"`
	Log        LogConfig             `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the venue store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// PlacesConfig holds the primary discovery provider settings.
type PlacesConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// FoursquareConfig holds the secondary enrichment provider settings.
type FoursquareConfig struct {
	Key       string  `yaml:"key" mapstructure:"key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// GeocodeConfig holds reverse geocoder settings.
type GeocodeConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DiscoveryConfig configures the tiled discovery phase.
type DiscoveryConfig struct {
	MaxPagesPerTile int `yaml:"max_pages_per_tile" mapstructure:"max_pages_per_tile"`
	Workers         int `yaml:"workers" mapstructure:"workers"`
}

// EnrichConfig configures the secondary enrichment phase.
// A Budget of 0 means no limit.
type EnrichConfig struct {
	Budget  int `yaml:"budget" mapstructure:"budget"`
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// CityConfig describes one city's scan region and neighborhood knowledge.
type CityConfig struct {
	Name          string   `yaml:"name" mapstructure:"name"`
	Country       string   `yaml:"country" mapstructure:"country"`
	CenterLat     float64  `yaml:"center_lat" mapstructure:"center_lat"`
	CenterLng     float64  `yaml:"center_lng" mapstructure:"center_lng"`
	RadiusKM      float64  `yaml:"radius_km" mapstructure:"radius_km"`
	GridRows      int      `yaml:"grid_rows" mapstructure:"grid_rows"`
	GridCols      int      `yaml:"grid_cols" mapstructure:"grid_cols"`
	Neighborhoods []string `yaml:"neighborhoods" mapstructure:"neighborhoods"`
	// Aliases are names that mean "the city itself" in address components
	// (e.g. "CABA" and "Capital Federal" for Buenos Aires) and therefore
	// carry no neighborhood signal.
	Aliases      []string `yaml:"aliases" mapstructure:"aliases"`
	BoundaryFile string   `yaml:"boundary_file" mapstructure:"boundary_file"`
}

// ServerConfig configures the read-only catalog server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VENUE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "venues.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("places.base_url", "https://places.googleapis.com/v1")
	v.SetDefault("places.rate_limit", 10)
	v.SetDefault("foursquare.base_url", "https://api.foursquare.com/v3")
	v.SetDefault("foursquare.rate_limit", 5)
	v.SetDefault("geocode.base_url", "https://maps.googleapis.com/maps/api/geocode")
	v.SetDefault("discovery.max_pages_per_tile", 3)
	v.SetDefault("discovery.workers", 4)
	v.SetDefault("enrich.budget", 500)
	v.SetDefault("enrich.workers", 4)
	v.SetDefault("gates.default.min_rating", DefaultMinRating)
	v.SetDefault("gates.default.min_reviews", DefaultMinReviews)
	v.SetDefault("categories", []string{"coffee shop", "restaurant", "bar"})

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if cfg.Gates.File != "" {
		if err := cfg.Gates.LoadFile(cfg.Gates.File); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Validate checks that credentials required by a command are present.
func (c *Config) Validate(command string) error {
	switch command {
	case "sync":
		if c.Places.Key == "" {
			return eris.New("config: places.key is required (set VENUE_PLACES_KEY)")
		}
	case "serve", "score", "export", "boundaries":
		// Store-only commands need no provider credentials.
	}
	return nil
}

// City returns the configuration for a city identifier.
func (c *Config) City(id string) (CityConfig, error) {
	city, ok := c.Cities[id]
	if !ok {
		return CityConfig{}, eris.Errorf("config: unknown city %q", id)
	}
	if city.Name == "" {
		city.Name = id
	}
	return city, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
