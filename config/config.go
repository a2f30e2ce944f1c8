// Package config loads service settings from the environment. A .env file in
// the working directory is read first when present.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Graph sources.
const (
	GraphSourceSeed = "seed" // embedded Mysore dataset
	GraphSourceDB   = "db"   // nodes and edges tables
	GraphSourceOSM  = "osm"  // OSM XML file at OSM_FILE
	GraphSourceJSON = "json" // map JSON file at MAP_FILE, same format as the seed
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Graph    GraphConfig
	Sampler  SamplerConfig
	Planner  PlannerConfig
	Scoring  ScoringConfig
}

type ServerConfig struct {
	Port           string
	AllowedOrigins []string
	GinMode        string
}

type DatabaseConfig struct {
	Enabled    bool
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	TimeZone   string
	MaxRetries int
	RetryDelay time.Duration
}

// DSN is the postgres connection string for gorm.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode, d.TimeZone,
	)
}

type AuthConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	// Generated is set when no JWT_SECRET was configured. Tokens then stop
	// working on restart.
	Generated bool
}

type GraphConfig struct {
	Source        string
	OSMFile       string
	MapFile       string
	MaxSnapMeters float64
}

type SamplerConfig struct {
	SourceURL    string // empty: serve the area baselines
	Interval     time.Duration
	MaxStaleness time.Duration
	FetchTimeout time.Duration
	CachePath    string // empty: no last-known cache
	NeutralAQI   float64
	NeutralCO2   float64
}

type PlannerConfig struct {
	DistanceWeight  float64
	PollutionWeight float64
	Timeout         time.Duration
}

type ScoringConfig struct {
	HighAQIThreshold float64
	LowAQIThreshold  float64
	MaxFlaggedPoints int
	AQICeiling       float64
	CO2Ceiling       float64
	DistanceScaleKm  float64
}

// Load reads .env (if any) and the environment, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: ignoring .env: %v", err)
	}

	var errs []error
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			GinMode:        getEnv("GIN_MODE", "debug"),
		},
		Database: DatabaseConfig{
			Enabled:    getEnvBool("DB_ENABLED", true, &errs),
			Host:       getEnv("DB_HOST", "localhost"),
			Port:       getEnv("DB_PORT", "5432"),
			User:       getEnv("DB_USER", "ecoroute"),
			Password:   getEnv("DB_PASSWORD", "ecoroute"),
			Name:       getEnv("DB_NAME", "ecoroute"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			TimeZone:   getEnv("DB_TIMEZONE", "Asia/Kolkata"),
			MaxRetries: getEnvInt("DB_MAX_RETRIES", 30, &errs),
			RetryDelay: getEnvDuration("DB_RETRY_DELAY", 2*time.Second, &errs),
		},
		Auth: AuthConfig{
			Secret: []byte(getEnv("JWT_SECRET", "")),
			TTL:    getEnvDuration("JWT_TTL", 7*24*time.Hour, &errs),
			Issuer: getEnv("JWT_ISSUER", "eco-route"),
		},
		Graph: GraphConfig{
			Source:        strings.ToLower(getEnv("GRAPH_SOURCE", GraphSourceSeed)),
			OSMFile:       getEnv("OSM_FILE", ""),
			MapFile:       getEnv("MAP_FILE", ""),
			MaxSnapMeters: getEnvFloat("MAX_SNAP_METERS", 3000, &errs),
		},
		Sampler: SamplerConfig{
			SourceURL:    getEnv("AQI_SOURCE_URL", ""),
			Interval:     getEnvDuration("AQI_POLL_INTERVAL", 10*time.Minute, &errs),
			MaxStaleness: getEnvDuration("AQI_MAX_STALENESS", 2*time.Hour, &errs),
			FetchTimeout: getEnvDuration("AQI_FETCH_TIMEOUT", 10*time.Second, &errs),
			CachePath:    getEnv("AQI_CACHE_PATH", ""),
			NeutralAQI:   getEnvFloat("NEUTRAL_AQI", 60, &errs),
			NeutralCO2:   getEnvFloat("NEUTRAL_CO2", 140, &errs),
		},
		Planner: PlannerConfig{
			DistanceWeight:  getEnvFloat("ECO_DISTANCE_WEIGHT", 1, &errs),
			PollutionWeight: getEnvFloat("ECO_POLLUTION_WEIGHT", 1, &errs),
			Timeout:         getEnvDuration("PLANNER_TIMEOUT", 5*time.Second, &errs),
		},
		Scoring: ScoringConfig{
			HighAQIThreshold: getEnvFloat("HIGH_AQI_THRESHOLD", 80, &errs),
			LowAQIThreshold:  getEnvFloat("LOW_AQI_THRESHOLD", 50, &errs),
			MaxFlaggedPoints: getEnvInt("MAX_FLAGGED_POINTS", 10, &errs),
			AQICeiling:       getEnvFloat("AQI_CEILING", 200, &errs),
			CO2Ceiling:       getEnvFloat("CO2_CEILING", 300, &errs),
			DistanceScaleKm:  getEnvFloat("DISTANCE_SCALE_KM", 5, &errs),
		},
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	if len(cfg.Auth.Secret) == 0 {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Auth.Secret = secret
		cfg.Auth.Generated = true
		log.Println("config: JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Server.Port != "", "PORT must not be empty")

	switch c.Graph.Source {
	case GraphSourceSeed:
	case GraphSourceDB:
		check(c.Database.Enabled, "GRAPH_SOURCE=db requires DB_ENABLED=true")
	case GraphSourceOSM:
		check(c.Graph.OSMFile != "", "GRAPH_SOURCE=osm requires OSM_FILE")
	case GraphSourceJSON:
		check(c.Graph.MapFile != "", "GRAPH_SOURCE=json requires MAP_FILE")
	default:
		errs = append(errs, fmt.Errorf("GRAPH_SOURCE %q is not one of seed, db, osm, json", c.Graph.Source))
	}
	check(c.Graph.MaxSnapMeters > 0, "MAX_SNAP_METERS must be positive, got %v", c.Graph.MaxSnapMeters)

	check(c.Auth.TTL > 0, "JWT_TTL must be positive, got %s", c.Auth.TTL)
	check(c.Database.MaxRetries > 0, "DB_MAX_RETRIES must be positive, got %d", c.Database.MaxRetries)

	check(c.Sampler.Interval > 0, "AQI_POLL_INTERVAL must be positive, got %s", c.Sampler.Interval)
	check(c.Sampler.MaxStaleness > 0, "AQI_MAX_STALENESS must be positive, got %s", c.Sampler.MaxStaleness)
	check(c.Sampler.FetchTimeout > 0, "AQI_FETCH_TIMEOUT must be positive, got %s", c.Sampler.FetchTimeout)
	check(c.Sampler.NeutralAQI >= 0, "NEUTRAL_AQI must not be negative, got %v", c.Sampler.NeutralAQI)
	check(c.Sampler.NeutralCO2 >= 0, "NEUTRAL_CO2 must not be negative, got %v", c.Sampler.NeutralCO2)

	check(c.Planner.DistanceWeight > 0, "ECO_DISTANCE_WEIGHT must be positive, got %v", c.Planner.DistanceWeight)
	check(c.Planner.PollutionWeight > 0, "ECO_POLLUTION_WEIGHT must be positive, got %v", c.Planner.PollutionWeight)
	check(c.Planner.Timeout > 0, "PLANNER_TIMEOUT must be positive, got %s", c.Planner.Timeout)

	s := c.Scoring
	check(s.LowAQIThreshold < s.HighAQIThreshold,
		"LOW_AQI_THRESHOLD (%v) must be below HIGH_AQI_THRESHOLD (%v)", s.LowAQIThreshold, s.HighAQIThreshold)
	check(s.MaxFlaggedPoints >= 0, "MAX_FLAGGED_POINTS must not be negative, got %d", s.MaxFlaggedPoints)
	check(s.AQICeiling > 0 && s.CO2Ceiling > 0, "AQI_CEILING and CO2_CEILING must be positive")
	check(s.DistanceScaleKm > 0, "DISTANCE_SCALE_KM must be positive, got %v", s.DistanceScaleKm)

	return errors.Join(errs...)
}

func randomSecret() ([]byte, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("generate jwt secret: %w", err)
	}
	return []byte(hex.EncodeToString(b)), nil
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvInt(key string, defaultVal int, errs *[]error) int {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return n
}

func getEnvFloat(key string, defaultVal float64, errs *[]error) float64 {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return f
}

func getEnvBool(key string, defaultVal bool, errs *[]error) bool {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return b
}

// getEnvDuration accepts Go durations ("90s", "10m") or a bare number of seconds.
func getEnvDuration(key string, defaultVal time.Duration, errs *[]error) time.Duration {
	val := getEnv(key, "")
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return defaultVal
	}
	return d
}
