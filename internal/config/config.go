// ==============================================
// Monobase communications service configuration
// Environment driven, optionally seeded from .env
// ==============================================

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"monobase/internal/ice"
)

// ==============================================
// Main Configuration Structure
// ==============================================

type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	WebRTC   WebRTCConfig
	Calls    CallsConfig
	Security SecurityConfig
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
	Port        string
}

type ServerConfig struct {
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORS         CORSConfig
}

type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

type DatabaseConfig struct {
	MongoDB MongoConfig
}

type MongoConfig struct {
	URI                    string
	Database               string
	MaxPoolSize            uint64
	MinPoolSize            uint64
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
}

// ==============================================
// WebRTC Configuration
// ==============================================

type WebRTCConfig struct {
	// ICEServers is the raw ICE_SERVERS value, a comma separated list of
	// protocol:[username:password@]host:port descriptors.
	ICEServers string
	ICETTL     time.Duration
}

type CallsConfig struct {
	MaxParticipants int
	RequestTimeout  time.Duration
}

type SecurityConfig struct {
	JWT       JWTConfig
	RateLimit RateLimitConfig
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Burst    int
	Window   time.Duration
}

// ==============================================
// Configuration Loading Functions
// ==============================================

func Load() *Config {
	cfg := &Config{
		App:      loadAppConfig(),
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		WebRTC:   loadWebRTCConfig(),
		Calls:    loadCallsConfig(),
		Security: loadSecurityConfig(),
	}
	cfg.ApplyEnvironmentOverrides()
	return cfg
}

func loadAppConfig() AppConfig {
	return AppConfig{
		Name:        getEnv("APP_NAME", "monobase-comms"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		ReadTimeout:  getEnvAsDuration("HTTP_READ_TIMEOUT", "30s"),
		WriteTimeout: getEnvAsDuration("HTTP_WRITE_TIMEOUT", "30s"),
		IdleTimeout:  getEnvAsDuration("HTTP_IDLE_TIMEOUT", "60s"),
		CORS: CORSConfig{
			AllowedOrigins:   getEnvAsSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			AllowCredentials: getEnvAsBool("CORS_ALLOW_CREDENTIALS", true),
			MaxAge:           getEnvAsDuration("CORS_MAX_AGE", "12h"),
		},
	}
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		MongoDB: MongoConfig{
			URI:                    getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:               getEnv("MONGODB_DATABASE", "monobase"),
			MaxPoolSize:            getEnvAsUint64("MONGODB_MAX_POOL_SIZE", 100),
			MinPoolSize:            getEnvAsUint64("MONGODB_MIN_POOL_SIZE", 5),
			ConnectTimeout:         getEnvAsDuration("MONGODB_CONNECT_TIMEOUT", "10s"),
			ServerSelectionTimeout: getEnvAsDuration("MONGODB_SERVER_SELECTION_TIMEOUT", "5s"),
		},
	}
}

func loadWebRTCConfig() WebRTCConfig {
	return WebRTCConfig{
		ICEServers: os.Getenv("ICE_SERVERS"),
		ICETTL:     getEnvAsDuration("ICE_SERVERS_TTL", "1h"),
	}
}

func loadCallsConfig() CallsConfig {
	return CallsConfig{
		MaxParticipants: getEnvAsInt("CALL_MAX_PARTICIPANTS", 2),
		RequestTimeout:  getEnvAsDuration("CALL_REQUEST_TIMEOUT", "10s"),
	}
}

func loadSecurityConfig() SecurityConfig {
	return SecurityConfig{
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
			Issuer: getEnv("JWT_ISSUER", "monobase"),
		},
		RateLimit: RateLimitConfig{
			Enabled:  getEnvAsBool("RATE_LIMIT_ENABLED", true),
			Requests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			Burst:    getEnvAsInt("RATE_LIMIT_BURST", 20),
			Window:   getEnvAsDuration("RATE_LIMIT_WINDOW", "1m"),
		},
	}
}

// ==============================================
// ICE Servers
// ==============================================

// ICEServers returns the configured ICE servers. An unset ICE_SERVERS falls
// back to the public STUN defaults; a malformed one is an error and never
// falls back.
func (c *Config) ICEServers() ([]ice.Server, error) {
	if strings.TrimSpace(c.WebRTC.ICEServers) == "" {
		return ice.DefaultServers(), nil
	}
	servers, err := ice.ParseServers(c.WebRTC.ICEServers)
	if err != nil {
		return nil, fmt.Errorf("ICE_SERVERS: %w", err)
	}
	return servers, nil
}

// ==============================================
// Helper Functions
// ==============================================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsUint64(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseUint(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsSlice(key string, defaultValue string) []string {
	value := getEnv(key, defaultValue)
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// ==============================================
// Configuration Validation
// ==============================================

func (c *Config) Validate() error {
	if c.Database.MongoDB.URI == "" {
		return errors.New("MONGODB_URI is required")
	}
	if c.Security.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Calls.MaxParticipants < 2 {
		return fmt.Errorf("CALL_MAX_PARTICIPANTS must be at least 2, got %d", c.Calls.MaxParticipants)
	}
	if _, err := c.ICEServers(); err != nil {
		return err
	}
	return nil
}

// ==============================================
// Environment-specific Configuration
// ==============================================

func (c *Config) ApplyEnvironmentOverrides() {
	switch c.App.Environment {
	case "development":
		c.Server.CORS.AllowedOrigins = append(c.Server.CORS.AllowedOrigins, "http://localhost:3001")
	case "production":
		c.Security.RateLimit.Enabled = true
	}
}
