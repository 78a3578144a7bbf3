package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Logging   LoggingConfig
	Sync      SyncConfig
	Proximity ProximityConfig
	Presence  PresenceConfig
	Profile   ProfileConfig
	Geo       GeoConfig
	Avatar    AvatarConfig
}

// ServerConfig has no write timeout: websocket writes set their own
// per-message deadline.
type ServerConfig struct {
	Host        string
	Port        int
	Env         string
	ReadTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig describes the tokens issued by the external auth subsystem.
type JWTConfig struct {
	Secret string
	Issuer string
}

type StorageConfig struct {
	Type              string
	ChangeFeed        string
	ChangeFeedChannel string
}

type LoggingConfig struct {
	Level string
}

// SyncConfig holds the write-coalescing thresholds of the location tracker.
type SyncConfig struct {
	MoveThresholdKm float64
	MaxInterval     time.Duration
}

type ProximityConfig struct {
	StalenessWindow time.Duration
	CandidateLimit  int
	RadiusKm        float64
	ViewLimit       int
	Debounce        time.Duration
	RefreshInterval time.Duration
}

type PresenceConfig struct {
	Interval time.Duration
}

type ProfileConfig struct {
	Attempts   int
	RetryDelay time.Duration
}

type GeoConfig struct {
	IPLookupURL     string
	PositionTimeout time.Duration
	MaximumAge      time.Duration
	HTTPTimeout     time.Duration
	CacheTTL        time.Duration
}

type AvatarConfig struct {
	StorageBaseURL string
	SignEndpoint   string
	Placeholder    string
	CacheSize      int
	CacheTTL       time.Duration
}

const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
	FeedRedis       = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("STORAGE_TYPE", StoragePostgres)
	v.SetDefault("CHANGE_FEED", StoragePostgres)
	v.SetDefault("CHANGE_FEED_CHANNEL", "profiles_changed")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("SYNC_MOVE_THRESHOLD_KM", 0.5)
	v.SetDefault("SYNC_MAX_INTERVAL", 15*time.Minute)

	v.SetDefault("PROXIMITY_STALENESS_WINDOW", 2*time.Hour)
	v.SetDefault("PROXIMITY_CANDIDATE_LIMIT", 25)
	v.SetDefault("PROXIMITY_RADIUS_KM", 50.0)
	v.SetDefault("PROXIMITY_VIEW_LIMIT", 20)
	v.SetDefault("PROXIMITY_DEBOUNCE", 1500*time.Millisecond)
	v.SetDefault("PROXIMITY_REFRESH_INTERVAL", time.Minute)

	v.SetDefault("PRESENCE_INTERVAL", 2*time.Minute)

	v.SetDefault("PROFILE_ATTEMPTS", 2)
	v.SetDefault("PROFILE_RETRY_DELAY", 2*time.Second)

	v.SetDefault("GEO_IP_LOOKUP_URL", "https://ipapi.co/json/")
	v.SetDefault("GEO_POSITION_TIMEOUT", 10*time.Second)
	v.SetDefault("GEO_MAXIMUM_AGE", 30*time.Second)
	v.SetDefault("GEO_HTTP_TIMEOUT", 5*time.Second)
	v.SetDefault("GEO_CACHE_TTL", time.Hour)

	v.SetDefault("AVATAR_PLACEHOLDER", "/noprofile.png")
	v.SetDefault("AVATAR_CACHE_SIZE", 256)
	v.SetDefault("AVATAR_CACHE_TTL", 50*time.Minute)
}

// Load loads configuration from environment variables or .env file
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	// Try to read from .env file, but don't fail if it doesn't exist
	_ = v.ReadInConfig()

	config := &Config{
		Server: ServerConfig{
			Host:        v.GetString("SERVER_HOST"),
			Port:        v.GetInt("SERVER_PORT"),
			Env:         v.GetString("ENV"),
			ReadTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetInt("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSL_MODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			Issuer: v.GetString("JWT_ISSUER"),
		},
		Storage: StorageConfig{
			Type:              v.GetString("STORAGE_TYPE"),
			ChangeFeed:        v.GetString("CHANGE_FEED"),
			ChangeFeedChannel: v.GetString("CHANGE_FEED_CHANNEL"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		Sync: SyncConfig{
			MoveThresholdKm: v.GetFloat64("SYNC_MOVE_THRESHOLD_KM"),
			MaxInterval:     v.GetDuration("SYNC_MAX_INTERVAL"),
		},
		Proximity: ProximityConfig{
			StalenessWindow: v.GetDuration("PROXIMITY_STALENESS_WINDOW"),
			CandidateLimit:  v.GetInt("PROXIMITY_CANDIDATE_LIMIT"),
			RadiusKm:        v.GetFloat64("PROXIMITY_RADIUS_KM"),
			ViewLimit:       v.GetInt("PROXIMITY_VIEW_LIMIT"),
			Debounce:        v.GetDuration("PROXIMITY_DEBOUNCE"),
			RefreshInterval: v.GetDuration("PROXIMITY_REFRESH_INTERVAL"),
		},
		Presence: PresenceConfig{
			Interval: v.GetDuration("PRESENCE_INTERVAL"),
		},
		Profile: ProfileConfig{
			Attempts:   v.GetInt("PROFILE_ATTEMPTS"),
			RetryDelay: v.GetDuration("PROFILE_RETRY_DELAY"),
		},
		Geo: GeoConfig{
			IPLookupURL:     v.GetString("GEO_IP_LOOKUP_URL"),
			PositionTimeout: v.GetDuration("GEO_POSITION_TIMEOUT"),
			MaximumAge:      v.GetDuration("GEO_MAXIMUM_AGE"),
			HTTPTimeout:     v.GetDuration("GEO_HTTP_TIMEOUT"),
			CacheTTL:        v.GetDuration("GEO_CACHE_TTL"),
		},
		Avatar: AvatarConfig{
			StorageBaseURL: v.GetString("AVATAR_STORAGE_BASE_URL"),
			SignEndpoint:   v.GetString("AVATAR_SIGN_ENDPOINT"),
			Placeholder:    v.GetString("AVATAR_PLACEHOLDER"),
			CacheSize:      v.GetInt("AVATAR_CACHE_SIZE"),
			CacheTTL:       v.GetDuration("AVATAR_CACHE_TTL"),
		},
	}

	// Validate critical configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates critical configuration values
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case StoragePostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.DBName == "" {
			return fmt.Errorf("database name is required")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown storage type %q", c.Storage.Type)
	}

	switch c.Storage.ChangeFeed {
	case StoragePostgres:
		if c.Storage.Type != StoragePostgres {
			return fmt.Errorf("postgres change feed requires postgres storage")
		}
	case FeedRedis:
		if c.Redis.Host == "" {
			return fmt.Errorf("redis host is required for the redis change feed")
		}
	case StorageMemory:
		if c.Storage.Type != StorageMemory {
			return fmt.Errorf("memory change feed requires memory storage")
		}
	default:
		return fmt.Errorf("unknown change feed %q", c.Storage.ChangeFeed)
	}
	if c.Storage.ChangeFeedChannel == "" {
		return fmt.Errorf("change feed channel is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	if c.Sync.MoveThresholdKm <= 0 {
		return fmt.Errorf("sync move threshold must be positive")
	}
	if c.Sync.MaxInterval <= 0 {
		return fmt.Errorf("sync max interval must be positive")
	}
	if c.Proximity.StalenessWindow <= 0 {
		return fmt.Errorf("proximity staleness window must be positive")
	}
	if c.Proximity.CandidateLimit <= 0 || c.Proximity.ViewLimit <= 0 {
		return fmt.Errorf("proximity limits must be positive")
	}
	if c.Proximity.ViewLimit > c.Proximity.CandidateLimit {
		return fmt.Errorf("proximity view limit %d exceeds candidate limit %d", c.Proximity.ViewLimit, c.Proximity.CandidateLimit)
	}
	if c.Proximity.RadiusKm <= 0 {
		return fmt.Errorf("proximity radius must be positive")
	}
	if c.Proximity.Debounce < 0 || c.Proximity.RefreshInterval < 0 {
		return fmt.Errorf("proximity debounce and refresh interval must not be negative")
	}
	if c.Presence.Interval <= 0 {
		return fmt.Errorf("presence interval must be positive")
	}
	if c.Profile.Attempts < 1 {
		return fmt.Errorf("profile attempts must be at least 1")
	}
	if c.Avatar.CacheSize <= 0 {
		return fmt.Errorf("avatar cache size must be positive")
	}
	return nil
}

// GetDSN returns PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Addr returns the HTTP listen address
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
