package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB       int    `mapstructure:"REDIS_CACHE_DB"`
	RedisPubSubDB      int    `mapstructure:"REDIS_PUBSUB_DB"`
	RedisExpiryQueueDB int    `mapstructure:"REDIS_EXPIRY_QUEUE_DB"`

	// Matching configuration.
	MatchRadiusKm      float64 `mapstructure:"MATCH_RADIUS_KM"`
	MatchMaxCandidates int     `mapstructure:"MATCH_MAX_CANDIDATES"`

	// Pricing configuration.
	DynamicPriceFreshnessHours int `mapstructure:"DYNAMIC_PRICE_FRESHNESS_HOURS"`

	// Expiry worker configuration.
	PendingBookingTTLMinutes int `mapstructure:"PENDING_BOOKING_TTL_MINUTES"`

	// Firebase service account key for FCM pushes.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_PUBSUB_DB", 1)
	viper.SetDefault("REDIS_EXPIRY_QUEUE_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("MATCH_RADIUS_KM", 15.0)
	viper.SetDefault("MATCH_MAX_CANDIDATES", 20)
	viper.SetDefault("DYNAMIC_PRICE_FRESHNESS_HOURS", 24)
	viper.SetDefault("PENDING_BOOKING_TTL_MINUTES", 30)
	viper.SetDefault("FIREBASE_CREDENTIALS_FILE", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
