package config

import (
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Mongo   MongoConfig   `mapstructure:"mongo"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Sweeper SweeperConfig `mapstructure:"sweeper"`
}

// ServerConfig holds the HTTP server configuration
type ServerConfig struct {
	Port            string `mapstructure:"port"`
	AllowedOrigins  string `mapstructure:"allowedOrigins"`
	ShutdownTimeout int    `mapstructure:"shutdownTimeout"`
}

// MongoConfig holds the MongoDB connection configuration
type MongoConfig struct {
	URI              string `mapstructure:"uri"`
	Database         string `mapstructure:"database"`
	OpTimeoutSeconds int    `mapstructure:"opTimeoutSeconds"`
}

// EngineConfig holds the alert engine configuration
type EngineConfig struct {
	// DefaultTimeoutSeconds applies when a raw event omits its timeout.
	DefaultTimeoutSeconds int `mapstructure:"defaultTimeoutSeconds"`
	// DefaultHeartbeatTimeoutSeconds applies when a heartbeat omits its timeout.
	DefaultHeartbeatTimeoutSeconds int `mapstructure:"defaultHeartbeatTimeoutSeconds"`
}

// SweeperConfig holds the expiry/retention sweeper configuration
type SweeperConfig struct {
	IntervalSeconds               int `mapstructure:"intervalSeconds"`
	RetentionClosedSeconds        int `mapstructure:"retentionClosedSeconds"`
	RetentionInformationalSeconds int `mapstructure:"retentionInformationalSeconds"`
}

// LoadConfig loads the application configuration from file or environment variables
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// Set default values
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.allowedOrigins", "*")
	viper.SetDefault("server.shutdownTimeout", 10)
	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "monitoring")
	viper.SetDefault("mongo.opTimeoutSeconds", 5)
	viper.SetDefault("engine.defaultTimeoutSeconds", 86400)
	viper.SetDefault("engine.defaultHeartbeatTimeoutSeconds", 300)
	viper.SetDefault("sweeper.intervalSeconds", 60)
	viper.SetDefault("sweeper.retentionClosedSeconds", 2*60*60)
	viper.SetDefault("sweeper.retentionInformationalSeconds", 12*60*60)

	// Allow environment variables to override config file, with dots in
	// nested keys mapped to underscores (mongo.uri -> ALERTD_MONGO_URI)
	viper.SetEnvPrefix("ALERTD")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If config file is provided, read it
	if configPath != "" {
		viper.SetConfigFile(configPath)
		if err := viper.ReadInConfig(); err != nil {
			logrus.Warnf("Error reading config file: %v", err)
		}
	}

	// Unmarshal config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
