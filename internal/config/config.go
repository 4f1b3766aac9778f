package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime settings, read from configs/config.yaml with
// environment-variable overrides.
type Config struct {
	ServerAddress string        `mapstructure:"SERVER_ADDRESS"`
	DBSource      string        `mapstructure:"DB_SOURCE"`
	APIToken      string        `mapstructure:"API_TOKEN"`
	UseCache      bool          `mapstructure:"USE_CACHE"`
	RedisAddress  string        `mapstructure:"REDIS_ADDRESS"`
	RedisPassword string        `mapstructure:"REDIS_PASSWORD"`
	CacheTTL      time.Duration `mapstructure:"CACHE_TTL"`
	StoreTimeout  time.Duration `mapstructure:"STORE_TIMEOUT"`
	IngestTimeout time.Duration `mapstructure:"INGEST_TIMEOUT"`
}

// LoadConfig reads configuration from the given directory, letting the
// environment override any file value.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
