package main

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config comes from config.yaml with MEALBOT_* env overrides
// (MEALBOT_TOKEN, MEALBOT_MONGO_URI, ...).
type Config struct {
	Token         string `mapstructure:"token"`
	Name          string `mapstructure:"name"`
	Password      string `mapstructure:"password"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`
	Debug         bool   `mapstructure:"debug"`
	MemoryStore   bool   `mapstructure:"memory"`
	Checkpoint    bool   `mapstructure:"checkpoint"`
}

func LoadConfig() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("mealbot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("name", "mealbot")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "mealbot")
	v.SetDefault("checkpoint", true)

	// Bind explicitly so env-only setups work without a config file.
	for _, key := range []string{"token", "password", "debug", "memory"} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Token == "" {
		return Config{}, errors.New("telegram token not configured")
	}
	return cfg, nil
}
