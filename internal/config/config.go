package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	DatabasePath string
	ContentPath  string
	UserID       string
	SQLDriver    string
	LogLevel     string
}

// New reads configuration from the environment, with an optional .env file.
// Every key has a working default so the binary runs with zero setup.
func New() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("QUIZ_DB_PATH", "quiz.db")
	viper.SetDefault("QUIZ_CONTENT_PATH", "data/questions.json")
	viper.SetDefault("QUIZ_USER_ID", "localuser")
	viper.SetDefault("QUIZ_SQL_DRIVER", "sqlite3")
	viper.SetDefault("QUIZ_LOG_LEVEL", "info")

	if err := viper.ReadInConfig(); err != nil {
		log.Debug().Err(err).Msg("no .env file, using environment and defaults")
	}

	cfg := &Config{
		DatabasePath: viper.GetString("QUIZ_DB_PATH"),
		ContentPath:  viper.GetString("QUIZ_CONTENT_PATH"),
		UserID:       viper.GetString("QUIZ_USER_ID"),
		SQLDriver:    viper.GetString("QUIZ_SQL_DRIVER"),
		LogLevel:     viper.GetString("QUIZ_LOG_LEVEL"),
	}
	return cfg, nil
}
