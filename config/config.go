package config

import (
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/ilyakaznacheev/cleanenv"
)

type (
	Config struct {
		App     `json:"app"     toml:"app"`
		HTTP    `json:"http"    toml:"http"`
		DB      `json:"db"      toml:"db"`
		Auth    `json:"auth"    toml:"auth"`
		SMTP    `json:"smtp"    toml:"smtp"`
		Workers `json:"workers" toml:"workers"`
	}

	App struct {
		Name        string `json:"name"        toml:"name"        env:"APP_NAME" env-default:"wallet-admin"`
		Environment string `json:"environment" toml:"environment" env:"ENV_NAME" env-default:"dev"`
		Debug       bool   `json:"debug"       toml:"debug"       env:"DEBUG"    env-default:"false"`
	}

	HTTP struct {
		Port string `json:"port" toml:"port" env:"HTTP_PORT" env-default:"8080"`
	}

	DB struct {
		DatabaseURL       string `json:"database_url"        toml:"database_url"        env:"DATABASE_URL"`
		PoolMax           int32  `json:"pool_max"            toml:"pool_max"            env:"PG_POOL_MAX" env-default:"10"`
		ConnectTimeout    int    `json:"connect_timeout"     toml:"connect_timeout"     env:"PG_POOL_CONN_TIMEOUT" env-default:"5"`
		HealthCheckPeriod int    `json:"health_check_period" toml:"health_check_period" env:"PG_POOL_HEALTHCHECK" env-default:"1"`
	}

	Auth struct {
		JWTSecret string `json:"jwt_secret" toml:"jwt_secret" env:"JWT_SECRET" env-default:"change-me"`
	}

	SMTP struct {
		Host     string `json:"host"     toml:"host"     env:"SMTP_HOST"`
		Port     string `json:"port"     toml:"port"     env:"SMTP_PORT" env-default:"465"`
		Username string `json:"username" toml:"username" env:"SMTP_USERNAME"`
		Password string `json:"password" toml:"password" env:"SMTP_PASSWORD"`
		From     string `json:"from"     toml:"from"     env:"SMTP_FROM"`
	}

	Workers struct {
		// Size of the in-memory notification queue drained by the mail dispatcher.
		MailQueueSize int `json:"mail_queue_size" toml:"mail_queue_size" env:"MAIL_QUEUE_SIZE" env-default:"256"`
	}
)

func LoadConfig() (*Config, error) {
	cfg := &Config{}

	_, b, _, _ := runtime.Caller(0)
	basePath := filepath.Dir(b)

	configTomlPath := filepath.Join(basePath, "config.toml")
	err := cleanenv.ReadConfig(configTomlPath, cfg)
	if err != nil {
		configJsonPath := filepath.Join(basePath, "config.json")
		err = cleanenv.ReadConfig(configJsonPath, cfg)
		if err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	err = cleanenv.ReadEnv(cfg)
	if err != nil {
		return nil, fmt.Errorf("env read error: %w", err)
	}

	return cfg, nil
}
