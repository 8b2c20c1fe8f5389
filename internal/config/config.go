package config

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Env        string `validate:"oneof=dev test prod"`
	Database   Database
	Redis      Redis
	Prometheus Prometheus
	Mastodon   Mastodon
	Scheduler  Scheduler
}

type Database struct {
	Username       string `validate:"required"`
	Password       string `validate:"required"`
	Host           string `validate:"required"`
	Port           string `validate:"required"`
	DbName         string `validate:"required"`
	MigrationsPath string `validate:"required"`
}

type Redis struct {
	Address  string `validate:"required"`
	Port     int    `validate:"required"`
	Password string
	DB       int
	PoolSize int `validate:"gt=0"`
}

type Prometheus struct {
	Address string `validate:"required"`
	Port    int    `validate:"required"`
}

type Mastodon struct {
	BaseURL        string        `validate:"required,url"`
	RequestTimeout time.Duration `validate:"gt=0"`
}

type Scheduler struct {
	TickInterval time.Duration `validate:"gt=0"`
	// Quiet suppresses all outbound dispatch while still recording post_log
	// rows, as a staging/test safety valve.
	Quiet bool
	// AdvanceOnQuiet controls whether next_run moves forward when a post is
	// suppressed by quiet mode.
	AdvanceOnQuiet bool
}

func MustLoad() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")

	viper.SetDefault("env", "dev")

	viper.SetDefault("database.username", "postgres")
	viper.SetDefault("database.password", "admin")
	viper.SetDefault("database.host", "scheduler-db")
	viper.SetDefault("database.port", "5432")
	viper.SetDefault("database.db_name", "fediclock")
	viper.SetDefault("database.migrations_path", "migrations")

	viper.SetDefault("redis.address", "redis")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	viper.SetDefault("prometheus.address", "0.0.0.0")
	viper.SetDefault("prometheus.port", 9104)

	viper.SetDefault("mastodon.base_url", "https://mastodon.example")
	viper.SetDefault("mastodon.request_timeout", "30s")

	viper.SetDefault("scheduler.tick_interval", "10s")
	viper.SetDefault("scheduler.quiet", false)
	viper.SetDefault("scheduler.advance_on_quiet", true)

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Error reading config file: %s", err)
		os.Exit(1)
	}

	config := &Config{
		Env: viper.GetString("env"),
		Database: Database{
			Username:       viper.GetString("database.username"),
			Password:       viper.GetString("database.password"),
			Host:           viper.GetString("database.host"),
			Port:           viper.GetString("database.port"),
			DbName:         viper.GetString("database.db_name"),
			MigrationsPath: viper.GetString("database.migrations_path"),
		},
		Redis: Redis{
			Address:  viper.GetString("redis.address"),
			Port:     viper.GetInt("redis.port"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			PoolSize: viper.GetInt("redis.pool_size"),
		},
		Prometheus: Prometheus{
			Address: viper.GetString("prometheus.address"),
			Port:    viper.GetInt("prometheus.port"),
		},
		Mastodon: Mastodon{
			BaseURL:        viper.GetString("mastodon.base_url"),
			RequestTimeout: viper.GetDuration("mastodon.request_timeout"),
		},
		Scheduler: Scheduler{
			TickInterval:   viper.GetDuration("scheduler.tick_interval"),
			Quiet:          viper.GetBool("scheduler.quiet"),
			AdvanceOnQuiet: viper.GetBool("scheduler.advance_on_quiet"),
		},
	}

	if err := validator.New().Struct(config); err != nil {
		log.Printf("Invalid config: %s", err)
		os.Exit(1)
	}

	return config
}
