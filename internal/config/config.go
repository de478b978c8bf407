package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	LogLevel          string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	HTTPPort          string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090" validate:"required,numeric"`
	SocketPort        string `yaml:"socket-port" env:"SOCKET_PORT" env-default:"7777" validate:"required,numeric"`
	Store             Store  `yaml:"store"`
	Redis             Redis  `yaml:"redis"`
	SQLiteStoragePath string `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"identities.db" validate:"required"`
}

type Store struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"redis" validate:"oneof=redis memory"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379" validate:"omitempty,numeric"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0" validate:"gte=0,lte=15"`
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

// Load reads the file, applies environment overrides and validates the result.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

func (that *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(that); err != nil {
		return formatValidationErrors(err)
	}

	if that.Store.Driver == StoreRedis && (that.Redis.Host == "" || that.Redis.Port == "") {
		return errors.New("redis: host and port are required for the redis store")
	}

	return nil
}

func (that *Redis) GetRedisAddr() string {
	return net.JoinHostPort(that.Host, that.Port)
}

func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, fmt.Sprintf("%s: failed on %q (value %v)", e.Namespace(), e.Tag(), e.Value()))
	}

	return errors.New(strings.Join(messages, "; "))
}
