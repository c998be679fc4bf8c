package config

import (
	"errors"
	"os"

	"github.com/go-yaml/yaml"
)

const (
	DefaultPath   = "/etc/eform/config.yaml"
	DefaultListen = ":8000"
	pathEnv       = "EFORM_CONFIG"
)

type Config struct {
	Server Server `yaml:"server"`
}

type Server struct {
	PostgresDsn   string `yaml:"postgresDsn"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisDB       int    `yaml:"redisDB"`
	MemcachedAddr string `yaml:"memcachedAddr"`
	EnableTrace   bool   `yaml:"enableTrace"`
	TraceEndpoint string `yaml:"traceEndpoint"`
	Listen        string `yaml:"listen"`
	JwtSecret     string `yaml:"jwtSecret"`
}

// Path returns the config file location, EFORM_CONFIG when set.
func Path() string {
	if p := os.Getenv(pathEnv); p != "" {
		return p
	}
	return DefaultPath
}

func Load(path string) (Config, error) {

	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()

	var config Config
	err = yaml.NewDecoder(file).Decode(&config)
	if err != nil {
		return Config{}, err
	}

	if config.Server.PostgresDsn == "" {
		return Config{}, errors.New("server.postgresDsn is required")
	}
	if config.Server.JwtSecret == "" {
		return Config{}, errors.New("server.jwtSecret is required")
	}
	if config.Server.Listen == "" {
		config.Server.Listen = DefaultListen
	}

	return config, nil
}
