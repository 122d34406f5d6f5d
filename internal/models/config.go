package models

import (
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

type Config struct {
	ServerAddr       string `yaml:"server_addr"`
	DatabaseURL      string `yaml:"database_url"`
	KafkaBroker      string `yaml:"kafka_broker"`
	KafkaTopic       string `yaml:"kafka_topic"`
	StoragePath      string `yaml:"storage_path"`
	InputFile        string `yaml:"input_file"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_seconds"`
	ImageQuality     int    `yaml:"image_quality"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.FetchTimeoutSecs <= 0 {
		cfg.FetchTimeoutSecs = 30
	}
	if cfg.ImageQuality <= 0 || cfg.ImageQuality > 100 {
		cfg.ImageQuality = 50
	}
	return &cfg, nil
}

func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSecs) * time.Second
}
