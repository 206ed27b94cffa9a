package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Key      string `yaml:"key"`
	Model    string `yaml:"model"`
}

type CleanConfig struct {
	ChunkSize int `yaml:"chunk_size"`
}

type AuditConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type Config struct {
	LLM   LLMConfig   `yaml:"llm"`
	Clean CleanConfig `yaml:"clean"`
	Audit AuditConfig `yaml:"audit"`
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
	return &cfg, nil
}

// Default is the config used when no config file is present: a local ollama
// server with the stock model.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "ollama",
			BaseURL:  "http://localhost:11434",
			Model:    "deepseek-r1",
		},
		Clean: CleanConfig{
			ChunkSize: 200,
		},
	}
}
