package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config wires the headless client: where the classroom server lives,
// who this client claims to be, and where the local status endpoint
// listens.
type Config struct {
	Server struct {
		APIURL    string `yaml:"api_url"`
		SocketURL string `yaml:"socket_url"`
	} `yaml:"server"`
	Client struct {
		Role string `yaml:"role"`
		Name string `yaml:"name"`
	} `yaml:"client"`
	Status struct {
		Addr string `yaml:"addr"`
	} `yaml:"status"`
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Environment overrides win over the file.
	config.Server.APIURL = getEnv("POLL_API_URL", config.Server.APIURL)
	config.Server.SocketURL = getEnv("POLL_SOCKET_URL", config.Server.SocketURL)
	config.Client.Role = getEnv("POLL_ROLE", config.Client.Role)
	config.Client.Name = getEnv("POLL_NAME", config.Client.Name)
	config.Status.Addr = getEnv("POLL_STATUS_ADDR", config.Status.Addr)

	return config, nil
}

func defaultConfig() *Config {
	config := &Config{}
	config.Server.APIURL = "http://localhost:5000/api"
	config.Server.SocketURL = "ws://localhost:5000/socket"
	config.Status.Addr = ":8090"
	return config
}
