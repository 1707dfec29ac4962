package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Database  DatabaseConfig
	RabbitMQ  RabbitMQConfig
	HTTP      HTTPConfig
	Auth      AuthConfig
	Bartender BartenderConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	VHost    string
	Enabled  bool
}

type HTTPConfig struct {
	Port int
}

type AuthConfig struct {
	Secret string
}

// BartenderConfig holds the fixed timing model of the dispensing hardware
// plus the shared key the controller authenticates with.
type BartenderConfig struct {
	OrderOverheadSec int
	SecondsPerDrink  int
	PrepSeconds      int
	WorkerKey        string
	Storage          string // "postgres" | "memory"
}

// Load reads the two-level YAML config: sections `database:`, `rabbitmq:`,
// `http:`, `auth:`, `bartender:` with flat k: v pairs underneath.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	// Defaults
	cfg.Database.Port = 5432
	cfg.Database.SSLMode = "disable"
	cfg.RabbitMQ.Port = 5672
	cfg.RabbitMQ.VHost = "/"
	cfg.HTTP.Port = 8080
	cfg.Bartender.OrderOverheadSec = 8
	cfg.Bartender.SecondsPerDrink = 25
	cfg.Bartender.PrepSeconds = 10
	cfg.Bartender.Storage = "postgres"

	scanner := bufio.NewScanner(file)
	var section string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasSuffix(line, ":") && !strings.Contains(line, " ") {
			section = strings.TrimSuffix(line, ":")
			continue
		}
		kv := strings.SplitN(line, ":", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		val := strings.Trim(strings.TrimSpace(kv[1]), `"'`)

		switch section {
		case "database":
			switch key {
			case "host":
				cfg.Database.Host = val
			case "port":
				cfg.Database.Port = atoi(val, 5432)
			case "user":
				cfg.Database.User = val
			case "password":
				cfg.Database.Password = val
			case "database":
				cfg.Database.Database = val
			case "sslmode":
				if val != "" {
					cfg.Database.SSLMode = val
				}
			}
		case "rabbitmq":
			switch key {
			case "host":
				cfg.RabbitMQ.Host = val
			case "port":
				cfg.RabbitMQ.Port = atoi(val, 5672)
			case "user":
				cfg.RabbitMQ.User = val
			case "password":
				cfg.RabbitMQ.Password = val
			case "vhost":
				if val != "" {
					cfg.RabbitMQ.VHost = val
				}
			case "enabled":
				cfg.RabbitMQ.Enabled = val == "true" || val == "1"
			}
		case "http":
			if key == "port" {
				cfg.HTTP.Port = atoi(val, 8080)
			}
		case "auth":
			if key == "secret" {
				cfg.Auth.Secret = val
			}
		case "bartender":
			switch key {
			case "order_overhead_sec":
				cfg.Bartender.OrderOverheadSec = atoi(val, 8)
			case "seconds_per_drink":
				cfg.Bartender.SecondsPerDrink = atoi(val, 25)
			case "prep_seconds":
				cfg.Bartender.PrepSeconds = atoi(val, 10)
			case "worker_key":
				cfg.Bartender.WorkerKey = val
			case "storage":
				if val != "" {
					cfg.Bartender.Storage = val
				}
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if cfg.Bartender.Storage == "postgres" {
		if cfg.Database.Host == "" || cfg.Database.User == "" || cfg.Database.Database == "" {
			return nil, fmt.Errorf("database config incomplete")
		}
	}
	if cfg.RabbitMQ.Enabled && (cfg.RabbitMQ.Host == "" || cfg.RabbitMQ.User == "") {
		return nil, fmt.Errorf("rabbitmq config incomplete")
	}
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth secret is required")
	}
	if cfg.Bartender.WorkerKey == "" {
		return nil, fmt.Errorf("bartender worker_key is required")
	}
	return cfg, nil
}

func atoi(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
