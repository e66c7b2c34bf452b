package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig  `yaml:"server"`
	Storage  StorageConfig `yaml:"storage"`
	Database *Postgres     `yaml:"database,omitempty"`
	RabbitMQ *RabbitMQ     `yaml:"rabbitmq,omitempty"`
}

type ServerConfig struct {
	WSPort          int      `yaml:"ws_port"`
	ReportPort      int      `yaml:"report_port"`
	GridCols        int      `yaml:"grid_cols"`
	GridRows        int      `yaml:"grid_rows"`
	Locale          string   `yaml:"locale"`
	RequiredLocales []string `yaml:"required_locales"`
	MenuPath        string   `yaml:"menu_path"`
	IngredientsPath string   `yaml:"ingredients_path"`
}

type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

type Postgres struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQ struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
}

// LoadConfig reads the yaml config file. When the file does not exist the
// configuration is built from environment variables instead, so the server
// can run from a plain .env in development.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return LoadDotEnv(), nil
		}
		return nil, fmt.Errorf("cannot read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config file: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadDotEnv builds the configuration from environment variables, loading a
// .env file first when one is present.
func LoadDotEnv() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			WSPort:          getEnvInt("KITCHEN_WS_PORT", 3000),
			ReportPort:      getEnvInt("KITCHEN_REPORT_PORT", 3002),
			GridCols:        getEnvInt("KITCHEN_GRID_COLS", 3),
			GridRows:        getEnvInt("KITCHEN_GRID_ROWS", 3),
			Locale:          getEnv("KITCHEN_LOCALE", "fr"),
			MenuPath:        getEnv("KITCHEN_MENU_PATH", "data/menu.json"),
			IngredientsPath: getEnv("KITCHEN_INGREDIENTS_PATH", "data/ingredients.json"),
		},
		Storage: StorageConfig{
			DataDir: getEnv("KITCHEN_DATA_DIR", "data/state"),
		},
	}

	if os.Getenv("POSTGRES_HOST") != "" {
		cfg.Database = &Postgres{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "admin"),
			Password: getEnv("POSTGRES_PASSWORD", "admin"),
			Database: getEnv("POSTGRES_DBNAME", "kitchen_db"),
		}
	}

	if os.Getenv("RABBITMQ_HOST") != "" {
		cfg.RabbitMQ = &RabbitMQ{
			Host:     getEnv("RABBITMQ_HOST", "localhost"),
			Port:     getEnvInt("RABBITMQ_PORT", 5672),
			User:     getEnv("RABBITMQ_USER", "guest"),
			Password: getEnv("RABBITMQ_PASSWORD", "guest"),
		}
	}

	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.WSPort == 0 {
		c.Server.WSPort = 3000
	}
	if c.Server.ReportPort == 0 {
		c.Server.ReportPort = 3002
	}
	if c.Server.GridCols == 0 {
		c.Server.GridCols = 3
	}
	if c.Server.GridRows == 0 {
		c.Server.GridRows = 3
	}
	if c.Server.Locale == "" {
		c.Server.Locale = "fr"
	}
	if len(c.Server.RequiredLocales) == 0 {
		c.Server.RequiredLocales = []string{"fr", "th"}
	}
	if c.Server.MenuPath == "" {
		c.Server.MenuPath = "data/menu.json"
	}
	if c.Server.IngredientsPath == "" {
		c.Server.IngredientsPath = "data/ingredients.json"
	}
	if c.Storage.DataDir == "" {
		c.Storage.DataDir = "data/state"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
