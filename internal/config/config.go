package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/annel0/tower-stacker/internal/game"
	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера таблицы лидеров и клиента.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Auth      AuthConfig      `yaml:"auth"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Game      GameConfig      `yaml:"game"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	RESTPort       int    `yaml:"rest_port"`
	Mode           string `yaml:"mode"` // debug | release | test
	RequestTimeout int    `yaml:"request_timeout_seconds"`
}

// StorageConfig выбирает бэкенд таблицы лидеров.
type StorageConfig struct {
	Backend string       `yaml:"backend"` // memory | mongo | maria | badger
	Mongo   MongoConfig  `yaml:"mongo"`
	Maria   MariaConfig  `yaml:"maria"`
	Badger  BadgerConfig `yaml:"badger"`
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type MariaConfig struct {
	DSN string `yaml:"dsn"`
}

type BadgerConfig struct {
	Dir string `yaml:"dir"`
}

// CacheConfig - Redis кеш рейтинга. Пустой Addr отключает кеш.
type CacheConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttl_seconds"`
}

// TTL возвращает время жизни записей кеша.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// EventBusConfig - пустой URL означает in-memory шину.
type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"` // base64
	AdminUser     string `yaml:"admin_user"`
	AdminPassword string `yaml:"admin_password_hash"` // bcrypt
}

type TelemetryConfig struct {
	Enabled     bool    `yaml:"enabled"`
	ServiceName string  `yaml:"service_name"`
	Endpoint    string  `yaml:"endpoint"`
	SampleRatio float64 `yaml:"sample_ratio"`
}

// GameConfig - параметры клиента.
type GameConfig struct {
	Difficulty     string `yaml:"difficulty"`
	PlayerName     string `yaml:"player_name"`
	ServerURL      string `yaml:"server_url"`
	LandingTimeout int    `yaml:"landing_timeout_ms"`

	// Layout - размеры поля; сервер отдаёт их в /api/settings, клиент играет на них
	Layout game.Layout `yaml:"layout"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// Default возвращает конфигурацию для локального запуска без внешних сервисов.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Mode: "release", RequestTimeout: 5},
		Storage: StorageConfig{
			Backend: "memory",
			Mongo:   MongoConfig{URI: "mongodb://localhost:27017", Database: "stacker", Collection: "game_scores"},
			Badger:  BadgerConfig{Dir: "data/leaderboard"},
		},
		Cache:     CacheConfig{TTLSeconds: 30},
		EventBus:  EventBusConfig{Stream: "STACKER_EVENTS", Retention: 24},
		Auth:      AuthConfig{AdminUser: "admin"},
		Telemetry: TelemetryConfig{ServiceName: "tower-stacker", SampleRatio: 1.0},
		Game: GameConfig{
			Difficulty:     "normal",
			PlayerName:     "Mehmon",
			LandingTimeout: 2000,
			Layout:         game.DefaultLayout(),
		},
		Logging: LoggingConfig{Dir: "logs", ConsoleLevel: "INFO", FileLevel: "DEBUG"},
	}
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "STACKER_REST_PORT", 8088)
}

// GetRequestTimeout возвращает таймаут обращения к хранилищу на один запрос.
func (s *ServerConfig) GetRequestTimeout() time.Duration {
	if s.RequestTimeout <= 0 {
		return 5 * time.Second
	}
	return time.Duration(s.RequestTimeout) * time.Second
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	if configPort > 0 {
		return configPort
	}

	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	return defaultPort
}

// Load читает YAML файл конфигурации поверх значений по умолчанию.
// Если path == "", берётся ENV STACKER_CONFIG; если и он пуст - возвращается Default().
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("STACKER_CONFIG")
		if path == "" {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение конфига %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("разбор конфига %s: %w", path, err)
	}

	return cfg, nil
}
