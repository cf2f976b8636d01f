package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Reservation ReservationConfig
	Gateway     GatewayConfig
}

type ServerConfig struct {
	Port string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// ReservationConfig TTL 與清掃節奏
type ReservationConfig struct {
	TTL           time.Duration // how long an unpaid hold survives
	SweepInterval time.Duration
	LockTimeout   time.Duration // per-raffle lock acquisition bound
}

type GatewayConfig struct {
	Driver      string // "rest" or "mock"
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

var AppConfig *Config

func LoadConfig() *Config {
	_ = godotenv.Load() // .env is optional

	AppConfig = &Config{
		Server:      ServerConfig{Port: getEnv("PORT", "8080")},
		Database:    GetDatabaseConfig(),
		Redis:       GetRedisConfig(),
		Reservation: GetReservationConfig(),
		Gateway:     GetGatewayConfig(),
	}

	return AppConfig
}

func LoadTestConfig() *Config {
	testConfig := &DatabaseConfig{
		Host:     "localhost",
		Port:     "5433", // 測試 DB 用 5433 port
		User:     "postgres",
		Password: "postgres",
		DBName:   "test_db",
		SSLMode:  "disable",
	}

	testRedisConfig := RedisConfig{
		Host:     "localhost",
		Port:     "6380", // 測試 Redis 用 6380 port
		Password: "",
		DB:       1,
	}

	return &Config{
		Server:   ServerConfig{Port: "8081"},
		Database: *testConfig,
		Redis:    testRedisConfig,
		Reservation: ReservationConfig{
			TTL:           time.Minute,
			SweepInterval: time.Second,
			LockTimeout:   200 * time.Millisecond,
		},
		Gateway: GatewayConfig{Driver: "mock", Timeout: time.Second},
	}
}

func GetDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", "postgres"),
		DBName:   getEnv("DB_NAME", "postgres"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}
}

func GetRedisConfig() RedisConfig {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		panic(err)
	}

	return RedisConfig{
		Host:     getEnv("REDIS_HOST", "localhost"),
		Port:     getEnv("REDIS_PORT", "6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

func GetReservationConfig() ReservationConfig {
	return ReservationConfig{
		TTL:           getDurationEnv("RESERVATION_TTL", 15*time.Minute),
		SweepInterval: getDurationEnv("SWEEP_INTERVAL", 30*time.Second),
		LockTimeout:   getDurationEnv("POOL_LOCK_TIMEOUT", 500*time.Millisecond),
	}
}

func GetGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Driver:      getEnv("GATEWAY_DRIVER", "mock"),
		BaseURL:     getEnv("GATEWAY_BASE_URL", "https://api.mercadopago.com"),
		AccessToken: getEnv("GATEWAY_ACCESS_TOKEN", ""),
		Timeout:     getDurationEnv("GATEWAY_TIMEOUT", 10*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err != nil {
			panic(err)
		}
		return d
	}
	return fallback
}
