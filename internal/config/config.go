package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server Server
	Store  Store
	JWT    JWT
	Log    Log
}

type Server struct {
	Addr         string
	HTTPAddr     string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type Store struct {
	AccountsFile string
	RoomsFile    string
}

type JWT struct {
	Secret    []byte
	ExpiresIn time.Duration
}

type Log struct {
	Level  string
	Pretty bool
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found or error loading .env file: %v", err)
	}

	return &Config{
		Server: Server{
			Addr:         getEnvOrDefault("CSP_ADDR", "127.0.0.1:12345"),
			HTTPAddr:     getEnvOrDefault("CSP_HTTP_ADDR", ""),
			ReadTimeout:  getDurationOrDefault("READ_TIMEOUT", "0"),
			WriteTimeout: getDurationOrDefault("WRITE_TIMEOUT", "10s"),
		},
		Store: Store{
			AccountsFile: getEnvOrDefault("CSP_ACCOUNTS_FILE", "user_accounts.txt"),
			RoomsFile:    getEnvOrDefault("CSP_ROOMS_FILE", "list.txt"),
		},
		JWT: JWT{
			Secret:    []byte(getEnvOrDefault("JWT_SECRET", "csp-dev-secret")),
			ExpiresIn: getDurationOrDefault("JWT_EXPIRES_IN", "24h"),
		},
		Log: Log{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Pretty: getBoolOrDefault("LOG_PRETTY", true),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key, defaultValue string) time.Duration {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("Invalid duration for %s: %v", key, err)
	}
	return duration
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Fatalf("Invalid boolean for %s: %v", key, err)
	}
	return boolValue
}
