package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	// 上传服务
	Port            string
	MaxBytes        int64
	GatewayPrefix   string
	StoreBackend    string // minio 或 remote
	UploadAPI       string // remote 后端和命令行上传使用的上传服务地址
	UploadJWTSecret string // 为空时 /upload 不鉴权

	// 账本
	ProgramID  string
	RPCURL     string
	RPCTimeout time.Duration

	// MinIO
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioRegion    string
	MinioUseSSL    bool

	// Redis，RedisHost 为空时不启用回执缓存
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// 回执日志
	DBDriver   string // mysql 或 sqlite
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	// 日志
	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseInt(value, 10, 64); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
// godotenv.Load does not override variables that are already set.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the current environment without touching .env.
func FromEnv() *Config {
	gateway := getEnv("GATEWAY_PREFIX", "https://arweave.net/")
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}

	return &Config{
		Port:            getEnv("PORT", "8787"),
		MaxBytes:        getEnvInt64("MAX_BYTES", 60_000_000),
		GatewayPrefix:   gateway,
		StoreBackend:    getEnv("STORE_BACKEND", "minio"),
		UploadAPI:       getEnv("UPLOAD_API", "http://localhost:8787"),
		UploadJWTSecret: os.Getenv("UPLOAD_JWT_SECRET"),

		ProgramID:  os.Getenv("PROGRAM_ID"),
		RPCURL:     getEnv("RPC_URL", "https://api.devnet.solana.com"),
		RPCTimeout: time.Duration(getEnvInt("RPC_TIMEOUT_SECONDS", 30)) * time.Second,

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "dimi"),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "dimi"),
		DBPath:     getEnv("DB_PATH", "data/uploads.db"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  os.Getenv("LOG_FILE"),
	}
}
