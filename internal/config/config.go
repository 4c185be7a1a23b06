package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverCouchDB = "couchdb"
	DriverMemory  = "memory"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Storage   StorageConfig
	OpenAI    OpenAIConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type JWTConfig struct {
	Secret string
	// Expiration applies to development tokens minted by notesctl.
	Expiration time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PongWait        time.Duration
	PingPeriod      time.Duration
	MaxConnPerUser  int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	UploadDir     string
	URLPrefix     string
	MaxFileSize   int64
	MaxUploadSize int64
}

type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

func Load() (*Config, error) {
	godotenv.Load()

	jwtExp, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "24h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	driver := getEnv("DB_DRIVER", DriverCouchDB)
	if driver != DriverCouchDB && driver != DriverMemory {
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want %s or %s", driver, DriverCouchDB, DriverMemory)
	}

	maxFileSize := getEnvAsInt64("MAX_FILE_SIZE", 10*1024*1024)
	if maxFileSize <= 0 {
		return nil, fmt.Errorf("invalid MAX_FILE_SIZE: %d", maxFileSize)
	}

	// Room for ten files at the per-file cap plus multipart framing.
	maxUploadSize := getEnvAsInt64("MAX_UPLOAD_SIZE", 10*maxFileSize+1<<20)
	if maxUploadSize < maxFileSize {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_SIZE: %d is below MAX_FILE_SIZE", maxUploadSize)
	}

	return &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Driver:   driver,
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5984"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "password"),
			Name:     getEnv("DB_NAME", "noteforge"),
		},
		JWT: JWTConfig{
			Secret:     getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Expiration: jwtExp,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize: getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:  getEnvAsInt64("WS_MAX_MESSAGE_SIZE", 65536),
			WriteWait:       10 * time.Second,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			MaxConnPerUser:  getEnvAsInt("WS_MAX_CONN_PER_USER", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Storage: StorageConfig{
			UploadDir:     getEnv("UPLOAD_DIR", "./uploads"),
			URLPrefix:     getEnv("UPLOAD_URL_PREFIX", "/uploads"),
			MaxFileSize:   maxFileSize,
			MaxUploadSize: maxUploadSize,
		},
		OpenAI: OpenAIConfig{
			APIKey:    getEnv("OPENAI_API_KEY", ""),
			BaseURL:   getEnv("OPENAI_BASE_URL", ""),
			Model:     getEnv("OPENAI_MODEL", "gpt-4"),
			MaxTokens: getEnvAsInt("OPENAI_MAX_TOKENS", 2000),
		},
	}, nil
}

// CouchURL is the CouchDB endpoint with credentials embedded.
func (c DatabaseConfig) CouchURL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", c.User, c.Password, c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}
