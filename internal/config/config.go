package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config representa la configuración del servicio
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Inngest  InngestConfig
	Logging  LoggingConfig
	Email    EmailConfig
	Archive  ArchiveConfig
	Import   ImportConfig
	Tracing  TracingConfig
	Auth     AuthConfig
}

// ServerConfig representa la configuración del servidor HTTP
type ServerConfig struct {
	Port    string
	Host    string
	Env     string
	BaseURL string
}

// DatabaseConfig representa la configuración de la base de datos
type DatabaseConfig struct {
	Driver         string
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	Path           string
	MigrateOnStart bool
}

// RedisConfig representa la configuración de Redis
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	RunTTL   time.Duration
}

// InngestConfig representa la configuración de Inngest
type InngestConfig struct {
	EventKey   string
	SigningKey string
	AppID      string
	Dev        bool
}

// LoggingConfig representa la configuración de logging
type LoggingConfig struct {
	Level  string
	Format string
}

// EmailConfig representa la configuración del resumen por email
type EmailConfig struct {
	ResendAPIKey  string
	From          string
	OperatorEmail string
}

// ArchiveConfig representa el almacenamiento S3 de los XML originales
type ArchiveConfig struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// ImportConfig representa los parámetros de importación
type ImportConfig struct {
	BatchSize  int
	Recursive  bool
	SourceRoot string
}

// TracingConfig representa la configuración de OpenTelemetry
type TracingConfig struct {
	Enabled      bool
	ServiceName  string
	OTLPEndpoint string
}

// AuthConfig representa la autenticación de operadores
type AuthConfig struct {
	OperatorAPIKey string
}

// Load carga la configuración desde variables de entorno
func Load() (*Config, error) {
	// El archivo .env es opcional
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:    getEnv("SERVER_PORT", "8081"),
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Env:     getEnv("SERVER_ENV", "development"),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8081"),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", "postgres"),
			Host:           getEnv("PGHOST", "localhost"),
			Port:           getEnv("PGPORT", "5432"),
			User:           getEnv("PGUSER", "postgres"),
			Password:       getEnv("PGPASSWORD", "postgres"),
			Name:           getEnv("PGDATABASE", "vendas_audit"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			Path:           getEnv("DB_PATH", "vendas_audit.db"),
			MigrateOnStart: getEnvAsBool("DB_MIGRATE_ON_START", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			RunTTL:   getEnvAsDuration("REDIS_RUN_TTL", 7*24*time.Hour),
		},
		Inngest: InngestConfig{
			EventKey:   getEnv("INNGEST_EVENT_KEY", ""),
			SigningKey: getEnv("INNGEST_SIGNING_KEY", ""),
			AppID:      getEnv("INNGEST_APP_ID", "vendas-audit"),
			Dev:        getEnvAsBool("INNGEST_DEV", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Email: EmailConfig{
			ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
			From:          getEnv("EMAIL_FROM", "NFe Import <nfe@vendas-audit.local>"),
			OperatorEmail: getEnv("OPERATOR_EMAIL", ""),
		},
		Archive: ArchiveConfig{
			Endpoint:        getEnv("ARCHIVE_ENDPOINT", ""),
			Region:          getEnv("ARCHIVE_REGION", "us-east-1"),
			AccessKeyID:     getEnv("ARCHIVE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("ARCHIVE_SECRET_ACCESS_KEY", ""),
			Bucket:          getEnv("ARCHIVE_BUCKET", "nfe-xml"),
		},
		Import: ImportConfig{
			BatchSize:  getEnvAsInt("IMPORT_BATCH_SIZE", 1000),
			Recursive:  getEnvAsBool("IMPORT_RECURSIVE", true),
			SourceRoot: getEnv("IMPORT_SOURCE_ROOT", ""),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("TRACING_ENABLED", false),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "vendas-audit"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
		Auth: AuthConfig{
			OperatorAPIKey: getEnv("OPERATOR_API_KEY", ""),
		},
	}

	if config.Import.BatchSize <= 0 {
		config.Import.BatchSize = 1000
	}

	return config, nil
}

// getEnv obtiene una variable de entorno o retorna un valor por defecto
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt obtiene una variable de entorno como entero
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool obtiene una variable de entorno como booleano
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration obtiene una variable de entorno como duración
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// IsDevelopment retorna true si el entorno es de desarrollo
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// GetDSN retorna la cadena de conexión a PostgreSQL
func (c *Config) GetDSN() string {
	return "host=" + c.Database.Host +
		" port=" + c.Database.Port +
		" user=" + c.Database.User +
		" password=" + c.Database.Password +
		" dbname=" + c.Database.Name +
		" sslmode=" + c.Database.SSLMode
}

// GetSQLiteDSN retorna el DSN del archivo SQLite con claves foráneas activas
func (c *Config) GetSQLiteDSN() string {
	if c.Database.Path == ":memory:" {
		return ":memory:?_foreign_keys=on"
	}
	return "file:" + c.Database.Path + "?_foreign_keys=on&_busy_timeout=5000"
}

// GetRedisAddr retorna la dirección de Redis
func (c *Config) GetRedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// ArchiveEnabled indica si hay un bucket S3 configurado
func (c *Config) ArchiveEnabled() bool {
	return c.Archive.Endpoint != "" && c.Archive.AccessKeyID != ""
}

// EmailEnabled indica si se envía el resumen de importación
func (c *Config) EmailEnabled() bool {
	return c.Email.ResendAPIKey != "" && c.Email.OperatorEmail != ""
}
