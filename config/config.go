package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const minJWTSecretLength = 32

// Backend names accepted by STORAGE_BACKEND and MQ_BACKEND.
const (
	BackendNone  = "none"
	StorageMinio = "minio"
	StorageGCS   = "gcs"
	MQRabbitMQ   = "rabbitmq"
	MQPubSub     = "pubsub"
)

type Config struct {
	Env        string
	ServerPort int
	Database   DatabaseConfig
	Auth       AuthConfig
	Log        LogConfig
	Storage    StorageConfig
	MQ         MQConfig
}

type DatabaseConfig struct {
	// URL is a full connection string. When set it takes precedence over
	// the individual fields below.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool

	// Pool limits; zero selects the built-in defaults.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret      string
	JWTAlgorithm   string
	TokenTTL       time.Duration
	PasswordHasher string
	BcryptCost     int
}

type LogConfig struct {
	Level  string
	Format string
}

type StorageConfig struct {
	// Backend is one of "none", "minio" or "gcs".
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type MQConfig struct {
	// Backend is one of "none", "rabbitmq" or "pubsub".
	Backend       string
	EventsChannel string
	RabbitMQ      RabbitMQConfig
	PubSub        PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		URL:      getEnv("DATABASE_URL", ""),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "todo"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "todo_db"),
		UseSSL:   getEnvBool("DB_SSL", false),

		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 0),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 0),
		ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 0),
	}

	authConfig := AuthConfig{
		JWTSecret:      strings.TrimSpace(getEnv("JWT_SECRET", "")),
		JWTAlgorithm:   getEnv("JWT_ALGORITHM", "HS256"),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 24*time.Hour),
		PasswordHasher: getEnv("PASSWORD_HASHER", "bcrypt"),
		BcryptCost:     getEnvInt("BCRYPT_COST", 0),
	}

	storageConfig := StorageConfig{
		Backend: strings.ToLower(getEnv("STORAGE_BACKEND", "none")),
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "todo-exports"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	mqConfig := MQConfig{
		Backend:       strings.ToLower(getEnv("MQ_BACKEND", "none")),
		EventsChannel: getEnv("EVENTS_CHANNEL", "todo-events"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 0),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	return Config{
		Env:        getEnv("ENV", "prod"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),
		Database:   dbConfig,
		Auth:       authConfig,
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Storage: storageConfig,
		MQ:      mqConfig,
	}
}

// Validate reports configuration that would make the server unsafe or
// unable to start.
func (c Config) Validate() error {
	var errs []error

	switch {
	case c.Auth.JWTSecret == "":
		errs = append(errs, errors.New("JWT_SECRET is required"))
	case len(c.Auth.JWTSecret) < minJWTSecretLength:
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLength))
	}

	switch c.Auth.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported JWT_ALGORITHM %q", c.Auth.JWTAlgorithm))
	}

	// Token claims carry whole seconds.
	if c.Auth.TokenTTL < time.Second {
		errs = append(errs, errors.New("TOKEN_TTL must be at least 1s"))
	}

	switch c.Auth.PasswordHasher {
	case "bcrypt", "argon2id":
	default:
		errs = append(errs, fmt.Errorf("unsupported PASSWORD_HASHER %q", c.Auth.PasswordHasher))
	}

	switch c.Storage.Backend {
	case BackendNone, StorageMinio, StorageGCS:
	default:
		errs = append(errs, fmt.Errorf("unsupported STORAGE_BACKEND %q", c.Storage.Backend))
	}

	switch c.MQ.Backend {
	case BackendNone, MQRabbitMQ, MQPubSub:
	default:
		errs = append(errs, fmt.Errorf("unsupported MQ_BACKEND %q", c.MQ.Backend))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(valueStr)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	if d, err := time.ParseDuration(strings.TrimSpace(valueStr)); err == nil {
		return d
	}
	// Bare integers are minutes.
	var minutes int
	if _, err := fmt.Sscanf(valueStr, "%d", &minutes); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	return defaultValue
}
