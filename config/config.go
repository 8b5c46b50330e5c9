package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server   ServerConfig
	HTTP     HTTPConfig
	Logger   LoggerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Elastic  ElasticsearchConfig
	Mongo    MongoConfig
	Shopify  ShopifyConfig
	Queue    QueueConfig
	Batch    BatchConfig
	Counter  CounterConfig
}

type ServerConfig struct {
	AppEnv   string
	GRPCPort string
}

type HTTPConfig struct {
	Port         string
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
	File              string
	FileMaxSizeMB     int
	FileMaxBackups    int
	FileMaxAgeDays    int
}

type DatabaseConfig struct {
	// Driver is "pgx" for Postgres or "sqlite" for the embedded development database.
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

type ShopifyConfig struct {
	APIVersion string
	APISecret  string
	Timeout    time.Duration
}

type QueueConfig struct {
	// Driver is "kafka" or "sync" (in-process, no broker).
	Driver      string
	Concurrency int
	MaxAttempts int
	Backoff     []time.Duration
	JobTimeout  time.Duration
}

type BatchConfig struct {
	ChunkSize int
}

type CounterConfig struct {
	LockWait time.Duration
}

func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   getEnv("APP_ENV", "dev"),
			GRPCPort: getEnv("GRPC_PORT", ":8082"),
		},
		HTTP: HTTPConfig{
			Port:         getEnv("HTTP_PORT", ":8080"),
			BodyLimit:    getEnvInt("HTTP_BODY_LIMIT", 4<<20),
			ReadTimeout:  getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		},
		Logger: LoggerConfig{
			Level:             getEnv("LOGGER_LEVEL", "debug"),
			Encoding:          getEnv("LOGGER_ENCODING", "console"),
			DisableCaller:     getEnvBool("LOGGER_DISABLE_CALLER", false),
			DisableStacktrace: getEnvBool("LOGGER_DISABLE_STACKTRACE", true),
			File:              getEnv("LOGGER_FILE", ""),
			FileMaxSizeMB:     getEnvInt("LOGGER_FILE_MAX_SIZE_MB", 100),
			FileMaxBackups:    getEnvInt("LOGGER_FILE_MAX_BACKUPS", 5),
			FileMaxAgeDays:    getEnvInt("LOGGER_FILE_MAX_AGE_DAYS", 14),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "pgx"),
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "shopsync"),
			Password:        getEnv("POSTGRES_PASSWORD", "shopsync"),
			DBName:          getEnv("POSTGRES_DB", "shopsync"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			SQLitePath:      getEnv("SQLITE_PATH", "shopsync.db"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
			ConnMaxIdleTime: getEnvInt("POSTGRES_CONN_MAX_IDLE_TIME", 60),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:   getEnv("KAFKA_TOPIC_JOBS", "shopsync.jobs"),
			GroupID: getEnv("KAFKA_GROUP_WORKERS", "shopsync-workers"),
		},
		Elastic: ElasticsearchConfig{
			Addresses: getEnvSlice("ELASTICSEARCH_ADDRESSES", nil),
			Username:  getEnv("ELASTICSEARCH_USERNAME", ""),
			Password:  getEnv("ELASTICSEARCH_PASSWORD", ""),
			Index:     getEnv("ELASTICSEARCH_INDEX", "shop_variants"),
		},
		Mongo: MongoConfig{
			URI:        getEnv("MONGO_URI", ""),
			Database:   getEnv("MONGO_DB", "shopsync"),
			Collection: getEnv("MONGO_ACTIVITY_COLLECTION", "activity_logs"),
		},
		Shopify: ShopifyConfig{
			APIVersion: getEnv("SHOPIFY_API_VERSION", "2024-10"),
			APISecret:  getEnv("SHOPIFY_API_SECRET", ""),
			Timeout:    getEnvDuration("SHOPIFY_TIMEOUT", 30*time.Second),
		},
		Queue: QueueConfig{
			Driver:      getEnv("QUEUE_DRIVER", "kafka"),
			Concurrency: getEnvInt("QUEUE_CONCURRENCY", 4),
			MaxAttempts: getEnvInt("QUEUE_MAX_ATTEMPTS", 5),
			Backoff: getEnvDurations("QUEUE_BACKOFF", []time.Duration{
				10 * time.Second, 30 * time.Second, 60 * time.Second, 120 * time.Second, 300 * time.Second,
			}),
			JobTimeout: getEnvDuration("QUEUE_JOB_TIMEOUT", 10*time.Minute),
		},
		Batch: BatchConfig{
			ChunkSize: getEnvInt("BATCH_CHUNK_SIZE", 100),
		},
		Counter: CounterConfig{
			LockWait: getEnvDuration("COUNTER_LOCK_WAIT", 5*time.Second),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvSlice(key string, fallback []string) []string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return strings.Split(value, ",")
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvDurations parses a comma separated list such as "10s,30s,1m".
func getEnvDurations(key string, fallback []time.Duration) []time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback
	}
	var out []time.Duration
	for _, part := range strings.Split(value, ",") {
		d, err := time.ParseDuration(strings.TrimSpace(part))
		if err != nil {
			return fallback
		}
		out = append(out, d)
	}
	return out
}
