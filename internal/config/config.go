package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendHTTP        = "http"
	BackendRekognition = "rekognition"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBDriver   string

	AWSRegion          string
	SQSTriggerQueueURL string
	IoTEndpoint        string
	IoTResultTopic     string

	KafkaBrokers      string
	KafkaTopic        string
	KafkaClientID     string
	KafkaMaxRetries   int
	KafkaRetryBackoff time.Duration

	DetectionBackend         string // "http" or "rekognition"
	DetectionAPIURL          string
	DetectionNetworkTimeout  time.Duration
	DetectionWatchdogTimeout time.Duration
	OverlayClearAfter        time.Duration
	HistoryCapacity          int
	EncodeMaxWidth           int
	EncodeQuality            int
	PlatePattern             string

	JWTSecret            string
	JWTExpirationHours   time.Duration
	OperatorUsername     string
	OperatorPasswordHash string

	RetentionDays int
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: cannot load .env file: %v", err)
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "plate_reader"),
		DBPassword: getEnv("DB_PASSWORD", "plate_reader"),
		DBName:     getEnv("DB_NAME", "plate_reader"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),
		DBDriver:   strings.ToLower(getEnv("DB_DRIVER", "pgx")),

		AWSRegion:          getEnv("AWS_REGION", "ap-southeast-1"),
		SQSTriggerQueueURL: getEnv("SQS_TRIGGER_QUEUE_URL", ""),
		IoTEndpoint:        getEnv("IOT_ENDPOINT", ""),
		IoTResultTopic:     getEnv("IOT_RESULT_TOPIC", "plates/detections"),

		KafkaBrokers:      getEnv("KAFKA_BROKERS", ""),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "plate-detections"),
		KafkaClientID:     getEnv("KAFKA_CLIENT_ID", "plate-reader"),
		KafkaMaxRetries:   getEnvInt("KAFKA_MAX_RETRIES", 3),
		KafkaRetryBackoff: getEnvDuration("KAFKA_RETRY_BACKOFF", 100*time.Millisecond),

		DetectionBackend:         strings.ToLower(getEnv("DETECTION_BACKEND", BackendHTTP)),
		DetectionAPIURL:          getEnv("DETECTION_API_URL", "http://localhost:5000"),
		DetectionNetworkTimeout:  getEnvDuration("DETECTION_NETWORK_TIMEOUT", 8*time.Second),
		DetectionWatchdogTimeout: getEnvDuration("DETECTION_WATCHDOG_TIMEOUT", 10*time.Second),
		OverlayClearAfter:        getEnvDuration("OVERLAY_CLEAR_AFTER", 3*time.Second),
		HistoryCapacity:          getEnvInt("HISTORY_CAPACITY", 50),
		EncodeMaxWidth:           getEnvInt("ENCODE_MAX_WIDTH", 800),
		EncodeQuality:            getEnvInt("ENCODE_QUALITY", 50),
		PlatePattern:             getEnv("PLATE_PATTERN", `^[A-Z0-9]{2,4}[- ]?[A-Z0-9]{2,5}$`),

		JWTSecret:            getEnv("JWT_SECRET", "change-me-in-production"),
		JWTExpirationHours:   time.Duration(getEnvInt("JWT_EXPIRATION_HOURS", 24)) * time.Hour,
		OperatorUsername:     getEnv("OPERATOR_USERNAME", "operator"),
		OperatorPasswordHash: getEnv("OPERATOR_PASSWORD_HASH", ""),

		RetentionDays: getEnvInt("RETENTION_DAYS", 30),
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable '%s' not set, using default: '%s'", key, fallback)
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw := getEnv(key, strconv.Itoa(fallback))
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Environment variable '%s' is not an integer (%q), using default: %d", key, raw, fallback)
		return fallback
	}
	return v
}

// getEnvDuration accepts Go durations ("8s", "250ms") or plain seconds ("8").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, fallback.String())
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	log.Printf("Environment variable '%s' is not a duration (%q), using default: %s", key, raw, fallback)
	return fallback
}
