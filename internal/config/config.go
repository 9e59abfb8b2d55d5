package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	// S3 bucket holding raw payloads of dead-lettered events.
	DeadLetterBucket string
	// SNS topic notified when an event is dead-lettered. Empty disables it.
	OpsAlertTopicARN string

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	// FetchLimit caps the batch fetch of recent notifications.
	FetchLimit int
	// StreamBuffer is the per-subscriber channel depth for live pushes.
	StreamBuffer int

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Notifications string
	Users         string
	Projects      string
	Conversations string
	DeadLetters   string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Projects:      getEnv("DYNAMO_TABLE_PROJECTS", "projects"),
			Conversations: getEnv("DYNAMO_TABLE_CONVERSATIONS", "conversations"),
			DeadLetters:   getEnv("DYNAMO_TABLE_DEAD_LETTERS", "dead_letters"),
		},

		DeadLetterBucket: getEnv("DEAD_LETTER_BUCKET", "notify-dead-letters"),
		OpsAlertTopicARN: getEnv("OPS_ALERT_TOPIC_ARN", ""),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,

		FetchLimit:   getEnvInt("FETCH_LIMIT", 50),
		StreamBuffer: getEnvInt("STREAM_BUFFER", 64),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
