package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"brandhub/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Logger      Logger      `json:"logger"`
	OAuth       OAuth       `json:"oauth"`
	Publisher   Publisher   `json:"publisher"`
	Scheduler   Scheduler   `json:"scheduler"`
	Events      Events      `json:"events"`
	Sentry      Sentry      `json:"sentry"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
	// AllowedOrigins feeds the CORS middleware. Empty means any origin.
	AllowedOrigins []string `json:"allowedOrigins"`
}

type Database struct {
	// Vendor selects the relational store: "postgres" (default) or "mysql".
	Vendor string `json:"vendor"`
	Psql   Db     `json:"psql"`
	MySql  Db     `json:"mysql"`
	Mongo  Db     `json:"mongo"`
}

type Db struct {
	Name     string `json:"string"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	TopicID   string `json:"topicID"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	QueueName string `json:"queueName"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

type Logger struct {
	Format string `json:"format"`
	Level  string `json:"level"`
}

// OAuth holds the platform OAuth client credentials used for token refresh.
type OAuth struct {
	Twitter  OAuthClient `json:"twitter"`
	LinkedIn OAuthClient `json:"linkedin"`
	Meta     OAuthClient `json:"meta"`
	YouTube  OAuthClient `json:"youtube"`
}

type OAuthClient struct {
	ClientID     string   `json:"clientId"`
	ClientSecret string   `json:"clientSecret"`
	RedirectURI  string   `json:"redirectURI"`
	Scopes       []string `json:"scopes"`
}

type Publisher struct {
	MaxConcurrentPlatforms   int `json:"maxConcurrentPlatforms"`
	AttemptTimeoutSeconds    int `json:"attemptTimeoutSeconds"`
	HTTPTimeoutSeconds       int `json:"httpTimeoutSeconds"`
	MediaPollIntervalSeconds int `json:"mediaPollIntervalSeconds"`
	MediaPollTimeoutSeconds  int `json:"mediaPollTimeoutSeconds"`
	RefreshWindowSeconds     int `json:"refreshWindowSeconds"`
	LockTTLSeconds           int `json:"lockTTLSeconds"`
}

type Scheduler struct {
	Enabled            bool `json:"enabled"`
	IntervalSeconds    int  `json:"intervalSeconds"`
	BatchBudgetSeconds int  `json:"batchBudgetSeconds"`
	BatchSize          int  `json:"batchSize"`
}

// Events selects the outbound channel for publish events:
// "" (none), "pubsub" or "servicebus".
type Events struct {
	Broker string `json:"broker"`
	Audit  bool   `json:"audit"`
}

type Sentry struct {
	DSN         string `json:"dsn"`
	Environment string `json:"environment"`
}

var C Config

func init() {
	LoadEnvFromFile(".env", "config.env")
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	initOAuth(&C)
	initPublisher(&C)
	initScheduler(&C)
	initObservability(&C)
}

func LoadConfig() {
	name := getConfig()
	viper.SetConfigName(name)
	viper.SetConfigType("json")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("../../")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			logger.GetLogger().Warn("Config file not found")
		} else {
			logger.GetLogger().WithField("error", err).Error("Error reading config file")
		}
	}

	logger.GetLogger().WithField("config", name).Info("Config set up successfully")
	if err := viper.Unmarshal(&C); err != nil {
		logger.GetLogger().WithField("error", err).Error("Viper unable to decode into struct")
	}
}

func getConfig() string {
	name := "config"
	env := os.Getenv("ENV")
	if env != "" {
		name = fmt.Sprintf("%s-%s", name, env)
	}
	return name
}

func initDatabase(C *Config) {
	if v := os.Getenv("DB_VENDOR"); v != "" {
		C.Database.Vendor = v
	}
	C.Database.Vendor = strings.ToLower(C.Database.Vendor)
	if C.Database.Vendor == "" {
		C.Database.Vendor = "postgres"
	}

	if C.Database.Psql.Name == "" {
		C.Database.Psql.Name = os.Getenv("DB_NAME")
	}
	if C.Database.Psql.Host == "" {
		C.Database.Psql.Host = os.Getenv("DB_HOST")
	}
	if C.Database.Psql.User == "" {
		C.Database.Psql.User = os.Getenv("DB_USER")
	}
	if C.Database.Psql.Password == "" {
		C.Database.Psql.Password = os.Getenv("DB_PASSWORD")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = getEnv("DB_PORT", "5432")
	}
	if C.Database.Psql.SSLMode == "" {
		C.Database.Psql.SSLMode = getEnv("DB_SSLMODE", "disable")
	}

	if C.Database.MySql.Name == "" {
		C.Database.MySql.Name = os.Getenv("MYSQL_DB_NAME")
	}
	if C.Database.MySql.Host == "" {
		C.Database.MySql.Host = getEnv("MYSQL_HOST", "localhost")
	}
	if C.Database.MySql.Port == "" {
		C.Database.MySql.Port = getEnv("MYSQL_PORT", "3306")
	}
	if C.Database.MySql.User == "" {
		C.Database.MySql.User = os.Getenv("MYSQL_USER")
	}
	if C.Database.MySql.Password == "" {
		C.Database.MySql.Password = os.Getenv("MYSQL_PASSWORD")
	}

	if C.Database.Mongo.Host == "" {
		C.Database.Mongo.Host = os.Getenv("MONGO_HOST")
	}
	if C.Database.Mongo.Name == "" {
		C.Database.Mongo.Name = getEnv("MONGO_DB_NAME", "brandhub")
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"vendor": C.Database.Vendor,
		"host":   C.Database.Psql.Host,
	}).Info("Database configuration")
}

func initApp(C *Config) {
	// Prefer SECRET_KEY from environment for JWT verification.
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	// Port resolution order: APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		C.App.TLSEnabled = parseBool(v, C.App.TLSEnabled)
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if C.App.TLSEnabled {
		if C.App.TLSCertFile == "" {
			if _, err := os.Stat("certs/localhost.crt"); err == nil {
				C.App.TLSCertFile = "certs/localhost.crt"
			}
		}
		if C.App.TLSKeyFile == "" {
			if _, err := os.Stat("certs/localhost.key"); err == nil {
				C.App.TLSKeyFile = "certs/localhost.key"
			}
		}
		logger.GetLogger().WithFields(map[string]interface{}{"cert": C.App.TLSCertFile, "key": C.App.TLSKeyFile}).Info("TLS enabled via configuration")
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		C.App.AllowedOrigins = splitList(v)
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; JWT authentication will fail. Provide SECRET_KEY via environment.")
	}
}

func initPublisher(C *Config) {
	p := &C.Publisher
	p.MaxConcurrentPlatforms = envInt("PUBLISHER_MAX_CONCURRENT_PLATFORMS", p.MaxConcurrentPlatforms, 4)
	p.AttemptTimeoutSeconds = envInt("PUBLISHER_ATTEMPT_TIMEOUT_SECONDS", p.AttemptTimeoutSeconds, 120)
	p.HTTPTimeoutSeconds = envInt("PUBLISHER_HTTP_TIMEOUT_SECONDS", p.HTTPTimeoutSeconds, 15)
	p.MediaPollIntervalSeconds = envInt("PUBLISHER_MEDIA_POLL_INTERVAL_SECONDS", p.MediaPollIntervalSeconds, 2)
	p.MediaPollTimeoutSeconds = envInt("PUBLISHER_MEDIA_POLL_TIMEOUT_SECONDS", p.MediaPollTimeoutSeconds, 90)
	p.RefreshWindowSeconds = envInt("PUBLISHER_REFRESH_WINDOW_SECONDS", p.RefreshWindowSeconds, 300)
	p.LockTTLSeconds = envInt("PUBLISHER_LOCK_TTL_SECONDS", p.LockTTLSeconds, 600)
}

func initScheduler(C *Config) {
	s := &C.Scheduler
	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		s.Enabled = parseBool(v, s.Enabled)
	}
	s.IntervalSeconds = envInt("SCHEDULER_INTERVAL_SECONDS", s.IntervalSeconds, 60)
	s.BatchBudgetSeconds = envInt("SCHEDULER_BATCH_BUDGET_SECONDS", s.BatchBudgetSeconds, 300)
	s.BatchSize = envInt("SCHEDULER_BATCH_SIZE", s.BatchSize, 50)
}

func initObservability(C *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		C.Logger.Level = v
	}
	logger.SetLevel(C.Logger.Level)
	logger.SetFormat(C.Logger.Format)

	if v := os.Getenv("SENTRY_DSN"); v != "" {
		C.Sentry.DSN = v
	}
	if C.Sentry.Environment == "" {
		C.Sentry.Environment = getEnv("ENV", "local")
	}
	if v := os.Getenv("EVENTS_BROKER"); v != "" {
		C.Events.Broker = strings.ToLower(v)
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" && C.Pubsub.ProjectID == "" {
		C.Pubsub.ProjectID = v
	}
	if C.Pubsub.TopicID == "" {
		C.Pubsub.TopicID = getEnv("PUBSUB_TOPIC_ID", "content-publish")
	}
	if C.ServiceBus.QueueName == "" {
		C.ServiceBus.QueueName = getEnv("SERVICEBUS_QUEUE_NAME", "content-publish")
	}
}

// envInt resolves an int setting: env var, then configured value, then def.
func envInt(key string, configured, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		logger.GetLogger().WithField("key", key).Warn("Ignoring invalid integer setting")
	}
	if configured > 0 {
		return configured
	}
	return def
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
