package configuration

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"story-syndication/infrastructure/logger"

	"github.com/spf13/viper"
)

type Config struct {
	Database    Database    `json:"database"`
	App         App         `json:"app"`
	Pubsub      Pubsub      `json:"pubsub"`
	ServiceBus  ServiceBus  `json:"serviceBus"`
	RedisClient RedisClient `json:"redisClient"`
	Syndication Syndication `json:"syndication"`
	Webhook     Webhook     `json:"webhook"`
	Engagement  Engagement  `json:"engagement"`
	Expiry      Expiry      `json:"expiry"`
}

type App struct {
	Port        int    `json:"port"`
	SecretKey   string `json:"secretKey"`
	TLSEnabled  bool   `json:"tlsEnabled"`
	TLSCertFile string `json:"tlsCertFile"`
	TLSKeyFile  string `json:"tlsKeyFile"`
}

type Database struct {
	// Driver selects the ledger backend: "postgres" (default) or "mssql".
	Driver string `json:"driver"`
	Psql   Db     `json:"psql"`
	Mssql  Db     `json:"mssql"`
}

type Db struct {
	Name     string `json:"name"`
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	SSLMode  string `json:"sslMode"`
}

type Pubsub struct {
	ProjectID string `json:"projectID"`
	Topic     string `json:"topic"`
}

type ServiceBus struct {
	Namespace string `json:"namespace"`
	Queue     string `json:"queue"`
}

type RedisClient struct {
	Host         string `json:"host"`
	Port         string `json:"port"`
	Password     string `json:"password"`
	DatabaseName string `json:"databaseName"`
	Username     string `json:"username"`
}

// Syndication holds settings for the public content boundary.
type Syndication struct {
	EmbedSecret        string   `json:"embedSecret"`
	BaseURL            string   `json:"baseURL"`
	AttributionMessage string   `json:"attributionMessage"`
	AllowedOrigins     []string `json:"allowedOrigins"`
}

type Webhook struct {
	MaxAttempts    int           `json:"maxAttempts"`
	InitialBackoff time.Duration `json:"initialBackoff"`
	MaxBackoff     time.Duration `json:"maxBackoff"`
	AttemptTimeout time.Duration `json:"attemptTimeout"`
	Workers        int           `json:"workers"`
	QueueName      string        `json:"queueName"`
}

type Engagement struct {
	Workers int `json:"workers"`
	Buffer  int `json:"buffer"`
}

type Expiry struct {
	SweepInterval time.Duration `json:"sweepInterval"`
	BatchSize     int           `json:"batchSize"`
}

var C Config

func init() {
	LoadEnvFromFile("config.env", ".env")
	LoadConfig()
	initDatabase(&C)
	initApp(&C)
	ApplyDefaults(&C)
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
	if v := os.Getenv("DB_DRIVER"); v != "" {
		C.Database.Driver = v
	}
	if C.Database.Driver == "" {
		C.Database.Driver = "postgres"
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
		C.Database.Psql.Port = os.Getenv("DB_PORT")
	}
	if C.Database.Psql.Port == "" {
		C.Database.Psql.Port = "5432"
	}
	if C.Database.Psql.SSLMode == "" {
		C.Database.Psql.SSLMode = "disable"
	}

	// Azure SQL in production
	if C.Database.Mssql.Name == "" {
		C.Database.Mssql.Name = os.Getenv("MSSQL_DB_NAME")
	}
	if C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = os.Getenv("MSSQL_HOST")
	}
	if C.Database.Mssql.Password == "" {
		C.Database.Mssql.Password = os.Getenv("MSSQL_PASSWORD")
	}
	if C.Database.Mssql.User == "" {
		C.Database.Mssql.User = os.Getenv("MSSQL_USER")
	}
	if C.Database.Mssql.Port == "" {
		if v := os.Getenv("MSSQL_PORT"); v != "" {
			C.Database.Mssql.Port = v
		} else {
			C.Database.Mssql.Port = "1433"
		}
	}
	if C.Database.Mssql.Host == "" {
		C.Database.Mssql.Host = "localhost"
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"driver": C.Database.Driver,
		"host":   C.Database.Psql.Host,
		"name":   C.Database.Psql.Name,
	}).Info("Database configuration")
}

func initApp(C *Config) {
	// SECRET_KEY verifies owner JWTs; env wins over the config file.
	if v := os.Getenv("SECRET_KEY"); v != "" {
		C.App.SecretKey = v
	}
	if v := os.Getenv("EMBED_SECRET"); v != "" {
		C.Syndication.EmbedSecret = v
	}
	// APP_PORT -> PORT -> config -> default 10001
	if v := os.Getenv("APP_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	} else if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			C.App.Port = p
		}
	}
	if v := os.Getenv("TLS_ENABLED"); v != "" {
		switch strings.ToLower(v) {
		case "1", "true":
			C.App.TLSEnabled = true
		case "0", "false":
			C.App.TLSEnabled = false
		}
	}
	if C.App.TLSCertFile == "" {
		C.App.TLSCertFile = os.Getenv("TLS_CERT_FILE")
	}
	if C.App.TLSKeyFile == "" {
		C.App.TLSKeyFile = os.Getenv("TLS_KEY_FILE")
	}
	if v := os.Getenv("PUBSUB_PROJECT_ID"); v != "" {
		C.Pubsub.ProjectID = v
	}
	if v := os.Getenv("SERVICEBUS_NAMESPACE"); v != "" {
		C.ServiceBus.Namespace = v
	}
	if C.App.SecretKey == "" {
		logger.GetLogger().Warn("App.SecretKey not set; owner authentication will fail. Provide SECRET_KEY via environment.")
	}
	if C.Syndication.EmbedSecret == "" {
		logger.GetLogger().Warn("Syndication.EmbedSecret not set; falling back to App.SecretKey for embed tokens")
	}
}

// ApplyDefaults fills every zero value that has a sensible default.
func ApplyDefaults(C *Config) {
	if C.App.Port == 0 {
		C.App.Port = 10001
	}
	if C.Syndication.EmbedSecret == "" {
		C.Syndication.EmbedSecret = C.App.SecretKey
	}
	if C.Syndication.AttributionMessage == "" {
		C.Syndication.AttributionMessage = "Shared via Story Syndication"
	}
	if C.Syndication.BaseURL == "" {
		C.Syndication.BaseURL = fmt.Sprintf("http://localhost:%d", C.App.Port)
	}
	if C.Pubsub.Topic == "" {
		C.Pubsub.Topic = "distribution-events"
	}
	if C.ServiceBus.Queue == "" {
		C.ServiceBus.Queue = "distribution-events"
	}
	if C.Webhook.MaxAttempts <= 0 {
		C.Webhook.MaxAttempts = 5
	}
	if C.Webhook.InitialBackoff <= 0 {
		C.Webhook.InitialBackoff = time.Second
	}
	if C.Webhook.MaxBackoff <= 0 {
		C.Webhook.MaxBackoff = time.Minute
	}
	if C.Webhook.AttemptTimeout <= 0 {
		C.Webhook.AttemptTimeout = 10 * time.Second
	}
	if C.Webhook.Workers <= 0 {
		C.Webhook.Workers = 4
	}
	if C.Webhook.QueueName == "" {
		C.Webhook.QueueName = "syndication:revocations"
	}
	if C.Engagement.Workers <= 0 {
		C.Engagement.Workers = 2
	}
	if C.Engagement.Buffer <= 0 {
		C.Engagement.Buffer = 1024
	}
	if C.Expiry.SweepInterval <= 0 {
		C.Expiry.SweepInterval = time.Minute
	}
	if C.Expiry.BatchSize <= 0 {
		C.Expiry.BatchSize = 100
	}
}
