package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string         `mapstructure:"env"`
	Server   ServerConfig   `mapstructure:"server"`
	Grpc     GrpcConfig     `mapstructure:"grpc"`
	Database DatabaseConfig `mapstructure:"database"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Feedback FeedbackConfig `mapstructure:"feedback"`
	Upload   UploadConfig   `mapstructure:"upload"`
	Events   EventsConfig   `mapstructure:"events"`
	Export   ExportConfig   `mapstructure:"export"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int      `mapstructure:"idle_timeout_seconds"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

type GrpcConfig struct {
	Port string `mapstructure:"port"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
}

type AuthConfig struct {
	JWTSecret       string        `mapstructure:"jwt_secret"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
	// Bootstrap admin, created at start-up when both fields are set.
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
}

type FeedbackConfig struct {
	// AutoApprove makes new feedback start as approved instead of pending.
	AutoApprove bool `mapstructure:"auto_approve"`
}

// UploadConfig holds the Cloudinary credentials. It is handed to the upload
// client at start-up; nothing else reads it.
type UploadConfig struct {
	CloudName string `mapstructure:"cloud_name"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Folder    string `mapstructure:"folder"`
	BaseURL   string `mapstructure:"base_url"`
}

func (u UploadConfig) Enabled() bool {
	return u.CloudName != "" && u.APIKey != "" && u.APISecret != ""
}

type EventsConfig struct {
	// Broker selects the event transport: nats, kafka or none.
	Broker string      `mapstructure:"broker"`
	NATS   NATSConfig  `mapstructure:"nats"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

type ExportConfig struct {
	TempDir string `mapstructure:"temp_dir"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 60)
	v.SetDefault("server.idle_timeout_seconds", 120)
	v.SetDefault("grpc.port", "9090")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "feedback")
	v.SetDefault("auth.issuer", "feedback-service")
	v.SetDefault("auth.access_token_ttl", 15*time.Minute)
	v.SetDefault("auth.refresh_token_ttl", 7*24*time.Hour)
	v.SetDefault("feedback.auto_approve", true)
	v.SetDefault("upload.folder", "feedback/profiles")
	v.SetDefault("upload.base_url", "https://api.cloudinary.com")
	v.SetDefault("events.broker", "none")
	v.SetDefault("events.nats.subject", "feedback.events")
	v.SetDefault("events.kafka.topic", "feedback-events")
	v.SetDefault("events.kafka.group_id", "feedback-service-audit")
}

func Load() (*Config, error) {
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")   // Kubernetes mount
	v.AddConfigPath("./configs")  // repo root
	v.AddConfigPath("../configs") // IDE from cmd/
	v.AddConfigPath("../../configs")

	// Config file is optional; ENV variables fill the gaps.
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("No config file found (will use ENV variables): %v\n", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	v.BindEnv("auth.admin_email", "ADMIN_EMAIL")
	v.BindEnv("auth.admin_password", "ADMIN_PASSWORD")
	v.BindEnv("upload.cloud_name", "CLOUDINARY_CLOUD_NAME")
	v.BindEnv("upload.api_key", "CLOUDINARY_API_KEY")
	v.BindEnv("upload.api_secret", "CLOUDINARY_API_SECRET")
	v.BindEnv("upload.folder", "CLOUDINARY_FOLDER")
	v.BindEnv("grpc.port", "GRPC_PORT")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.Env = env

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (JWT_SECRET) is required")
	}
	switch c.Events.Broker {
	case "nats", "kafka", "none":
	default:
		return fmt.Errorf("events.broker must be one of nats, kafka, none; got %q", c.Events.Broker)
	}
	return nil
}
