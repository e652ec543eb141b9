package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "conjure"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	OpenAI       OpenAIConfig
	TikTok       TikTokConfig
	Upload       UploadConfig
	Pipeline     PipelineConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CONJURE_APP_ENV" required:"true"`
	Port         string `envconfig:"CONJURE_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CONJURE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONJURE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"CONJURE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN             string        `envconfig:"CONJURE_DB_DSN" required:"true"`
	MaxOpenConns    int           `envconfig:"CONJURE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONJURE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONJURE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONJURE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CONJURE_REDIS_URL" required:"true"`
	PoolSize     int           `envconfig:"CONJURE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONJURE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONJURE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONJURE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONJURE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"CONJURE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CONJURE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"CONJURE_JWT_EXPIRATION_MINUTES" default:"60"`
}

type OpenAIConfig struct {
	APIKey    string `envconfig:"CONJURE_OPENAI_API_KEY" required:"true"`
	ChatModel string `envconfig:"CONJURE_OPENAI_CHAT_MODEL" default:"gpt-4o"`
}

// TikTokConfig carries the platform upload endpoints and app credentials.
type TikTokConfig struct {
	ClientKey    string `envconfig:"CONJURE_TIKTOK_CLIENT_KEY"`
	ClientSecret string `envconfig:"CONJURE_TIKTOK_CLIENT_SECRET"`
	InitURL      string `envconfig:"CONJURE_TIKTOK_INIT_URL" default:"https://open.tiktokapis.com/v2/post/publish/video/init/"`
}

// UploadConfig holds the platform chunk-sizing constraints. The bounds are
// platform-mandated; they are configuration rather than hard-coded law so a
// platform-side change does not require a release.
type UploadConfig struct {
	MinChunkBytes int64  `envconfig:"CONJURE_UPLOAD_MIN_CHUNK_BYTES" default:"5242880"`
	MaxChunkBytes int64  `envconfig:"CONJURE_UPLOAD_MAX_CHUNK_BYTES" default:"67108864"`
	PrivacyLevel  string `envconfig:"CONJURE_UPLOAD_PRIVACY_LEVEL" default:"SELF_ONLY"`
}

type PipelineConfig struct {
	PollInterval  time.Duration `envconfig:"CONJURE_PIPELINE_POLL_INTERVAL" default:"10m"`
	WorkDir       string        `envconfig:"CONJURE_PIPELINE_WORK_DIR" default:"/tmp/conjurecontent"`
	FFmpegPath    string        `envconfig:"CONJURE_PIPELINE_FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath   string        `envconfig:"CONJURE_PIPELINE_FFPROBE_PATH" default:"ffprobe"`
	HardwareAccel bool          `envconfig:"CONJURE_PIPELINE_HARDWARE_ACCEL" default:"false"`
	MetricsPort   string        `envconfig:"CONJURE_PIPELINE_METRICS_PORT" default:"9091"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CONJURE_AUTO_MIGRATE" default:"false"`
}
