package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App       AppConfig
	Service   ServiceConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	GCP       GCPConfig
	GCS       GCSConfig
	PubSub    PubSubConfig
	Encoding  EncodingConfig
	Transcode TranscodeConfig
	Media     MediaConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"COURSECAST_APP_ENV" required:"true"`
	Port         string `envconfig:"COURSECAST_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"COURSECAST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"COURSECAST_LOG_WARN_STACK" default:"false"`
	AutoMigrate  bool   `envconfig:"COURSECAST_AUTO_MIGRATE" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"COURSECAST_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"COURSECAST_DB_DSN"`
	Driver string `envconfig:"COURSECAST_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"COURSECAST_DB_HOST"`
	LegacyPort     int    `envconfig:"COURSECAST_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"COURSECAST_DB_USER"`
	LegacyPassword string `envconfig:"COURSECAST_DB_PASSWORD"`
	LegacyName     string `envconfig:"COURSECAST_DB_NAME"`
	LegacySSLMode  string `envconfig:"COURSECAST_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"COURSECAST_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"COURSECAST_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"COURSECAST_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"COURSECAST_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"COURSECAST_REDIS_URL" required:"true"`
	Address      string        `envconfig:"COURSECAST_REDIS_ADDR"`
	Password     string        `envconfig:"COURSECAST_REDIS_PASSWORD"`
	DB           int           `envconfig:"COURSECAST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"COURSECAST_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"COURSECAST_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"COURSECAST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"COURSECAST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"COURSECAST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"COURSECAST_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"COURSECAST_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"COURSECAST_JWT_EXPIRATION_MINUTES" default:"60"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"COURSECAST_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"COURSECAST_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"COURSECAST_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	InputBucket     string        `envconfig:"COURSECAST_GCS_INPUT_BUCKET" required:"true"`
	OutputBucket    string        `envconfig:"COURSECAST_GCS_OUTPUT_BUCKET" required:"true"`
	UploadURLExpiry time.Duration `envconfig:"COURSECAST_GCS_UPLOAD_URL_EXPIRY" default:"1h"`
}

type PubSubConfig struct {
	UploadTopic        string `envconfig:"COURSECAST_PUBSUB_UPLOAD_TOPIC" required:"true"`
	UploadSubscription string `envconfig:"COURSECAST_PUBSUB_UPLOAD_SUBSCRIPTION" required:"true"`
}

// EncodingConfig names the provider-side resources the pipeline resolves at
// the start of every run. The four resource ids are provisioned once per
// deployment and referenced here, not created by this service.
type EncodingConfig struct {
	BaseURL       string        `envconfig:"COURSECAST_ENCODING_BASE_URL" required:"true"`
	APIKey        string        `envconfig:"COURSECAST_ENCODING_API_KEY" required:"true"`
	InputID       string        `envconfig:"COURSECAST_ENCODING_INPUT_ID" required:"true"`
	OutputID      string        `envconfig:"COURSECAST_ENCODING_OUTPUT_ID" required:"true"`
	VideoConfigID string        `envconfig:"COURSECAST_ENCODING_VIDEO_CONFIG_ID" required:"true"`
	AudioConfigID string        `envconfig:"COURSECAST_ENCODING_AUDIO_CONFIG_ID" required:"true"`
	HTTPTimeout   time.Duration `envconfig:"COURSECAST_ENCODING_HTTP_TIMEOUT" default:"30s"`
}

type TranscodeConfig struct {
	PollInterval      time.Duration `envconfig:"COURSECAST_TRANSCODE_POLL_INTERVAL" default:"10s"`
	MaxPollDuration   time.Duration `envconfig:"COURSECAST_TRANSCODE_MAX_POLL_DURATION" default:"2h"`
	SegmentLength     float64       `envconfig:"COURSECAST_TRANSCODE_SEGMENT_LENGTH" default:"4"`
	ThumbnailOffsets  []int         `envconfig:"COURSECAST_TRANSCODE_THUMBNAIL_OFFSETS" default:"10,20,30"`
	WaitForThumbnails bool          `envconfig:"COURSECAST_TRANSCODE_WAIT_FOR_THUMBNAILS" default:"false"`
	LockTTL           time.Duration `envconfig:"COURSECAST_TRANSCODE_LOCK_TTL" default:"4h"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"COURSECAST_MAX_UPLOAD_MB" default:"2048"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
