package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Realtime RealtimeConfig
	Retry    RetryConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Status   StatusConfig
	Toast    ToastConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field rules envconfig cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	if c.Realtime.Enabled() && c.Realtime.Driver == RealtimeDriverRedis && c.Redis.URL == "" && c.Redis.Address == "" {
		return fmt.Errorf("%s or %s required when %s=%s", EnvRedisURL, EnvRedisAddr, EnvRealtimeDriver, RealtimeDriverRedis)
	}
	return nil
}

type AppConfig struct {
	Env          string `envconfig:"PROPNEST_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"PROPNEST_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PROPNEST_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type APIConfig struct {
	BaseURL   string        `envconfig:"PROPNEST_API_BASE_URL" required:"true" validate:"required,url"`
	Timeout   time.Duration `envconfig:"PROPNEST_API_TIMEOUT" default:"15s" validate:"gt=0"`
	UserAgent string        `envconfig:"PROPNEST_API_USER_AGENT" default:"propnest-client"`
	Token     string        `envconfig:"PROPNEST_API_TOKEN"`
	UserID    int64         `envconfig:"PROPNEST_API_USER_ID" validate:"gte=0"`
}

type RealtimeConfig struct {
	Driver       string   `envconfig:"PROPNEST_REALTIME_DRIVER" default:"pusher" validate:"oneof=pusher redis"`
	Host         string   `envconfig:"PROPNEST_REALTIME_HOST" default:"localhost"`
	Port         int      `envconfig:"PROPNEST_REALTIME_PORT" default:"8080" validate:"gt=0,lt=65536"`
	Scheme       string   `envconfig:"PROPNEST_REALTIME_SCHEME" default:"http" validate:"oneof=http https ws wss"`
	AppKey       string   `envconfig:"PROPNEST_REALTIME_APP_KEY"`
	AuthEndpoint string   `envconfig:"PROPNEST_REALTIME_AUTH_ENDPOINT"`
	Events       []string `envconfig:"PROPNEST_REALTIME_EVENTS"`
	Convention   string   `envconfig:"PROPNEST_REALTIME_CHANNEL_CONVENTION" default:"model" validate:"oneof=model user"`
	RedisPrefix  string   `envconfig:"PROPNEST_REALTIME_REDIS_PREFIX"`
}

// Enabled reports whether real-time features are configured. A missing app key
// disables them without failing startup.
func (r RealtimeConfig) Enabled() bool {
	return strings.TrimSpace(r.AppKey) != ""
}

// SocketURL builds the websocket URL for the configured host.
func (r RealtimeConfig) SocketURL() string {
	scheme := "ws"
	switch strings.ToLower(r.Scheme) {
	case "https", "wss":
		scheme = "wss"
	}
	u := url.URL{
		Scheme: scheme,
		Host:   fmt.Sprintf("%s:%d", r.Host, r.Port),
		Path:   "/app/" + r.AppKey,
	}
	return u.String()
}

// AuthURL resolves the private-channel authorization endpoint. It defaults to
// <api base>/broadcasting/auth.
func (r RealtimeConfig) AuthURL(apiBase string) string {
	if endpoint := strings.TrimSpace(r.AuthEndpoint); endpoint != "" {
		return endpoint
	}
	return strings.TrimRight(apiBase, "/") + "/broadcasting/auth"
}

type RetryConfig struct {
	MaxAttempts     int           `envconfig:"PROPNEST_RETRY_MAX_ATTEMPTS" default:"3" validate:"gte=1,lte=10"`
	InitialInterval time.Duration `envconfig:"PROPNEST_RETRY_INITIAL_INTERVAL" default:"1s"`
	MaxInterval     time.Duration `envconfig:"PROPNEST_RETRY_MAX_INTERVAL" default:"30s"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PROPNEST_REDIS_URL"`
	Address      string        `envconfig:"PROPNEST_REDIS_ADDR"`
	Password     string        `envconfig:"PROPNEST_REDIS_PASSWORD"`
	DB           int           `envconfig:"PROPNEST_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PROPNEST_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"PROPNEST_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"PROPNEST_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PROPNEST_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PROPNEST_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type CacheConfig struct {
	Enabled bool   `envconfig:"PROPNEST_CACHE_ENABLED" default:"false"`
	Path    string `envconfig:"PROPNEST_CACHE_PATH" default:"propnest-cache.db"`
}

type StatusConfig struct {
	Enabled        bool     `envconfig:"PROPNEST_STATUS_ENABLED" default:"true"`
	Host           string   `envconfig:"PROPNEST_STATUS_HOST" default:"127.0.0.1"`
	Port           string   `envconfig:"PROPNEST_STATUS_PORT" default:"9090"`
	Token          string   `envconfig:"PROPNEST_STATUS_TOKEN"`
	AllowedOrigins []string `envconfig:"PROPNEST_STATUS_ALLOWED_ORIGINS"`
}

// Addr is the listen address for the local status API.
func (s StatusConfig) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

type ToastConfig struct {
	SeenCapacity  int           `envconfig:"PROPNEST_TOAST_SEEN_CAPACITY" default:"0" validate:"gte=0"`
	LoginRedirect time.Duration `envconfig:"PROPNEST_TOAST_LOGIN_REDIRECT_DELAY" default:"2s"`
}
