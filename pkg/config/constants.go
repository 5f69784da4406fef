package config

const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	RealtimeDriverPusher = "pusher"
	RealtimeDriverRedis  = "redis"
)

const (
	EnvAppEnv             = "PROPNEST_APP_ENV"
	EnvAPIBaseURL         = "PROPNEST_API_BASE_URL"
	EnvAPIToken           = "PROPNEST_API_TOKEN"
	EnvRealtimeDriver     = "PROPNEST_REALTIME_DRIVER"
	EnvRealtimeAppKey     = "PROPNEST_REALTIME_APP_KEY"
	EnvRealtimeHost       = "PROPNEST_REALTIME_HOST"
	EnvRealtimePort       = "PROPNEST_REALTIME_PORT"
	EnvRealtimeScheme     = "PROPNEST_REALTIME_SCHEME"
	EnvRealtimeEvents     = "PROPNEST_REALTIME_EVENTS"
	EnvRealtimeConvention = "PROPNEST_REALTIME_CHANNEL_CONVENTION"
	EnvRetryMaxAttempts   = "PROPNEST_RETRY_MAX_ATTEMPTS"
	EnvRedisURL           = "PROPNEST_REDIS_URL"
	EnvRedisAddr          = "PROPNEST_REDIS_ADDR"
	EnvToastLoginRedirect = "PROPNEST_TOAST_LOGIN_REDIRECT_DELAY"
)
