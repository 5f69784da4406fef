package app

import (
	"context"
	"io"

	"github.com/propnest/propnest-client/pkg/config"
	"github.com/propnest/propnest-client/pkg/logger"
	"github.com/propnest/propnest-client/pkg/realtime"
	"github.com/propnest/propnest-client/pkg/redis"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewDialer builds the realtime dialer for the configured driver. It returns
// a nil dialer when realtime is disabled. The closer releases resources the
// dialer holds beyond individual connections.
func NewDialer(ctx context.Context, cfg *config.Config, logg *logger.Logger) (realtime.Dialer, io.Closer, error) {
	if !cfg.Realtime.Enabled() {
		logg.Warn(ctx, "realtime.disabled_missing_app_key")
		return nil, nopCloser{}, nil
	}
	switch cfg.Realtime.Driver {
	case config.RealtimeDriverRedis:
		client, err := redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return nil, nopCloser{}, err
		}
		return &redis.BroadcastDialer{Client: client, Prefix: cfg.Realtime.RedisPrefix, Logger: logg}, client, nil
	default:
		return &realtime.PusherDialer{
			URL:        cfg.Realtime.SocketURL(),
			Authorizer: realtime.NewHTTPAuthorizer(cfg.Realtime.AuthURL(cfg.API.BaseURL)),
			Logger:     logg,
		}, nopCloser{}, nil
	}
}
