package natsclient

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/ShortURL/config"
	"go.uber.org/zap"
)

const (
	defaultHost           = "localhost"
	defaultPort           = 4222
	defaultConnectTimeout = 5 * time.Second
	reconnectWait         = 2 * time.Second
)

// Connect dials the click broker and opens its JetStream context. Connection
// events are reported through log; the client reconnects forever.
func Connect(cfg config.NATSConfig, log *zap.Logger) (*nats.Conn, nats.JetStreamContext, error) {
	if log == nil {
		log = zap.NewNop()
	}

	conn, err := nats.Connect(URL(cfg), Options(cfg, log)...)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("nats: init jetstream: %w", err)
	}

	return conn, js, nil
}

// Options builds the client options for cfg.
func Options(cfg config.NATSConfig, log *zap.Logger) []nats.Option {
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	opts := []nats.Option{
		nats.Timeout(timeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(disconnectHandler(log)),
		nats.ReconnectHandler(reconnectHandler(log)),
		nats.ClosedHandler(closedHandler(log)),
		nats.ErrorHandler(asyncErrorHandler(log)),
	}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	return opts
}

// URL renders the server address for cfg.
func URL(cfg config.NATSConfig) string {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	return "nats://" + net.JoinHostPort(host, strconv.Itoa(port))
}

func disconnectHandler(log *zap.Logger) nats.ConnErrHandler {
	return func(_ *nats.Conn, err error) {
		if err != nil {
			log.Warn("nats disconnected", zap.Error(err))
			return
		}
		log.Info("nats disconnected")
	}
}

func reconnectHandler(log *zap.Logger) nats.ConnHandler {
	return func(nc *nats.Conn) {
		log.Info("nats reconnected", zap.String("url", nc.ConnectedUrlRedacted()))
	}
}

func closedHandler(log *zap.Logger) nats.ConnHandler {
	return func(*nats.Conn) {
		log.Info("nats connection closed")
	}
}

func asyncErrorHandler(log *zap.Logger) nats.ErrHandler {
	return func(_ *nats.Conn, sub *nats.Subscription, err error) {
		fields := []zap.Field{zap.Error(err)}
		if sub != nil {
			fields = append(fields, zap.String("subject", sub.Subject))
		}
		log.Error("nats async error", fields...)
	}
}
