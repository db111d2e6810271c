package natsclient

import (
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/ShortURL/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestURL(t *testing.T) {
	assert.Equal(t, "nats://localhost:4222", URL(config.NATSConfig{}))
	assert.Equal(t, "nats://broker:4333", URL(config.NATSConfig{Host: "broker", Port: 4333}))
	assert.Equal(t, "nats://[::1]:4222", URL(config.NATSConfig{Host: "::1"}))
}

func TestOptions(t *testing.T) {
	cfg := config.NATSConfig{
		Name:           "shorturl-test",
		User:           "clicks",
		Password:       "secret",
		ConnectTimeout: 3 * time.Second,
	}

	var o nats.Options
	for _, opt := range Options(cfg, zap.NewNop()) {
		require.NoError(t, opt(&o))
	}

	assert.Equal(t, "shorturl-test", o.Name)
	assert.Equal(t, "clicks", o.User)
	assert.Equal(t, "secret", o.Password)
	assert.Equal(t, 3*time.Second, o.Timeout)
	assert.Equal(t, -1, o.MaxReconnect)
	assert.NotNil(t, o.DisconnectedErrCB)
	assert.NotNil(t, o.ReconnectedCB)
	assert.NotNil(t, o.ClosedCB)
	assert.NotNil(t, o.AsyncErrorCB)
}

func TestOptions_DefaultTimeout(t *testing.T) {
	var o nats.Options
	for _, opt := range Options(config.NATSConfig{}, zap.NewNop()) {
		require.NoError(t, opt(&o))
	}
	assert.Equal(t, defaultConnectTimeout, o.Timeout)
	assert.Empty(t, o.User)
}

func TestHandlersLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core)

	disconnectHandler(log)(nil, errors.New("broken pipe"))
	disconnectHandler(log)(nil, nil)
	closedHandler(log)(nil)
	asyncErrorHandler(log)(nil, &nats.Subscription{Subject: "clicks.events"}, errors.New("slow consumer"))

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "nats connection closed", entries[2].Message)
	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
	assert.Equal(t, "clicks.events", entries[3].ContextMap()["subject"])
}
