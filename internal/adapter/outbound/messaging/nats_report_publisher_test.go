package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"funcscan/internal/application/dto"
	"funcscan/internal/config"
	"funcscan/internal/domain/entity"
	"funcscan/internal/domain/valueobject"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu         sync.Mutex
	published  []*nats.Msg
	publishErr error
	flushErr   error
	closed     int
}

func (f *fakeConn) PublishMsg(msg *nats.Msg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	return f.flushErr
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
}

func validConfig() config.NATSConfig {
	return config.NATSConfig{
		URL:           "nats://localhost:4222",
		Subject:       "funcscan.reports",
		MaxReconnects: 5,
		ReconnectWait: 2 * time.Second,
		Timeout:       time.Second,
	}
}

func connectedPublisher(t *testing.T, conn *fakeConn) *NATSReportPublisher {
	t.Helper()
	publisher, err := NewNATSReportPublisher(validConfig())
	require.NoError(t, err)

	var dialedURL string
	publisher.dial = func(url string, _ ...nats.Option) (natsConn, error) {
		dialedURL = url
		return conn, nil
	}
	require.NoError(t, publisher.Connect(context.Background()))
	require.Equal(t, "nats://localhost:4222", dialedURL)
	return publisher
}

func testReport(t *testing.T) *entity.FunctionReport {
	t.Helper()
	report := entity.NewFunctionReport([]entity.FunctionRecord{
		{
			Name:        "outer",
			Kind:        entity.FunctionKindDeclaration,
			Throws:      []valueobject.ThrowsEntry{valueobject.NewThrowsEntry("OuterError", "outer failed")},
			ParentChain: []string{},
		},
		{
			Name:        "inner",
			Kind:        entity.FunctionKindDeclaration,
			Throws:      []valueobject.ThrowsEntry{},
			NestLevel:   1,
			ParentChain: []string{"outer"},
		},
	}, 0)
	lang, err := valueobject.NewLanguage("typescript")
	require.NoError(t, err)
	report.AttachSource("src/outer.ts", lang)
	return report
}

func TestNewNATSReportPublisher_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.NATSConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*config.NATSConfig) {}},
		{name: "tls scheme", mutate: func(c *config.NATSConfig) { c.URL = "tls://nats.internal:4222" }},
		{name: "empty url", mutate: func(c *config.NATSConfig) { c.URL = "" }, wantErr: "NATS URL cannot be empty"},
		{name: "bad scheme", mutate: func(c *config.NATSConfig) { c.URL = "http://localhost:4222" }, wantErr: "invalid NATS URL scheme"},
		{name: "negative reconnects", mutate: func(c *config.NATSConfig) { c.MaxReconnects = -1 }, wantErr: "max reconnects cannot be negative"},
		{name: "negative wait", mutate: func(c *config.NATSConfig) { c.ReconnectWait = -time.Second }, wantErr: "reconnect wait cannot be negative"},
		{name: "wildcard subject", mutate: func(c *config.NATSConfig) { c.Subject = "funcscan.>" }, wantErr: "invalid NATS subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			publisher, err := NewNATSReportPublisher(cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, publisher)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, SinkName, publisher.Name())
		})
	}
}

func TestNewNATSReportPublisher_Defaults(t *testing.T) {
	publisher, err := NewNATSReportPublisher(config.NATSConfig{URL: "nats://localhost:4222"})
	require.NoError(t, err)

	assert.Equal(t, DefaultSubject, publisher.Subject())
	assert.Equal(t, defaultConnectTimeout, publisher.config.Timeout)
}

func TestNATSReportPublisher_Store(t *testing.T) {
	conn := &fakeConn{}
	publisher := connectedPublisher(t, conn)
	report := testReport(t)

	require.NoError(t, publisher.Store(context.Background(), report))

	require.Len(t, conn.published, 1)
	msg := conn.published[0]
	assert.Equal(t, "funcscan.reports", msg.Subject)
	assert.Equal(t, report.ID().String(), msg.Header.Get(MsgIDHeader))
	assert.Equal(t, "application/json", msg.Header.Get("Content-Type"))
	assert.Equal(t, "src/outer.ts", msg.Header.Get("Funcscan-File-Path"))

	var payload dto.FunctionReportResponse
	require.NoError(t, json.Unmarshal(msg.Data, &payload))
	assert.Equal(t, report.ID().String(), payload.ID)
	require.Len(t, payload.Functions, 2)
	assert.Equal(t, []string{"outer"}, payload.Functions[1].ParentChain)
	assert.Equal(t, "OuterError", payload.Functions[0].Throws[0].Type)

	metrics := publisher.GetMessageMetrics()
	assert.Equal(t, int64(1), metrics.PublishedCount)
	assert.Zero(t, metrics.FailedCount)
	assert.False(t, metrics.LastPublishedTime.IsZero())
}

func TestNATSReportPublisher_StoreWithoutConnection(t *testing.T) {
	publisher, err := NewNATSReportPublisher(validConfig())
	require.NoError(t, err)

	err = publisher.Store(context.Background(), testReport(t))
	require.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, int64(1), publisher.GetMessageMetrics().FailedCount)
}

func TestNATSReportPublisher_StoreRejectsNilAndCancelled(t *testing.T) {
	publisher := connectedPublisher(t, &fakeConn{})

	err := publisher.Store(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report cannot be nil")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, publisher.Store(ctx, testReport(t)), context.Canceled)
}

func TestNATSReportPublisher_PublishAndFlushFailures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("publish", func(t *testing.T) {
		publisher := connectedPublisher(t, &fakeConn{publishErr: boom})
		err := publisher.Store(context.Background(), testReport(t))
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "failed to publish report")
	})

	t.Run("flush", func(t *testing.T) {
		publisher := connectedPublisher(t, &fakeConn{flushErr: boom})
		err := publisher.Store(context.Background(), testReport(t))
		require.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "failed to flush report")
	})
}

func TestNATSReportPublisher_CircuitBreaker(t *testing.T) {
	conn := &fakeConn{publishErr: errors.New("server unavailable")}
	publisher := connectedPublisher(t, conn)
	report := testReport(t)

	for range circuitMaxFailures {
		require.Error(t, publisher.Store(context.Background(), report))
	}
	assert.ErrorIs(t, publisher.Store(context.Background(), report), ErrCircuitOpen)
	assert.Equal(t, int64(circuitMaxFailures), publisher.GetMessageMetrics().FailedCount)

	conn.publishErr = nil
	publisher.ResetCircuitBreaker()
	require.NoError(t, publisher.Store(context.Background(), report))
}

func TestNATSReportPublisher_ConnectFailure(t *testing.T) {
	publisher, err := NewNATSReportPublisher(validConfig())
	require.NoError(t, err)

	publisher.dial = func(string, ...nats.Option) (natsConn, error) {
		return nil, nats.ErrNoServers
	}

	err = publisher.Connect(context.Background())
	require.ErrorIs(t, err, nats.ErrNoServers)

	health := publisher.GetConnectionHealth()
	assert.False(t, health.Connected)
	assert.Contains(t, health.LastError, "no servers available")
}

func TestNATSReportPublisher_Close(t *testing.T) {
	conn := &fakeConn{}
	publisher := connectedPublisher(t, conn)
	assert.True(t, publisher.GetConnectionHealth().Connected)

	require.NoError(t, publisher.Close())
	require.NoError(t, publisher.Close())

	assert.Equal(t, 1, conn.closed)
	assert.False(t, publisher.GetConnectionHealth().Connected)
	assert.ErrorIs(t, publisher.Store(context.Background(), testReport(t)), ErrNotConnected)
}
