package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"funcscan/internal/application/common/slogger"
	"funcscan/internal/application/dto"
	"funcscan/internal/config"
	"funcscan/internal/domain/entity"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SinkName identifies the NATS sink in logs and metrics.
	SinkName = "nats"

	// DefaultSubject is used when the configuration leaves the subject empty.
	DefaultSubject = "funcscan.reports"

	defaultConnectTimeout = 5 * time.Second

	// MsgIDHeader lets JetStream deduplicate republished reports.
	MsgIDHeader = "Nats-Msg-Id"

	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json"
	filePathHeader    = "Funcscan-File-Path"
)

const (
	circuitMaxFailures  = 3
	circuitOpenDuration = 30 * time.Second
)

// ErrNotConnected is returned when Store is called before Connect.
var ErrNotConnected = errors.New("not connected to NATS server")

// ErrCircuitOpen is returned while the publisher refuses work after repeated failures.
var ErrCircuitOpen = errors.New("circuit breaker open: too many recent failures")

// natsConn is the subset of *nats.Conn the publisher uses.
type natsConn interface {
	PublishMsg(msg *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// ConnectionHealthStatus represents the health status of the NATS connection.
type ConnectionHealthStatus struct {
	Connected  bool      `json:"connected"`
	LastError  string    `json:"last_error,omitempty"`
	Reconnects int       `json:"reconnects"`
	Since      time.Time `json:"since"`
}

// MessageMetrics tracks report publishing counts and latency.
type MessageMetrics struct {
	PublishedCount    int64         `json:"published_count"`
	FailedCount       int64         `json:"failed_count"`
	AverageLatency    time.Duration `json:"average_latency"`
	LastPublishedTime time.Time     `json:"last_published_time"`
}

// NATSReportPublisher publishes function reports as JSON messages on a NATS
// subject. It implements outbound.ReportSink.
type NATSReportPublisher struct {
	config  config.NATSConfig
	conn    natsConn
	dial    func(url string, opts ...nats.Option) (natsConn, error)
	health  ConnectionHealthStatus
	metrics MessageMetrics
	mutex   sync.RWMutex

	circuitOpen     bool
	failureCount    int
	lastFailureTime time.Time
}

// NewNATSReportPublisher validates cfg and creates an unconnected publisher.
func NewNATSReportPublisher(cfg config.NATSConfig) (*NATSReportPublisher, error) {
	if cfg.URL == "" {
		return nil, errors.New("NATS URL cannot be empty")
	}
	if !strings.HasPrefix(cfg.URL, "nats://") && !strings.HasPrefix(cfg.URL, "tls://") {
		return nil, errors.New("invalid NATS URL scheme")
	}
	if cfg.MaxReconnects < 0 {
		return nil, errors.New("max reconnects cannot be negative")
	}
	if cfg.ReconnectWait < 0 {
		return nil, errors.New("reconnect wait cannot be negative")
	}
	if cfg.Subject == "" {
		cfg.Subject = DefaultSubject
	}
	if strings.ContainsAny(cfg.Subject, " \t*>") {
		return nil, fmt.Errorf("invalid NATS subject %q", cfg.Subject)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultConnectTimeout
	}

	return &NATSReportPublisher{
		config: cfg,
		dial: func(url string, opts ...nats.Option) (natsConn, error) {
			return nats.Connect(url, opts...)
		},
	}, nil
}

// Name implements outbound.ReportSink.
func (n *NATSReportPublisher) Name() string {
	return SinkName
}

// Subject returns the subject reports are published on.
func (n *NATSReportPublisher) Subject() string {
	return n.config.Subject
}

// Connect establishes the connection to the NATS server.
func (n *NATSReportPublisher) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("funcscan"),
		nats.MaxReconnects(n.config.MaxReconnects),
		nats.ReconnectWait(n.config.ReconnectWait),
		nats.Timeout(n.config.Timeout),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			n.mutex.Lock()
			n.health.Reconnects++
			n.mutex.Unlock()
			n.updateConnectionHealth(true, nil)
		}),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err == nil {
				err = errors.New("connection lost")
			}
			n.updateConnectionHealth(false, err)
		}),
	}

	conn, err := n.dial(n.config.URL, opts...)
	if err != nil {
		n.updateConnectionHealth(false, err)
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	n.mutex.Lock()
	n.conn = conn
	n.mutex.Unlock()
	n.updateConnectionHealth(true, nil)

	slogger.Info(ctx, "Connected to NATS", slogger.Fields{
		"url":     n.config.URL,
		"subject": n.config.Subject,
	})
	return nil
}

// Close closes the connection. Calling it again is a no-op.
func (n *NATSReportPublisher) Close() error {
	n.mutex.Lock()
	conn := n.conn
	n.conn = nil
	n.mutex.Unlock()

	if conn != nil {
		conn.Close()
	}
	n.updateConnectionHealth(false, nil)
	return nil
}

// Store publishes report and waits for the server to acknowledge the flush.
func (n *NATSReportPublisher) Store(ctx context.Context, report *entity.FunctionReport) error {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return err
	}
	if report == nil {
		return errors.New("report cannot be nil")
	}
	if n.isCircuitBreakerOpen() {
		return ErrCircuitOpen
	}

	n.mutex.RLock()
	conn := n.conn
	n.mutex.RUnlock()
	if conn == nil {
		n.updateMetrics(false, time.Since(start))
		return ErrNotConnected
	}

	msg, err := n.newMessage(report)
	if err != nil {
		return err
	}

	if err := conn.PublishMsg(msg); err != nil {
		n.updateMetrics(false, time.Since(start))
		return fmt.Errorf("failed to publish report: %w", err)
	}
	if err := conn.FlushWithContext(ctx); err != nil {
		n.updateMetrics(false, time.Since(start))
		return fmt.Errorf("failed to flush report: %w", err)
	}

	n.updateMetrics(true, time.Since(start))
	slogger.Debug(ctx, "Published report", slogger.Fields{
		"subject":   n.config.Subject,
		"report_id": report.ID().String(),
		"bytes":     len(msg.Data),
	})
	return nil
}

func (n *NATSReportPublisher) newMessage(report *entity.FunctionReport) (*nats.Msg, error) {
	data, err := json.Marshal(dto.NewFunctionReportResponse(report))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	msg := nats.NewMsg(n.config.Subject)
	msg.Data = data
	msg.Header.Set(MsgIDHeader, report.ID().String())
	msg.Header.Set(contentTypeHeader, contentTypeJSON)
	if report.FilePath() != "" {
		msg.Header.Set(filePathHeader, report.FilePath())
	}
	return msg, nil
}

// GetConnectionHealth returns the current connection health.
func (n *NATSReportPublisher) GetConnectionHealth() ConnectionHealthStatus {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return n.health
}

// GetMessageMetrics returns the current publishing metrics.
func (n *NATSReportPublisher) GetMessageMetrics() MessageMetrics {
	n.mutex.RLock()
	defer n.mutex.RUnlock()
	return n.metrics
}

func (n *NATSReportPublisher) updateConnectionHealth(connected bool, err error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if connected && !n.health.Connected {
		n.health.Since = time.Now()
	}
	n.health.Connected = connected
	if err != nil {
		n.health.LastError = err.Error()
	}
}

func (n *NATSReportPublisher) updateMetrics(success bool, latency time.Duration) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if !success {
		n.metrics.FailedCount++
		n.failureCount++
		n.lastFailureTime = time.Now()
		if n.failureCount >= circuitMaxFailures {
			n.circuitOpen = true
		}
		return
	}

	n.metrics.PublishedCount++
	n.metrics.LastPublishedTime = time.Now()
	n.failureCount = 0
	n.circuitOpen = false

	// EMA with alpha = 0.1
	if n.metrics.AverageLatency == 0 {
		n.metrics.AverageLatency = latency
	} else {
		n.metrics.AverageLatency = time.Duration(
			0.9*float64(n.metrics.AverageLatency) + 0.1*float64(latency),
		)
	}
}

func (n *NATSReportPublisher) isCircuitBreakerOpen() bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.circuitOpen && time.Since(n.lastFailureTime) > circuitOpenDuration {
		n.circuitOpen = false
		n.failureCount = 0
	}
	return n.circuitOpen
}

// ResetCircuitBreaker closes the circuit breaker.
func (n *NATSReportPublisher) ResetCircuitBreaker() {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.circuitOpen = false
	n.failureCount = 0
	n.lastFailureTime = time.Time{}
}
