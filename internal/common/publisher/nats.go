package publisher

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/tripdesk/internal/common/logger"
)

type NATSPublisher struct {
	nc            *nats.Conn
	subjectPrefix string
	logger        logger.Logger
	metrics       PublisherMetrics
}

type PublisherMetrics interface {
	NATSPublishedInc()
	NATSPublishErrInc()
	PublishObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

func NewNATSPublisher(url, subjectPrefix string, log logger.Logger, m PublisherMetrics) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("tripdesk"),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info("NATS closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return &NATSPublisher{nc: nc, subjectPrefix: subjectPrefix, logger: log, metrics: m}, nil
}

func (p *NATSPublisher) Close() {
	if p.nc != nil {
		p.nc.Drain()
		p.nc.Close()
	}
}

// RefreshEvent announces a completed refresh cycle to other consumers
type RefreshEvent struct {
	Scope       string    `json:"scope"`
	Trips       int       `json:"trips"`
	InProgress  int       `json:"inProgress"`
	Completed   int       `json:"completed"`
	NotStarted  int       `json:"notStarted"`
	RealTime    bool      `json:"realTime"`
	WindowStart time.Time `json:"windowStart"`
	WindowEnd   time.Time `json:"windowEnd"`
	Timestamp   time.Time `json:"timestamp"`
}

// PublishRefresh sends the event on <prefix>.<scope>
func (p *NATSPublisher) PublishRefresh(ev RefreshEvent) error {
	subject := Subject(p.subjectPrefix, ev.Scope)
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshaling refresh event: %w", err)
	}
	p.logger.Debug("NATS publish", "subject", subject)

	start := time.Now()
	err = p.nc.Publish(subject, b)
	if p.metrics != nil {
		p.metrics.PublishObserve(time.Since(start))
		if err != nil {
			p.metrics.NATSPublishErrInc()
		} else {
			p.metrics.NATSPublishedInc()
		}
	}
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", subject, err)
	}
	return nil
}

func Subject(prefix, scope string) string {
	return fmt.Sprintf("%s.%s", prefix, subjectToken(scope))
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
