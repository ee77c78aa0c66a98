// Package events publishes session milestones for external consumers.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/keilo/waytrack/internal/models"
)

const (
	subjectTripSaved       = "waytrack.trip.saved"
	subjectPositionUpdated = "waytrack.position.updated"
)

// Metrics is the subset of instrumentation the publisher reports to.
type Metrics interface {
	EventPublished()
	EventPublishErr()
	SetEventsConnected(connected bool)
}

// Publisher pushes trip-saved and position-updated events to NATS. A nil
// *Publisher is valid and publishes nothing, so the integration stays
// optional.
type Publisher struct {
	logger  *zap.Logger
	nc      *nats.Conn
	metrics Metrics
}

func NewPublisher(logger *zap.Logger, url string, m Metrics) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("waytrack"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetEventsConnected(false)
			}
			logger.Warn("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.SetEventsConnected(true)
			}
			logger.Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	if m != nil {
		m.SetEventsConnected(true)
	}
	return &Publisher{logger: logger, nc: nc, metrics: m}, nil
}

func (p *Publisher) Close() {
	if p == nil || p.nc == nil {
		return
	}
	_ = p.nc.Drain()
	p.nc.Close()
}

// TripSavedEvent mirrors the persisted snapshot payload.
type TripSavedEvent struct {
	TripID       string    `json:"trip_id"`
	LocationData string    `json:"location_data"`
	SavedAtUtc   time.Time `json:"saved_at_utc"`
}

// PositionEvent carries a freshly acquired current position.
type PositionEvent struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	At        time.Time `json:"at"`
}

// TripSaved publishes a trip-saved event. Best effort; errors are logged.
func (p *Publisher) TripSaved(tripID, locationData string) {
	if p == nil {
		return
	}
	p.publish(subjectTripSaved, TripSavedEvent{
		TripID:       tripID,
		LocationData: locationData,
		SavedAtUtc:   time.Now().UTC(),
	})
}

// PositionUpdated publishes a position-updated event. Best effort.
func (p *Publisher) PositionUpdated(pos models.GeoPoint) {
	if p == nil {
		return
	}
	p.publish(subjectPositionUpdated, PositionEvent{
		Latitude:  pos.Latitude,
		Longitude: pos.Longitude,
		At:        time.Now().UTC(),
	})
}

func (p *Publisher) publish(subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Failed to marshal event", zap.String("subject", subject), zap.Error(err))
		return
	}

	if err := p.nc.Publish(subject, data); err != nil {
		p.logger.Warn("Failed to publish event", zap.String("subject", subject), zap.Error(err))
		if p.metrics != nil {
			p.metrics.EventPublishErr()
		}
		return
	}
	if p.metrics != nil {
		p.metrics.EventPublished()
	}
}
