// Package location reconciles asynchronous permission prompts, sensor
// timeouts and cached fixes into one best-effort current position.
package location

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/keilo/waytrack/internal/models"
)

// PermissionStatus is the coarse foreground-location permission state.
type PermissionStatus string

const (
	PermissionUnknown PermissionStatus = "unknown"
	PermissionGranted PermissionStatus = "granted"
	PermissionDenied  PermissionStatus = "denied"
)

// PermissionGate wraps the platform permission surface. Request may suspend
// indefinitely awaiting user interaction.
type PermissionGate interface {
	Status(ctx context.Context) (PermissionStatus, error)
	Request(ctx context.Context) (PermissionStatus, error)
}

// Sensor wraps the position source. Read honors the context deadline and
// returns (nil, nil) when no fix arrived in time; ErrFeatureDisabled when
// the underlying service is off.
type Sensor interface {
	Read(ctx context.Context) (*models.GeoPoint, error)
	LastKnown(ctx context.Context) (*models.GeoPoint, error)
}

// Cache is an optional secondary store for the most recent fix.
type Cache interface {
	Store(ctx context.Context, p models.GeoPoint) error
	Load(ctx context.Context) (*models.GeoPoint, error)
}

const defaultReadTimeout = 10 * time.Second

// Provider produces a best-effort current position. Callers propagate a
// successful fix to the map bridge and status display themselves.
type Provider struct {
	logger      *zap.Logger
	gate        PermissionGate
	sensor      Sensor
	cache       Cache // may be nil
	readTimeout time.Duration
}

func NewProvider(logger *zap.Logger, gate PermissionGate, sensor Sensor, cache Cache, readTimeout time.Duration) *Provider {
	if readTimeout <= 0 {
		readTimeout = defaultReadTimeout
	}
	return &Provider{
		logger:      logger,
		gate:        gate,
		sensor:      sensor,
		cache:       cache,
		readTimeout: readTimeout,
	}
}

// Acquire checks and, when needed, requests the location permission, then
// attempts a bounded sensor read, falling back to the last known fix and
// then to the cached one.
func (p *Provider) Acquire(ctx context.Context) (models.GeoPoint, error) {
	status, err := p.gate.Status(ctx)
	if err != nil {
		return models.GeoPoint{}, err
	}

	if status != PermissionGranted {
		status, err = p.gate.Request(ctx)
		if err != nil {
			return models.GeoPoint{}, err
		}
	}

	if status != PermissionGranted {
		return models.GeoPoint{}, ErrPermissionDenied
	}

	readCtx, cancel := context.WithTimeout(ctx, p.readTimeout)
	defer cancel()

	fix, err := p.sensor.Read(readCtx)
	if errors.Is(err, ErrFeatureDisabled) {
		return models.GeoPoint{}, ErrFeatureDisabled
	}
	if err != nil {
		p.logger.Warn("Sensor read failed, trying last known fix", zap.Error(err))
	}

	if fix == nil {
		if fix, err = p.sensor.LastKnown(ctx); err != nil {
			p.logger.Warn("Last known fix lookup failed", zap.Error(err))
			fix = nil
		}
	}

	if fix == nil && p.cache != nil {
		if fix, err = p.cache.Load(ctx); err != nil {
			p.logger.Warn("Cached fix lookup failed", zap.Error(err))
			fix = nil
		}
	}

	if fix == nil {
		return models.GeoPoint{}, ErrLocationUnavailable
	}

	if p.cache != nil {
		if err := p.cache.Store(ctx, *fix); err != nil {
			p.logger.Debug("Failed to cache fix", zap.Error(err))
		}
	}

	return *fix, nil
}
