// Package bridge is the only channel between the native side and the
// sandboxed map surface. Outbound display commands are one-way script
// evaluations; inbound user taps arrive as intercepted navigation attempts
// because the surface cannot call back into native code.
package bridge

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/keilo/waytrack/internal/models"
)

// ScriptSink delivers a script into the map surface's script context.
// Evaluation is fire-and-forget; there is no return channel.
type ScriptSink interface {
	Eval(script string) error
}

// Metrics is the subset of instrumentation the bridge reports to.
type Metrics interface {
	BridgeCommandSent(name string)
	BridgeCommandDropped(name string)
	BridgeTapDecoded()
	BridgeTapIgnored()
}

// Bridge formats outbound display commands and decodes inbound navigation
// attempts. It buffers nothing: commands issued before the surface signals
// readiness are dropped, and the caller re-issues state once readiness fires.
type Bridge struct {
	logger  *zap.Logger
	sink    ScriptSink
	metrics Metrics

	mu      sync.RWMutex
	ready   bool
	onTap   func(models.GeoPoint)
	onReady func()
}

func New(logger *zap.Logger, sink ScriptSink, metrics Metrics) *Bridge {
	return &Bridge{
		logger:  logger,
		sink:    sink,
		metrics: metrics,
	}
}

// SetTapHandler registers the destination-selected handler. Decoded taps are
// delivered synchronously from HandleNavigation.
func (b *Bridge) SetTapHandler(fn func(models.GeoPoint)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onTap = fn
}

// SetReadyHandler registers the handler invoked when the surface signals
// load-complete.
func (b *Bridge) SetReadyHandler(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReady = fn
}

// MarkReady records the surface's load-complete signal and notifies the
// ready handler so current/destination state can be re-issued.
func (b *Bridge) MarkReady() {
	b.mu.Lock()
	b.ready = true
	fn := b.onReady
	b.mu.Unlock()

	b.logger.Info("Map surface ready")
	if fn != nil {
		fn()
	}
}

// Reset marks the surface gone, e.g. when its connection drops. Subsequent
// commands are dropped until the next readiness signal.
func (b *Bridge) Reset() {
	b.mu.Lock()
	b.ready = false
	b.mu.Unlock()
}

// Ready reports whether the surface has signaled load-complete.
func (b *Bridge) Ready() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ready
}

// CenterMap recenters and zooms the map. Idempotent on the surface side.
func (b *Bridge) CenterMap(p models.GeoPoint, zoom int) {
	b.dispatch("centerMap", fmt.Sprintf("centerMap(%s, %s, %d);",
		models.FormatCoord(p.Latitude), models.FormatCoord(p.Longitude), zoom))
}

// SetCurrent creates or repositions the current-location marker.
func (b *Bridge) SetCurrent(p models.GeoPoint) {
	b.dispatch("setCurrent", fmt.Sprintf("setCurrent(%s, %s);",
		models.FormatCoord(p.Latitude), models.FormatCoord(p.Longitude)))
}

// SetDestination creates or repositions the destination marker.
func (b *Bridge) SetDestination(p models.GeoPoint) {
	b.dispatch("setDestination", fmt.Sprintf("setDestination(%s, %s);",
		models.FormatCoord(p.Latitude), models.FormatCoord(p.Longitude)))
}

func (b *Bridge) dispatch(name, script string) {
	if !b.Ready() {
		b.logger.Debug("Dropping command, map surface not ready", zap.String("command", name))
		if b.metrics != nil {
			b.metrics.BridgeCommandDropped(name)
		}
		return
	}

	if err := b.sink.Eval(script); err != nil {
		b.logger.Warn("Failed to evaluate script", zap.String("command", name), zap.Error(err))
		if b.metrics != nil {
			b.metrics.BridgeCommandDropped(name)
		}
		return
	}

	if b.metrics != nil {
		b.metrics.BridgeCommandSent(name)
	}
}
