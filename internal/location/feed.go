package location

import (
	"context"
	"sync"

	"github.com/keilo/waytrack/internal/models"
)

// ShellGate is a PermissionGate whose state is reported by the UI shell.
// Request forwards a prompt to the shell and suspends until it reports a
// decision or the context ends.
type ShellGate struct {
	prompt func()

	mu      sync.Mutex
	status  PermissionStatus
	waiters []chan PermissionStatus
}

// NewShellGate builds a gate in the unknown state. prompt asks the shell to
// present the permission dialog; it may be nil when no shell is attached.
func NewShellGate(prompt func()) *ShellGate {
	return &ShellGate{prompt: prompt, status: PermissionUnknown}
}

// Report records the shell's permission decision and wakes pending requests.
func (g *ShellGate) Report(status PermissionStatus) {
	g.mu.Lock()
	g.status = status
	waiters := g.waiters
	g.waiters = nil
	g.mu.Unlock()

	for _, ch := range waiters {
		ch <- status
	}
}

func (g *ShellGate) Status(ctx context.Context) (PermissionStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status, nil
}

func (g *ShellGate) Request(ctx context.Context) (PermissionStatus, error) {
	g.mu.Lock()
	if g.status == PermissionGranted {
		g.mu.Unlock()
		return PermissionGranted, nil
	}
	ch := make(chan PermissionStatus, 1)
	g.waiters = append(g.waiters, ch)
	prompt := g.prompt
	g.mu.Unlock()

	if prompt != nil {
		prompt()
	}

	select {
	case status := <-ch:
		return status, nil
	case <-ctx.Done():
		g.mu.Lock()
		g.waiters = removeWaiter(g.waiters, ch)
		g.mu.Unlock()
		return PermissionUnknown, ctx.Err()
	}
}

// removeWaiter drops ch from waiters. A concurrent Report may already have
// claimed the slice; the channel is buffered, so its send never blocks.
func removeWaiter[T any](waiters []chan T, ch chan T) []chan T {
	for i, w := range waiters {
		if w == ch {
			return append(waiters[:i], waiters[i+1:]...)
		}
	}
	return waiters
}

// FeedSensor is a Sensor fed with device fixes reported by the shell. Read
// waits for the next reported fix; LastKnown returns the most recent one
// regardless of age.
type FeedSensor struct {
	mu      sync.Mutex
	enabled bool
	last    *models.GeoPoint
	waiters []chan models.GeoPoint
}

func NewFeedSensor() *FeedSensor {
	return &FeedSensor{enabled: true}
}

// SetEnabled mirrors the device's location-services toggle.
func (s *FeedSensor) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}

// Report records a fix from the shell and wakes pending reads.
func (s *FeedSensor) Report(p models.GeoPoint) {
	s.mu.Lock()
	fix := p
	s.last = &fix
	waiters := s.waiters
	s.waiters = nil
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- p
	}
}

func (s *FeedSensor) Read(ctx context.Context) (*models.GeoPoint, error) {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return nil, ErrFeatureDisabled
	}
	ch := make(chan models.GeoPoint, 1)
	s.waiters = append(s.waiters, ch)
	s.mu.Unlock()

	select {
	case p := <-ch:
		return &p, nil
	case <-ctx.Done():
		s.mu.Lock()
		s.waiters = removeWaiter(s.waiters, ch)
		s.mu.Unlock()
		// A timed-out read yields nothing; the caller falls back.
		return nil, nil
	}
}

func (s *FeedSensor) LastKnown(ctx context.Context) (*models.GeoPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil, nil
	}
	fix := *s.last
	return &fix, nil
}
