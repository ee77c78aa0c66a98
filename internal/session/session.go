// Package session orchestrates the location provider, map bridge and trip
// store behind a single observable view-model.
package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/keilo/waytrack/internal/events"
	"github.com/keilo/waytrack/internal/location"
	"github.com/keilo/waytrack/internal/models"
	"github.com/keilo/waytrack/internal/navigate"
	"github.com/keilo/waytrack/internal/store"
)

// HistoryRoute is the shell route for the trip history screen.
const HistoryRoute = "//history"

var tripIDPattern = regexp.MustCompile(`^[a-zA-Z0-9]+$`)

// State is one immutable snapshot of the session, pushed to subscribers on
// every change. Command availability is a pure function of it.
type State struct {
	Current       *models.GeoPoint `json:"current,omitempty"`
	Destination   *models.GeoPoint `json:"destination,omitempty"`
	TripID        string           `json:"trip_id"`
	TripIDError   string           `json:"trip_id_error,omitempty"`
	SensorError   string           `json:"sensor_error,omitempty"`
	SaveStatus    string           `json:"save_status,omitempty"`
	Connectivity  string           `json:"connectivity"`
	NavigationURL string           `json:"navigation_url,omitempty"`
	Busy          bool             `json:"busy"`
}

// CanExecuteCommands reports whether a user-triggered command may start.
func (s State) CanExecuteCommands() bool {
	return !s.Busy
}

// MapPort is the outbound slice of the map bridge the session drives.
type MapPort interface {
	CenterMap(p models.GeoPoint, zoom int)
	SetCurrent(p models.GeoPoint)
	SetDestination(p models.GeoPoint)
}

// Locator produces a best-effort current position.
type Locator interface {
	Acquire(ctx context.Context) (models.GeoPoint, error)
}

// Metrics is the subset of instrumentation the session reports to.
type Metrics interface {
	TripSaved()
	CommandFailed(reason string)
	LocationOK()
	LocationFailed(reason string)
}

// ViewModel holds the session state and serializes the four user-triggered
// commands through one busy flag. A second command issued while one is in
// flight is a silent no-op.
type ViewModel struct {
	logger   *zap.Logger
	store    store.Store
	locator  Locator
	mapPort  MapPort
	launcher navigate.Launcher
	events   *events.Publisher // may be nil
	metrics  Metrics           // may be nil
	zoom     int

	mu          sync.Mutex
	state       State
	initialized bool
	subs        []chan State
}

func NewViewModel(
	logger *zap.Logger,
	st store.Store,
	locator Locator,
	mapPort MapPort,
	launcher navigate.Launcher,
	publisher *events.Publisher,
	metrics Metrics,
	zoom int,
) *ViewModel {
	if zoom <= 0 {
		zoom = 15
	}
	return &ViewModel{
		logger:   logger,
		store:    st,
		locator:  locator,
		mapPort:  mapPort,
		launcher: launcher,
		events:   publisher,
		metrics:  metrics,
		zoom:     zoom,
		state:    State{Connectivity: "Unknown"},
	}
}

// Initialize acquires the first fix and pushes it to the map. Idempotent.
func (vm *ViewModel) Initialize(ctx context.Context) {
	vm.mu.Lock()
	if vm.initialized {
		vm.mu.Unlock()
		return
	}
	vm.initialized = true
	vm.mu.Unlock()

	vm.refreshLocation(ctx)
}

// Snapshot returns the current session state.
func (vm *ViewModel) Snapshot() State {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// Subscribe returns a channel receiving every state snapshot. Slow
// subscribers miss intermediate snapshots, never block the session.
func (vm *ViewModel) Subscribe() <-chan State {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	ch := make(chan State, 16)
	vm.subs = append(vm.subs, ch)
	return ch
}

// SetTripID updates the draft identifier. Validation re-runs live only after
// a prior validation failed, so the user gets fail-fast feedback while
// editing a rejected value but no noise on first entry.
func (vm *ViewModel) SetTripID(value string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.state.TripID == value {
		return
	}
	vm.state.TripID = value
	if vm.state.TripIDError != "" {
		vm.state.TripIDError = ValidateTripID(value)
	}
	vm.notifyLocked()
}

// SetDestination records a destination, typically decoded from a map tap.
// Safe to call at any time; externally triggered events do not consult busy.
func (vm *ViewModel) SetDestination(p models.GeoPoint) {
	vm.mu.Lock()
	dest := p
	vm.state.Destination = &dest
	vm.notifyLocked()
	vm.mu.Unlock()

	vm.mapPort.SetDestination(p)
	vm.mapPort.CenterMap(p, vm.zoom)
}

// SetConnectivity records a connectivity-change event, e.g.
// ("internet", ["wifi", "cellular"]). Safe to call at any time.
func (vm *ViewModel) SetConnectivity(access string, profiles []string) {
	profileText := "None"
	if len(profiles) > 0 {
		profileText = strings.Join(profiles, ", ")
	}

	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Connectivity = fmt.Sprintf("%s (%s)", access, profileText)
	vm.notifyLocked()
}

// OnMapReady re-issues current and destination markers after the map surface
// signals load-complete; the bridge drops anything sent before that.
func (vm *ViewModel) OnMapReady() {
	vm.mu.Lock()
	current := vm.state.Current
	dest := vm.state.Destination
	vm.mu.Unlock()

	if current != nil {
		vm.mapPort.SetCurrent(*current)
		vm.mapPort.CenterMap(*current, vm.zoom)
	}
	if dest != nil {
		vm.mapPort.SetDestination(*dest)
	}
}

// Save validates the draft trip id and persists a snapshot of the current
// and destination locations.
func (vm *ViewModel) Save(ctx context.Context) {
	if !vm.begin() {
		return
	}
	defer vm.end()

	vm.mu.Lock()
	vm.state.SaveStatus = ""
	vm.state.TripIDError = ValidateTripID(vm.state.TripID)
	if vm.state.TripIDError != "" {
		vm.notifyLocked()
		vm.mu.Unlock()
		vm.commandFailed("validation")
		return
	}

	if vm.state.Current == nil {
		// Distinct from trip-id validation: saving is blocked until a fix
		// has been acquired, regardless of the draft's validity.
		vm.state.SensorError = "No location available to save yet. Please allow GPS and try again."
		vm.notifyLocked()
		vm.mu.Unlock()
		vm.commandFailed("no_location")
		return
	}

	tripID := strings.TrimSpace(vm.state.TripID)
	locationData := models.EncodeLocationData(vm.state.Current, vm.state.Destination)
	vm.mu.Unlock()

	if err := vm.store.Save(ctx, tripID, locationData); err != nil {
		vm.logger.Error("Failed to save trip snapshot", zap.Error(err))
		vm.setSaveStatus(fmt.Sprintf("Save failed: %v", err))
		vm.commandFailed("persistence")
		return
	}

	vm.setSaveStatus(fmt.Sprintf("Saved at %s", time.Now().Format("15:04:05")))
	vm.events.TripSaved(tripID, locationData)
	if vm.metrics != nil {
		vm.metrics.TripSaved()
	}
}

// StartNavigation hands the destination off to the platform's maps opener.
func (vm *ViewModel) StartNavigation(ctx context.Context, platform navigate.Platform) {
	if !vm.begin() {
		return
	}
	defer vm.end()

	vm.mu.Lock()
	vm.state.SaveStatus = ""
	dest := vm.state.Destination
	if dest == nil {
		vm.state.SaveStatus = "Select a destination on the map first."
		vm.notifyLocked()
		vm.mu.Unlock()
		vm.commandFailed("no_destination")
		return
	}
	url := navigate.BuildDirectionsURL(platform, *dest)
	vm.state.NavigationURL = url
	vm.notifyLocked()
	vm.mu.Unlock()

	if err := vm.launcher.OpenURL(ctx, url); err != nil {
		vm.logger.Warn("Navigation handoff failed", zap.Error(err))
		vm.setSaveStatus(fmt.Sprintf("Navigation failed: %v", err))
		vm.commandFailed("navigation")
	}
}

// CenterOnCurrent recenters on the current fix, acquiring one first if none
// is held yet.
func (vm *ViewModel) CenterOnCurrent(ctx context.Context) {
	if !vm.begin() {
		return
	}
	defer vm.end()

	vm.mu.Lock()
	current := vm.state.Current
	vm.mu.Unlock()

	if current == nil {
		vm.refreshLocation(ctx)
		vm.mu.Lock()
		current = vm.state.Current
		vm.mu.Unlock()
	}

	if current != nil {
		vm.mapPort.CenterMap(*current, vm.zoom)
	}
}

// GoToHistory resolves the history route for the shell. The second return is
// false when another command is in flight.
func (vm *ViewModel) GoToHistory(ctx context.Context) (string, bool) {
	if !vm.begin() {
		return "", false
	}
	defer vm.end()

	return HistoryRoute, true
}

// RefreshLocation re-runs acquisition outside the command set; the caller
// decides when to re-invoke after a failure.
func (vm *ViewModel) RefreshLocation(ctx context.Context) {
	vm.refreshLocation(ctx)
}

func (vm *ViewModel) refreshLocation(ctx context.Context) {
	vm.mu.Lock()
	vm.state.SensorError = ""
	vm.state.SaveStatus = ""
	vm.notifyLocked()
	vm.mu.Unlock()

	fix, err := vm.locator.Acquire(ctx)
	if err != nil {
		msg, reason := describeLocationError(err)
		vm.logger.Warn("Location acquisition failed", zap.String("reason", reason), zap.Error(err))
		if vm.metrics != nil {
			vm.metrics.LocationFailed(reason)
		}
		vm.mu.Lock()
		vm.state.SensorError = msg
		vm.notifyLocked()
		vm.mu.Unlock()
		return
	}

	vm.mu.Lock()
	current := fix
	vm.state.Current = &current
	vm.notifyLocked()
	vm.mu.Unlock()

	if vm.metrics != nil {
		vm.metrics.LocationOK()
	}
	vm.mapPort.SetCurrent(fix)
	vm.mapPort.CenterMap(fix, vm.zoom)
	vm.events.PositionUpdated(fix)
}

// ValidateTripID returns the user-facing rejection reason, or "" when the
// identifier is acceptable. Length is checked before the character class, so
// short non-alphanumeric drafts report too-short.
func ValidateTripID(value string) string {
	value = strings.TrimSpace(value)

	if value == "" {
		return "Trip ID is required."
	}
	if len(value) < 4 {
		return "Trip ID must be at least 4 characters."
	}
	if !tripIDPattern.MatchString(value) {
		return "Trip ID must be alphanumeric only."
	}
	return ""
}

func describeLocationError(err error) (msg, reason string) {
	switch {
	case errors.Is(err, location.ErrFeatureDisabled):
		return "Location services are disabled. Please turn on GPS.", "feature_disabled"
	case errors.Is(err, location.ErrPermissionDenied):
		return "Location permission denied. Enable it in Settings to capture GPS coordinates.", "permission_denied"
	case errors.Is(err, location.ErrLocationUnavailable):
		return "Unable to retrieve location. Make sure GPS is enabled.", "unavailable"
	default:
		return fmt.Sprintf("Location error: %v", err), "error"
	}
}

// begin claims the busy flag. A false return means another command owns it
// and this one must be a silent no-op.
func (vm *ViewModel) begin() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	if vm.state.Busy {
		return false
	}
	vm.state.Busy = true
	vm.notifyLocked()
	return true
}

// end always releases busy, whatever branch the command failed on.
func (vm *ViewModel) end() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Busy = false
	vm.notifyLocked()
}

func (vm *ViewModel) setSaveStatus(status string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.SaveStatus = status
	vm.notifyLocked()
}

func (vm *ViewModel) commandFailed(reason string) {
	if vm.metrics != nil {
		vm.metrics.CommandFailed(reason)
	}
}

func (vm *ViewModel) notifyLocked() {
	for _, ch := range vm.subs {
		select {
		case ch <- vm.state:
		default:
		}
	}
}
