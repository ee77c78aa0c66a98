// Package sheet turns continuous drag input into the discrete
// expand/collapse state of the bottom panel, with animated settling.
package sheet

import (
	"context"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// Resting and transient phases of the sheet. Dragging is never a resting
// state; the sheet always settles to collapsed or expanded.
const (
	PhaseCollapsed = "collapsed"
	PhaseExpanded  = "expanded"
	PhaseDragging  = "dragging"
)

const (
	EventGrab     = "grab"
	EventExpand   = "expand"
	EventCollapse = "collapse"
)

// Geometry constants, derived from the viewport on every resize.
const (
	collapsedVisible  = 150.0
	maxExpandedHeight = 560.0
	expandedFraction  = 0.72
	viewportMargin    = 120.0
)

const (
	defaultSettleDuration = 220 * time.Millisecond
	settleFrame           = 16 * time.Millisecond
)

// State is a snapshot of the sheet for subscribers. Expanded reflects the
// last committed resting state, which may differ from TranslateY while a
// settle animation is mid-flight.
type State struct {
	TranslateY     float64 `json:"translate_y"`
	MaxTranslate   float64 `json:"max_translate"`
	ExpandedHeight float64 `json:"expanded_height"`
	Expanded       bool    `json:"expanded"`
	Phase          string  `json:"phase"`
}

// Controller owns the sheet offset. 0 <= TranslateY <= MaxTranslate holds at
// every step of a drag and every animation frame.
type Controller struct {
	logger *zap.Logger

	mu             sync.Mutex
	fsm            *fsm.FSM
	translateY     float64
	maxTranslate   float64
	expandedHeight float64
	anchor         float64
	sized          bool
	expanded       bool
	subs           []chan State

	anim           animator
	animGen        uint64
	settleDuration time.Duration
}

func NewController(logger *zap.Logger) *Controller {
	c := &Controller{
		logger:         logger,
		settleDuration: defaultSettleDuration,
	}

	c.fsm = fsm.NewFSM(
		PhaseCollapsed,
		fsm.Events{
			{Name: EventGrab, Src: []string{PhaseCollapsed, PhaseExpanded}, Dst: PhaseDragging},
			{Name: EventExpand, Src: []string{PhaseDragging, PhaseCollapsed}, Dst: PhaseExpanded},
			{Name: EventCollapse, Src: []string{PhaseDragging, PhaseExpanded}, Dst: PhaseCollapsed},
		},
		fsm.Callbacks{},
	)

	return c
}

// Resize derives the expanded height and translate range from the viewport.
// The very first size initializes the sheet fully collapsed; later sizes
// only re-clamp the offset, preserving the user's expand/collapse intent
// across rotations.
func (c *Controller) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expandedHeight := min(maxExpandedHeight, height*expandedFraction)
	expandedHeight = max(expandedHeight, collapsedVisible+viewportMargin)
	expandedHeight = min(expandedHeight, height-viewportMargin)

	c.expandedHeight = expandedHeight
	c.maxTranslate = max(0, expandedHeight-collapsedVisible)

	if !c.sized {
		c.translateY = c.maxTranslate
		c.expanded = false
		c.sized = true
		c.notifyLocked()
		return
	}

	c.translateY = clamp(c.translateY, 0, c.maxTranslate)
	c.notifyLocked()
}

// DragStart records the current offset as the drag anchor.
func (c *Controller) DragStart() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sized {
		return
	}

	c.anim.abort()
	c.animGen++
	c.anchor = c.translateY
	if err := c.fsm.Event(context.Background(), EventGrab); err != nil {
		// Already dragging; keep the original anchor semantics by resetting it.
		c.logger.Debug("Grab while dragging", zap.Error(err))
	}
}

// DragMove positions the sheet from the gesture's cumulative displacement
// since DragStart. Using the total delta rather than increments means missed
// intermediate events cannot desync the offset.
func (c *Controller) DragMove(totalDeltaY float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sized || c.fsm.Current() != PhaseDragging {
		return
	}

	c.translateY = clamp(c.anchor+totalDeltaY, 0, c.maxTranslate)
	c.notifyLocked()
}

// DragEnd settles by the midpoint rule: strictly past the middle collapses,
// everything else (the midpoint included) expands. No velocity term.
func (c *Controller) DragEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sized || c.fsm.Current() != PhaseDragging {
		return
	}

	shouldCollapse := c.translateY > c.maxTranslate*0.5
	c.settleLocked(!shouldCollapse)
}

// DragCancel resolves identically to DragEnd.
func (c *Controller) DragCancel() {
	c.DragEnd()
}

// Tap toggles between expanded and collapsed from the last committed state,
// ignoring the current offset of any settle animation still in flight.
func (c *Controller) Tap() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.sized {
		return
	}

	c.settleLocked(!c.expanded)
}

// State returns a snapshot of the sheet.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Subscribe returns a channel receiving a snapshot on every offset or phase
// change. Slow subscribers miss intermediate frames, never block the sheet.
func (c *Controller) Subscribe() <-chan State {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State, 64)
	c.subs = append(c.subs, ch)
	return ch
}

func (c *Controller) settleLocked(expand bool) {
	c.expanded = expand

	event := EventCollapse
	target := c.maxTranslate
	if expand {
		event = EventExpand
		target = 0
	}

	if err := c.fsm.Event(context.Background(), event); err != nil {
		// Settling to the state we already rest in; the offset still animates
		// back to its target.
		c.logger.Debug("Settle without phase change", zap.String("event", event))
	}

	c.anim.abort()
	c.animGen++
	gen := c.animGen
	c.anim.start(c.translateY, target, c.settleDuration, settleFrame,
		func(v float64) {
			c.mu.Lock()
			// An aborted run may already be inside a frame when its
			// replacement starts; the generation check discards it.
			if c.animGen != gen {
				c.mu.Unlock()
				return
			}
			c.translateY = clamp(v, 0, c.maxTranslate)
			c.notifyLocked()
			c.mu.Unlock()
		},
		func() {},
	)

	c.notifyLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		TranslateY:     c.translateY,
		MaxTranslate:   c.maxTranslate,
		ExpandedHeight: c.expandedHeight,
		Expanded:       c.expanded,
		Phase:          c.fsm.Current(),
	}
}

func (c *Controller) notifyLocked() {
	state := c.stateLocked()
	for _, ch := range c.subs {
		select {
		case ch <- state:
		default:
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
