package sheet

import (
	"math"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestController() *Controller {
	c := NewController(zap.NewNop())
	c.settleDuration = 30 * time.Millisecond
	return c
}

// waitSettled polls until the offset reaches target or the deadline passes.
func waitSettled(t *testing.T, c *Controller, target float64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if math.Abs(c.State().TranslateY-target) < 1e-9 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("sheet did not settle to %v, offset = %v", target, c.State().TranslateY)
}

func TestResize_Geometry(t *testing.T) {
	tests := []struct {
		name             string
		width, height    float64
		wantExpandedH    float64
		wantMaxTranslate float64
	}{
		{
			name:   "tall phone viewport",
			width:  400,
			height: 800,
			// min(560, 0.72*800=576) = 560
			wantExpandedH:    560,
			wantMaxTranslate: 410,
		},
		{
			name:   "short viewport clamps against 0.72 fraction",
			width:  400,
			height: 600,
			// min(560, 432) = 432
			wantExpandedH:    432,
			wantMaxTranslate: 282,
		},
		{
			name:   "tiny viewport floors at collapsed+120 then height-120 wins",
			width:  300,
			height: 320,
			// min(560, 230.4)=230.4 -> max(230.4, 270)=270 -> min(270, 200)=200
			wantExpandedH:    200,
			wantMaxTranslate: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController()
			c.Resize(tt.width, tt.height)

			s := c.State()
			if math.Abs(s.ExpandedHeight-tt.wantExpandedH) > 1e-9 {
				t.Errorf("ExpandedHeight = %v, want %v", s.ExpandedHeight, tt.wantExpandedH)
			}
			if math.Abs(s.MaxTranslate-tt.wantMaxTranslate) > 1e-9 {
				t.Errorf("MaxTranslate = %v, want %v", s.MaxTranslate, tt.wantMaxTranslate)
			}
		})
	}
}

func TestResize_FirstSizeInitializesCollapsed(t *testing.T) {
	c := newTestController()
	c.Resize(400, 800)

	s := c.State()
	if s.Expanded {
		t.Error("sheet should initialize collapsed")
	}
	if s.TranslateY != s.MaxTranslate {
		t.Errorf("TranslateY = %v, want MaxTranslate %v", s.TranslateY, s.MaxTranslate)
	}
	if s.Phase != PhaseCollapsed {
		t.Errorf("Phase = %q, want %q", s.Phase, PhaseCollapsed)
	}
}

func TestResize_ReclampsOffset(t *testing.T) {
	c := newTestController()
	c.Resize(400, 800) // maxTranslate 410, offset 410

	c.Resize(400, 600) // maxTranslate 282

	s := c.State()
	if s.TranslateY < 0 || s.TranslateY > s.MaxTranslate {
		t.Errorf("offset %v escaped [0, %v] after resize", s.TranslateY, s.MaxTranslate)
	}
	if s.TranslateY != 282 {
		t.Errorf("TranslateY = %v, want re-clamped 282", s.TranslateY)
	}
}

func TestResize_IgnoresDegenerateSizes(t *testing.T) {
	c := newTestController()
	c.Resize(0, 0)
	c.Resize(-10, 400)

	if c.State().MaxTranslate != 0 {
		t.Error("degenerate sizes should not derive geometry")
	}
}

func TestDragMove_ClampsEveryStep(t *testing.T) {
	c := newTestController()
	c.Resize(400, 800)

	c.DragStart()
	for _, delta := range []float64{-10000, -410, -205, 0, 205, 410, 10000} {
		c.DragMove(delta)
		s := c.State()
		if s.TranslateY < 0 || s.TranslateY > s.MaxTranslate {
			t.Errorf("DragMove(%v): offset %v outside [0, %v]", delta, s.TranslateY, s.MaxTranslate)
		}
	}
}

func TestDragMove_IsCumulativeFromAnchor(t *testing.T) {
	c := newTestController()
	c.Resize(400, 800) // offset 410

	c.DragStart()
	c.DragMove(-100)
	if got := c.State().TranslateY; got != 310 {
		t.Errorf("TranslateY = %v, want 310", got)
	}
	// Total delta, not an increment: a repeat of the same delta is a no-op.
	c.DragMove(-100)
	if got := c.State().TranslateY; got != 310 {
		t.Errorf("TranslateY = %v, want 310 after repeated total delta", got)
	}
}

func TestDragEnd_MidpointRule(t *testing.T) {
	tests := []struct {
		name       string
		totalDelta float64 // from fully collapsed anchor (410)
		wantTarget float64 // 0 expanded, 410 collapsed
		wantExpand bool
	}{
		{name: "released just past midpoint collapses", totalDelta: -204, wantTarget: 410, wantExpand: false},
		{name: "released exactly at midpoint expands", totalDelta: -205, wantTarget: 0, wantExpand: true},
		{name: "released below midpoint expands", totalDelta: -206, wantTarget: 0, wantExpand: true},
		{name: "released at top stays expanded", totalDelta: -410, wantTarget: 0, wantExpand: true},
		{name: "no movement stays collapsed", totalDelta: 0, wantTarget: 410, wantExpand: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController()
			c.Resize(400, 800)

			c.DragStart()
			c.DragMove(tt.totalDelta)
			c.DragEnd()

			waitSettled(t, c, tt.wantTarget)
			s := c.State()
			if s.Expanded != tt.wantExpand {
				t.Errorf("Expanded = %v, want %v", s.Expanded, tt.wantExpand)
			}
			wantPhase := PhaseCollapsed
			if tt.wantExpand {
				wantPhase = PhaseExpanded
			}
			if s.Phase != wantPhase {
				t.Errorf("Phase = %q, want %q", s.Phase, wantPhase)
			}
		})
	}
}

func TestDragCancel_ResolvesLikeEnd(t *testing.T) {
	c := newTestController()
	c.Resize(400, 800)

	c.DragStart()
	c.DragMove(-300)
	c.DragCancel()

	waitSettled(t, c, 0)
	if !c.State().Expanded {
		t.Error("cancel past midpoint should expand")
	}
}

func TestTap_Toggles(t *testing.T) {
	c := newTestController()
	c.Resize(400, 800)

	c.Tap()
	waitSettled(t, c, 0)
	if !c.State().Expanded {
		t.Error("first tap should expand")
	}

	c.Tap()
	waitSettled(t, c, 410)
	if c.State().Expanded {
		t.Error("second tap should collapse")
	}
}

func TestTap_TogglesFromCommittedStateMidSettle(t *testing.T) {
	c := newTestController()
	c.settleDuration = 500 * time.Millisecond
	c.Resize(400, 800)

	// Commit an expand, then tap again while the settle is still in flight.
	// The toggle must read the committed state, not the current offset.
	c.Tap()
	time.Sleep(30 * time.Millisecond)
	c.Tap()

	waitSettled(t, c, 410)
	if c.State().Expanded {
		t.Error("tap mid-settle should toggle back to collapsed")
	}
}

func TestSettle_LastWriterWins(t *testing.T) {
	c := newTestController()
	c.settleDuration = 500 * time.Millisecond
	c.Resize(400, 800)

	// Start an expand settle, then immediately grab the sheet. The grab
	// aborts the running animation near 410 and the release collapses again.
	c.Tap()
	c.DragStart()
	c.DragMove(0)
	c.DragEnd()

	waitSettled(t, c, 410)
	if c.State().Expanded {
		t.Error("drag settle should have replaced the tap settle")
	}
}

func TestSettle_ReversalDiscardsStaleFrames(t *testing.T) {
	c := newTestController()
	c.settleDuration = 300 * time.Millisecond
	c.Resize(400, 800)

	// Expand, then reverse mid-flight. Every frame applied after the second
	// tap must belong to the collapse animation, so the offset may only move
	// toward 410 from here on.
	c.Tap()
	time.Sleep(100 * time.Millisecond)
	c.Tap()
	ch := c.Subscribe()

	last := -1.0
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-ch:
			if s.TranslateY < last {
				t.Fatalf("offset moved backwards: %v after %v", s.TranslateY, last)
			}
			last = s.TranslateY
			if last == 410 {
				return
			}
		case <-deadline:
			t.Fatalf("collapse never completed, offset = %v", c.State().TranslateY)
		}
	}
}

func TestGesturesBeforeFirstResizeAreIgnored(t *testing.T) {
	c := newTestController()

	c.DragStart()
	c.DragMove(-100)
	c.DragEnd()
	c.Tap()

	s := c.State()
	if s.TranslateY != 0 || s.MaxTranslate != 0 {
		t.Errorf("unexpected state before first resize: %+v", s)
	}
}

func TestSubscribe_ReceivesOffsetUpdates(t *testing.T) {
	c := newTestController()
	ch := c.Subscribe()
	c.Resize(400, 800)

	select {
	case s := <-ch:
		if s.TranslateY != 410 {
			t.Errorf("first snapshot TranslateY = %v, want 410", s.TranslateY)
		}
	case <-time.After(time.Second):
		t.Fatal("no snapshot received after resize")
	}
}
