package sheet

import (
	"math"
	"sync"
	"time"
)

// animator runs a single named interpolation over the sheet offset. Starting
// a new run aborts any previous one; there is no animation queue.
type animator struct {
	mu     sync.Mutex
	cancel chan struct{}
}

// start interpolates from -> to over d with a cubic ease-out curve, invoking
// step on every frame and done once the target value has been delivered.
// Aborted runs never invoke done.
func (a *animator) start(from, to float64, d, frame time.Duration, step func(v float64), done func()) {
	a.mu.Lock()
	if a.cancel != nil {
		close(a.cancel)
	}
	cancel := make(chan struct{})
	a.cancel = cancel
	a.mu.Unlock()

	go func() {
		ticker := time.NewTicker(frame)
		defer ticker.Stop()

		started := time.Now()
		for {
			select {
			case <-cancel:
				return
			case now := <-ticker.C:
				t := float64(now.Sub(started)) / float64(d)
				if t >= 1 {
					step(to)
					done()
					return
				}
				step(from + (to-from)*easeOutCubic(t))
			}
		}
	}()
}

// abort cancels the running interpolation, if any.
func (a *animator) abort() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		close(a.cancel)
		a.cancel = nil
	}
}

func easeOutCubic(t float64) float64 {
	return 1 - math.Pow(1-t, 3)
}
