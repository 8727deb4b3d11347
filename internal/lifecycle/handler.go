// Package lifecycle wraps pipeline stage execution with timing and observer
// dispatch, so progress display and logging stay out of stage code.
//
// The lifecycle package is intentionally minimal: no event bus, no
// goroutines. Each wrapper captures the start time, runs the stage, computes
// the duration and notifies the observer.
package lifecycle

import "time"

// StageObserver is notified around every stage.
//
// Implementations need not be safe for concurrent use; stages run one at a
// time.
type StageObserver interface {
	// OnStageStart is called before the stage runs.
	OnStageStart(name string)

	// OnStageComplete is called after the stage returns. err is nil on
	// success.
	OnStageComplete(name string, err error, duration time.Duration)
}

// RunStage runs fn as stage name, notifying observer before and after.
// A nil observer is allowed.
func RunStage(observer StageObserver, name string, fn func() error) error {
	if observer != nil {
		observer.OnStageStart(name)
	}
	start := time.Now()
	err := fn()
	if observer != nil {
		observer.OnStageComplete(name, err, time.Since(start))
	}
	return err
}

// Multi fans notifications out to several observers in order.
type Multi []StageObserver

func (m Multi) OnStageStart(name string) {
	for _, o := range m {
		if o != nil {
			o.OnStageStart(name)
		}
	}
}

func (m Multi) OnStageComplete(name string, err error, duration time.Duration) {
	for _, o := range m {
		if o != nil {
			o.OnStageComplete(name, err, duration)
		}
	}
}
