package main

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
)

const spinInterval = 100 * time.Millisecond

// spinner is a workflow.Indicator drawn with an indeterminate progress bar.
type spinner struct {
	w io.Writer

	mu      sync.Mutex
	depth   int
	bar     *progressbar.ProgressBar
	done    chan struct{}
	stopped chan struct{}
}

func newSpinner(w io.Writer) *spinner {
	return &spinner{w: w}
}

func (s *spinner) Start(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.depth++
	if s.bar != nil {
		s.bar.Describe(label)
		return
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(s.w),
		progressbar.OptionSetDescription(label),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionClearOnFinish(),
	)
	done := make(chan struct{})
	stopped := make(chan struct{})
	s.bar, s.done, s.stopped = bar, done, stopped

	go func() {
		defer close(stopped)
		t := time.NewTicker(spinInterval)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				_ = bar.Add(1)
			}
		}
	}()
}

func (s *spinner) Stop() {
	s.mu.Lock()
	if s.depth == 0 {
		s.mu.Unlock()
		return
	}
	s.depth--
	if s.depth > 0 {
		s.mu.Unlock()
		return
	}
	bar, done, stopped := s.bar, s.done, s.stopped
	s.bar, s.done, s.stopped = nil, nil, nil
	s.mu.Unlock()

	close(done)
	<-stopped
	_ = bar.Finish()
}
