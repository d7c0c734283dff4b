package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"interviewdesk/internal/devices"
	"interviewdesk/internal/domain"
	"interviewdesk/internal/ports"
	"interviewdesk/internal/speech"
	"interviewdesk/internal/turn"
)

type activeSession struct {
	id            string
	applicationID string
	jobID         string
	mode          domain.InterviewMode

	ctx       context.Context
	cancel    context.CancelFunc
	logger    zerolog.Logger
	cfg       Config
	events    ports.EventSink
	finalizer resultFinalizer
	onExit    func(*activeSession)

	devices *devices.Manager
	output  *speech.Output
	input   *speech.Input
	driver  *scriptDriver

	// Owned by the loop goroutine.
	turn   turn.State
	phase  domain.SessionPhase
	resume loopTimer
	gap    loopTimer
	done   bool

	commands chan func()
	timers   chan timerFired
	exited   chan struct{}

	statusMu sync.Mutex
	status   domain.Status
}

func (s *activeSession) setStatus(status domain.Status) {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	s.status = status
}

func (s *activeSession) getStatus() domain.Status {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	return s.status
}

type timerKind string

const (
	timerResume timerKind = "resume"
	timerGap    timerKind = "gap"
)

type timerFired struct {
	kind timerKind
	gen  uint64
}

// loopTimer is a one-shot timer whose firing is delivered back to the loop.
// Firings from a stopped or re-armed timer are recognized by generation.
type loopTimer struct {
	kind  timerKind
	timer *time.Timer
	gen   uint64
	armed bool
}

func (t *loopTimer) arm(d time.Duration, deliver chan<- timerFired, exited <-chan struct{}) {
	t.stop()
	t.gen++
	t.armed = true
	fired := timerFired{kind: t.kind, gen: t.gen}
	t.timer = time.AfterFunc(d, func() {
		select {
		case deliver <- fired:
		case <-exited:
		}
	})
}

func (t *loopTimer) stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.gen++
	t.armed = false
}

// fire reports whether f belongs to the currently armed timer and disarms it.
func (t *loopTimer) fire(f timerFired) bool {
	if !t.armed || f.gen != t.gen {
		return false
	}
	t.armed = false
	return true
}
