package usecase

import (
	"strings"
	"time"

	"interviewdesk/internal/domain"
	"interviewdesk/internal/script"
)

// scriptDriver walks the interview script. It owns the SessionState and
// queues the segments the arbiter should voice next.
type scriptDriver struct {
	segments []domain.ScriptSegment
	state    domain.SessionState

	queue    []int
	question int // awaiting an answer, or -1
	appended map[int]bool

	onAppend func(domain.TranscriptEntry)
}

func newScriptDriver(segments []domain.ScriptSegment, onAppend func(domain.TranscriptEntry)) (*scriptDriver, error) {
	if err := script.Validate(segments); err != nil {
		return nil, err
	}
	return &scriptDriver{
		segments: append([]domain.ScriptSegment(nil), segments...),
		question: -1,
		appended: make(map[int]bool),
		onAppend: onAppend,
	}, nil
}

// begin queues the opening segments up to and including the first question.
func (d *scriptDriver) begin() {
	d.enqueueThrough(0)
}

// next pops the next queued segment.
func (d *scriptDriver) next() (domain.ScriptSegment, bool) {
	if d.state.Ended || len(d.queue) == 0 {
		return domain.ScriptSegment{}, false
	}
	index := d.queue[0]
	d.queue = d.queue[1:]
	return d.segments[index], true
}

func (d *scriptDriver) pending() bool {
	return len(d.queue) > 0
}

// awaiting reports whether a question has been voiced and not yet answered.
func (d *scriptDriver) awaiting() bool {
	return !d.state.Ended && d.question >= 0 && d.appended[d.question]
}

// submit records a candidate answer and moves on to the next question.
func (d *scriptDriver) submit(text string, at time.Time) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return &domain.SubmissionError{Reason: domain.ErrEmptyAnswer}
	}
	d.appendEntry(domain.RoleCandidate, text, at)
	d.advance()
	return nil
}

// forceAdvance skips the current question. A non-empty draft is still kept
// as the candidate's answer.
func (d *scriptDriver) forceAdvance(draft string, at time.Time) error {
	if err := d.checkOpen(); err != nil {
		return err
	}
	if text := strings.TrimSpace(draft); text != "" {
		d.appendEntry(domain.RoleCandidate, text, at)
	}
	d.advance()
	return nil
}

// voiced appends the interviewer line for seg once.
func (d *scriptDriver) voiced(seg domain.ScriptSegment, at time.Time) bool {
	if d.appended[seg.Index] {
		return false
	}
	d.appended[seg.Index] = true
	d.appendEntry(domain.RoleInterviewer, seg.Text, at)
	return true
}

func (d *scriptDriver) end() {
	d.state.Ended = true
	d.state.PausedUtterance = nil
	d.queue = nil
	d.question = -1
}

func (d *scriptDriver) total() int {
	return len(d.segments)
}

// checkOpen accepts answers only for a question the candidate has heard.
func (d *scriptDriver) checkOpen() error {
	if d.state.Ended || d.question < 0 {
		return &domain.SubmissionError{Reason: domain.ErrSessionEnded}
	}
	if !d.appended[d.question] {
		return &domain.SubmissionError{Reason: domain.ErrQuestionNotAsked}
	}
	return nil
}

func (d *scriptDriver) advance() {
	from := d.question + 1
	d.question = -1
	d.enqueueThrough(from)
}

// enqueueThrough queues segments from index on, stopping after the next
// question or the closing segment.
func (d *scriptDriver) enqueueThrough(from int) {
	for i := from; i < len(d.segments); i++ {
		d.queue = append(d.queue, i)
		if i > d.state.CurrentSegmentIndex {
			d.state.CurrentSegmentIndex = i
		}
		switch d.segments[i].Kind {
		case domain.SegmentQuestion:
			d.question = i
			return
		case domain.SegmentClosing:
			return
		}
	}
}

func (d *scriptDriver) appendEntry(role domain.Role, text string, at time.Time) {
	entry := domain.TranscriptEntry{Role: role, Text: text, Timestamp: at}
	d.state.Transcript = append(d.state.Transcript, entry)
	if d.onAppend != nil {
		d.onAppend(entry)
	}
}
