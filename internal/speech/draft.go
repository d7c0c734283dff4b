package speech

import (
	"strings"
	"sync"

	"interviewdesk/internal/domain"
)

// answerDraft accumulates recognized fragments into the candidate's answer:
// finals joined in order, followed by the current partial.
type answerDraft struct {
	mu      sync.Mutex
	finals  []string
	partial string
}

func (d *answerDraft) Add(event domain.TranscriptEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	text := strings.TrimSpace(event.Text)
	if text == "" {
		return
	}
	if event.Kind == domain.TranscriptKindFinal {
		d.finals = append(d.finals, text)
		d.partial = ""
		return
	}
	d.partial = text
}

func (d *answerDraft) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	joined := strings.TrimSpace(strings.Join(d.finals, " "))
	if d.partial == "" {
		return joined
	}
	if joined == "" {
		return d.partial
	}
	if strings.HasSuffix(joined, d.partial) {
		return joined
	}
	return joined + " " + d.partial
}

func (d *answerDraft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.finals = nil
	d.partial = ""
}
