package script

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"

	"interviewdesk/internal/domain"
)

// FileSource serves one script file for every job.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Script(ctx context.Context, _ string) ([]domain.ScriptSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	contents, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script file %q: %w", s.path, err)
	}
	segments, err := Parse(string(contents))
	if err != nil {
		return nil, fmt.Errorf("failed to parse script file %q: %w", s.path, err)
	}
	return segments, nil
}

// Bank is a fixed question set for one job.
type Bank struct {
	Intro     string
	Questions []string
	Acks      []string
	Closing   string
}

// DefaultBankKey is used when a job has no bank of its own.
const DefaultBankKey = "default"

// BankSource expands question banks keyed by job ID.
type BankSource struct {
	banks map[string]Bank
}

// NewBankSource returns a source over banks. A nil map uses the built-in bank.
func NewBankSource(banks map[string]Bank) *BankSource {
	if banks == nil {
		banks = map[string]Bank{DefaultBankKey: builtinBank}
	}
	return &BankSource{banks: banks}
}

func (s *BankSource) Script(ctx context.Context, jobID string) ([]domain.ScriptSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bank, ok := s.banks[strings.TrimSpace(jobID)]
	if !ok {
		bank, ok = s.banks[DefaultBankKey]
	}
	if !ok {
		return nil, fmt.Errorf("no question bank for job %q", jobID)
	}
	segments := Expand(bank)
	if err := Validate(segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// Expand turns a bank into intro, (question, ack)*, closing.
func Expand(bank Bank) []domain.ScriptSegment {
	questions := lo.Filter(bank.Questions, func(q string, _ int) bool {
		return strings.TrimSpace(q) != ""
	})

	segments := make([]domain.ScriptSegment, 0, 2*len(questions)+2)
	add := func(kind domain.SegmentKind, text string) {
		segments = append(segments, domain.ScriptSegment{Index: len(segments), Kind: kind, Text: text})
	}

	if strings.TrimSpace(bank.Intro) != "" {
		add(domain.SegmentIntro, bank.Intro)
	}
	for i, q := range questions {
		add(domain.SegmentQuestion, q)
		if len(bank.Acks) > 0 {
			add(domain.SegmentAck, bank.Acks[i%len(bank.Acks)])
		}
	}
	if strings.TrimSpace(bank.Closing) != "" {
		add(domain.SegmentClosing, bank.Closing)
	}
	return segments
}

var builtinBank = Bank{
	Intro: "Hi, thanks for joining. I'll ask you a few questions about your background. Take your time with each answer.",
	Questions: []string{
		"Tell me about a project you're proud of and the part you personally owned.",
		"Describe a time you disagreed with a teammate. How did you resolve it?",
		"What is something you learned recently, and how did you apply it?",
	},
	Acks: []string{
		"Thanks, that's helpful.",
		"Got it, thank you.",
		"Great, thanks for sharing.",
	},
	Closing: "That's all the questions I have. Thanks for your time, we'll be in touch soon.",
}
