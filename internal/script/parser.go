package script

import (
	"errors"
	"fmt"
	"strings"

	"interviewdesk/internal/domain"
)

// LineParser parses one script line into a segment draft.
type LineParser interface {
	CanParse(line string) bool
	Parse(line string) (draft, error)
}

type draft struct {
	kind   domain.SegmentKind
	text   string
	clipID string
}

// Parse reads a script using the built-in line parsers.
func Parse(contents string) ([]domain.ScriptSegment, error) {
	return ParseWithParsers(contents, defaultLineParsers())
}

// ParseWithParsers allows line format extension without changing validation.
func ParseWithParsers(contents string, parsers []LineParser) ([]domain.ScriptSegment, error) {
	if len(parsers) == 0 {
		parsers = defaultLineParsers()
	}

	lines := strings.Split(contents, "\n")
	drafts := make([]draft, 0, len(lines))

	for index, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parsed := false
		for _, parser := range parsers {
			if !parser.CanParse(line) {
				continue
			}
			d, err := parser.Parse(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", index+1, err)
			}
			drafts = append(drafts, d)
			parsed = true
			break
		}

		if !parsed {
			return nil, fmt.Errorf("line %d: unsupported segment format", index+1)
		}
	}

	segments := make([]domain.ScriptSegment, len(drafts))
	for i, d := range drafts {
		segments[i] = domain.ScriptSegment{Index: i, Kind: d.kind, Text: d.text, FallbackClipID: d.clipID}
	}
	if err := Validate(segments); err != nil {
		return nil, err
	}
	return segments, nil
}

// Validate checks that a script is usable by the driver.
func Validate(segments []domain.ScriptSegment) error {
	if len(segments) == 0 {
		return domain.ErrEmptyScript
	}
	closings := 0
	for i, seg := range segments {
		if seg.Index != i {
			return fmt.Errorf("segment %d has index %d", i, seg.Index)
		}
		if strings.TrimSpace(seg.Text) == "" {
			return fmt.Errorf("segment %d has no text", i)
		}
		if seg.Kind == domain.SegmentClosing {
			closings++
		}
	}
	if segments[len(segments)-1].Kind != domain.SegmentClosing || closings != 1 {
		return domain.ErrScriptNotClosed
	}
	return nil
}

func defaultLineParsers() []LineParser {
	return []LineParser{kindLineParser{}}
}

type kindLineParser struct{}

func (kindLineParser) CanParse(line string) bool {
	head, _, ok := strings.Cut(line, ":")
	if !ok {
		return false
	}
	_, known := parseKind(head)
	return known
}

func (kindLineParser) Parse(line string) (draft, error) {
	head, rest, _ := strings.Cut(line, ":")
	kind, _ := parseKind(head)

	text, options, hasOptions := strings.Cut(rest, "|")
	d := draft{kind: kind, text: strings.TrimSpace(text)}
	if d.text == "" {
		return draft{}, errors.New("segment text cannot be empty")
	}

	if hasOptions {
		for _, option := range strings.Fields(options) {
			key, value, ok := strings.Cut(option, "=")
			if !ok {
				return draft{}, fmt.Errorf("invalid option %q", option)
			}
			switch strings.ToLower(key) {
			case "clip":
				if value == "" {
					return draft{}, errors.New("clip id cannot be empty")
				}
				d.clipID = value
			default:
				return draft{}, fmt.Errorf("unsupported option %q", key)
			}
		}
	}
	return d, nil
}

func parseKind(value string) (domain.SegmentKind, bool) {
	kind := domain.SegmentKind(strings.ToLower(strings.TrimSpace(value)))
	switch kind {
	case domain.SegmentIntro, domain.SegmentQuestion, domain.SegmentAck, domain.SegmentClosing:
		return kind, true
	default:
		return "", false
	}
}
