// Package transcript models timed transcript segments and their SRT
// wire format. Parsing tolerates malformed cues the way subtitle tools
// in the wild require; serialization always emits well-formed SRT in
// start-ascending order.
package transcript

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Segment is a single timed span of transcript text. Times are seconds
// from the start of the media.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Validate reports whether the segment is well formed.
func (s Segment) Validate() error {
	if s.Start < 0 {
		return fmt.Errorf("segment start %f is negative", s.Start)
	}
	if s.End <= s.Start {
		return fmt.Errorf("segment end %f is not after start %f", s.End, s.Start)
	}
	if strings.TrimSpace(s.Text) == "" {
		return fmt.Errorf("segment at %f has empty text", s.Start)
	}
	return nil
}

// ParseSRT parses SRT content into segments, ordered by ascending start
// time. Malformed cue blocks and empty cues are skipped.
func ParseSRT(data []byte) []Segment {
	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	blocks := strings.Split(content, "\n\n")
	segments := make([]Segment, 0, len(blocks))
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		if len(lines) < 2 {
			continue
		}

		// First line is the cue index; some emitters omit it.
		timingLine := lines[0]
		textStart := 1
		if !strings.Contains(timingLine, "-->") {
			if len(lines) < 3 || !strings.Contains(lines[1], "-->") {
				continue
			}
			timingLine = lines[1]
			textStart = 2
		}

		parts := strings.Split(timingLine, "-->")
		if len(parts) != 2 {
			continue
		}
		start, err := parseTimestamp(parts[0])
		if err != nil {
			continue
		}
		end, err := parseTimestamp(parts[1])
		if err != nil {
			continue
		}

		text := strings.TrimSpace(strings.Join(lines[textStart:], "\n"))
		seg := Segment{Start: start, End: end, Text: text}
		if seg.Validate() != nil {
			continue
		}
		segments = append(segments, seg)
	}

	sort.SliceStable(segments, func(i, j int) bool {
		return segments[i].Start < segments[j].Start
	})
	return segments
}

// FormatSRT serializes segments as SRT, renumbering cues sequentially
// in start-ascending order.
func FormatSRT(segments []Segment) []byte {
	ordered := make([]Segment, len(segments))
	copy(ordered, segments)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start < ordered[j].Start
	})

	var sb strings.Builder
	for i, seg := range ordered {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(strconv.Itoa(i + 1))
		sb.WriteString("\n")
		sb.WriteString(formatTimestamp(seg.Start))
		sb.WriteString(" --> ")
		sb.WriteString(formatTimestamp(seg.End))
		sb.WriteString("\n")
		sb.WriteString(seg.Text)
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

// PlainText joins segment text into a single block suitable for
// summarization input.
func PlainText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

func parseTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// Normalize period to comma (SRT uses comma for milliseconds).
	value = strings.ReplaceAll(value, ".", ",")
	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, nil
}

func formatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMillis := int64(seconds*1000 + 0.5)
	hours := totalMillis / 3600000
	totalMillis %= 3600000
	minutes := totalMillis / 60000
	totalMillis %= 60000
	secs := totalMillis / 1000
	millis := totalMillis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, secs, millis)
}
