package script

import (
	"regexp"
	"strings"
)

// Segment is a contiguous span of one speaker's dialogue parsed from a script.
type Segment struct {
	Speaker string
	Text    string
}

var speakerTag = regexp.MustCompile(`\[([^\]]+)\]`)

// SplitSegments parses a speaker-tagged script into ordered segments. Tags
// look like "[Host]" and apply to all text up to the next tag. A script with
// no tags at all becomes a single segment under defaultSpeaker. Segments with
// no content between tags are dropped, as is any text before the first tag.
func SplitSegments(text, defaultSpeaker string) []Segment {
	matches := speakerTag.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []Segment{{Speaker: defaultSpeaker, Text: trimmed}}
	}

	var segments []Segment
	for i, m := range matches {
		speaker := strings.TrimSpace(text[m[2]:m[3]])
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := strings.TrimSpace(text[m[1]:end])
		if speaker == "" || content == "" {
			continue
		}
		segments = append(segments, Segment{Speaker: speaker, Text: content})
	}
	return segments
}
