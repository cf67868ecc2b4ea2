package song

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
)

// Tag is a parsed script tag value: an integer frame count for the reserved
// "length" tag, a verbatim string for everything else.
type Tag struct {
	frames  int
	raw     string
	numeric bool
}

// IntTag creates a numeric tag holding a frame count.
func IntTag(frames int) Tag {
	return Tag{frames: frames, numeric: true}
}

// StringTag creates a verbatim string tag.
func StringTag(raw string) Tag {
	return Tag{raw: raw}
}

// Int returns the frame count. The second return value is false for string
// tags.
func (t Tag) Int() (int, bool) {
	return t.frames, t.numeric
}

// String returns the raw value for string tags and the rendered frame count
// for numeric ones.
func (t Tag) String() string {
	if t.numeric {
		return strconv.Itoa(t.frames)
	}
	return t.raw
}

var (
	headerPattern = regexp.MustCompile(`\[(\w+)\]`)
	tagPattern    = regexp.MustCompile(`#(\w+)([^#]*)`)
)

// ParseLyrics splits a tagged lyric script into ordered segments. Each
// segment is a block of optional "#tag value" lines followed by a
// "[SectionName]" header and free-text lyrics running up to the next tag
// block or header. A script without any header yields no segments.
func ParseLyrics(script string) []*Segment {
	headers := headerPattern.FindAllStringSubmatchIndex(script, -1)
	if len(headers) == 0 {
		return nil
	}

	segments := make([]*Segment, 0, len(headers))
	for i, h := range headers {
		name := strings.TrimSpace(script[h[2]:h[3]])

		// Tag block: the "#..." run between the previous body and this
		// header. Text before the first "#" of the script is ignored.
		blockStart := 0
		if i > 0 {
			blockStart = headers[i-1][1]
		}
		tagBlock := ""
		prefix := script[blockStart:h[0]]
		if idx := strings.Index(prefix, "#"); idx >= 0 {
			tagBlock = prefix[idx:]
		}

		// Body: everything after the header up to the next tag block,
		// the next header, or the end of the script.
		bodyEnd := len(script)
		if i+1 < len(headers) {
			bodyEnd = headers[i+1][0]
		}
		body := script[h[1]:bodyEnd]
		if idx := strings.Index(body, "#"); idx >= 0 {
			body = body[:idx]
		}

		segments = append(segments, NewSegment(name, parseTags(tagBlock), strings.TrimSpace(body)))
	}
	return segments
}

func parseTags(block string) map[string]Tag {
	tags := map[string]Tag{}
	for _, m := range tagPattern.FindAllStringSubmatch(block, -1) {
		name := strings.ToLower(strings.TrimSpace(m[1]))
		value := strings.TrimSpace(m[2])
		tag, err := parseTag(name, value)
		if err != nil {
			// A bad tag is dropped, the rest of the parse goes on.
			log.Printf("song: invalid tag #%s %s: %v\n", name, value, err)
			continue
		}
		tags[name] = tag
	}
	return tags
}

// parseTag coerces the reserved "length" tag into frames: a "t" suffix means
// a raw token count, anything else is seconds at 50 frames per second.
func parseTag(name, value string) (Tag, error) {
	if name != "length" {
		return StringTag(value), nil
	}
	if strings.HasSuffix(value, "t") {
		n, err := strconv.Atoi(strings.TrimSuffix(value, "t"))
		if err != nil {
			return Tag{}, fmt.Errorf("song: couldn't parse token count: %w", err)
		}
		return IntTag(n), nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return Tag{}, fmt.Errorf("song: couldn't parse seconds: %w", err)
	}
	return IntTag(int(f * FramesPerSecond)), nil
}
