// Package joplin parses notes from a Joplin Markdown export into a form
// ready for import into Bear.
//
// Joplin front matter is simple enough that a line-oriented scan over the
// raw bytes beats a YAML parser here: the fields are flat key/value lines,
// the delimiters are literal, and the byte offsets of the block are part of
// the result. The scan tolerates arbitrary unknown lines between the
// delimiters and never interprets them.
package joplin

import (
	"strings"
	"time"
)

// marker delimits the front matter block. Joplin writes it as a bare
// three-dash line, and the trailing newline is part of the match.
const marker = "---\n"

// Note is one fully parsed export note. Build either produces a complete
// Note or an error; a Note never holds partially extracted state.
type Note struct {
	// Title is the note title from front matter.
	Title string

	// Created and Updated are the note's timestamps, normalized to UTC.
	Created time.Time
	Updated time.Time

	// FrontMatter is the exact slice of the raw text between
	// FrontMatterStart and FrontMatterEnd, both delimiter lines included.
	FrontMatter      string
	FrontMatterStart int
	FrontMatterEnd   int

	// Body is everything after the closing delimiter with surrounding
	// whitespace trimmed. It may be empty.
	Body string

	// Tag is the nested Bear tag derived from RelativePath, for example
	// "#projects/ideas" for "projects/ideas.md". Empty when the path has
	// no usable segments.
	Tag string

	// RelativePath is the note's slash-separated location under the export
	// root, kept verbatim so the writer can mirror it under the target.
	RelativePath string
}

// Build parses one raw note. relativePath must be slash-separated and
// relative to the export root; it only feeds the derived tag and the
// mirrored output location, never the parse itself.
func Build(relativePath string, raw []byte) (*Note, error) {
	text := string(raw)

	start, end, err := locateFrontMatter(text)
	if err != nil {
		return nil, err
	}
	if start < 0 || end > len(text) || start >= end {
		return nil, ErrMissingFrontMatter
	}
	frontMatter := text[start:end]

	title, ok := fieldValue(frontMatter, "title:")
	if !ok {
		return nil, ErrMissingTitle
	}
	created, err := dateField(frontMatter, "created:", ErrMissingCreated, ErrInvalidCreated)
	if err != nil {
		return nil, err
	}
	updated, err := dateField(frontMatter, "updated:", ErrMissingUpdated, ErrInvalidUpdated)
	if err != nil {
		return nil, err
	}

	return &Note{
		Title:            title,
		Created:          created,
		Updated:          updated,
		FrontMatter:      frontMatter,
		FrontMatterStart: start,
		FrontMatterEnd:   end,
		Body:             strings.TrimSpace(text[end:]),
		Tag:              DeriveTag(relativePath),
		RelativePath:     relativePath,
	}, nil
}

// locateFrontMatter returns the byte offset of the opening delimiter and the
// offset just past the closing one. The closing delimiter is searched
// strictly after the opening one, so an unterminated block is reported as
// ErrMissingEndMarker. The markers are not anchored to line starts; the
// first two occurrences in the text win.
func locateFrontMatter(text string) (start, end int, err error) {
	start = strings.Index(text, marker)
	if start < 0 {
		return 0, 0, ErrMissingStartMarker
	}

	afterStart := start + len(marker)
	rel := strings.Index(text[afterStart:], marker)
	if rel < 0 {
		return 0, 0, ErrMissingEndMarker
	}
	end = afterStart + rel + len(marker)
	if end > len(text) {
		return 0, 0, ErrMissingEndMarker
	}
	return start, end, nil
}

// fieldValue scans the front matter line by line and returns the first
// non-blank value for the given key prefix, e.g. "title:". Lines are
// trimmed before matching, so indentation does not matter. A present key
// whose value trims to nothing counts as absent, and scanning continues in
// case a later line carries the value.
func fieldValue(frontMatter, key string) (string, bool) {
	for _, line := range strings.Split(frontMatter, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimSpace(line), key)
		if !ok {
			continue
		}
		if value := strings.TrimSpace(rest); value != "" {
			return value, true
		}
	}
	return "", false
}

// dateField extracts key and parses its value as an RFC 3339 date-time.
// The value must carry an explicit UTC offset; a bare local date-time is
// rejected rather than silently assumed to be UTC. Parsed times are
// normalized to UTC so downstream comparisons never depend on the offset
// the export happened to use.
func dateField(frontMatter, key string, missing, invalid error) (time.Time, error) {
	value, ok := fieldValue(frontMatter, key)
	if !ok {
		return time.Time{}, missing
	}
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, invalid
	}
	return ts.UTC(), nil
}

// DeriveTag converts a slash-separated relative path into a single nested
// tag such as "#folder/sub/note". Empty segments are dropped, spaces become
// hyphens because Bear ends a tag at the first space, and the final segment
// loses a trailing ".md". A path with no usable segments yields no tag.
func DeriveTag(relativePath string) string {
	var segments []string
	for _, seg := range strings.Split(relativePath, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteByte('#')
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('/')
		}
		seg = strings.ReplaceAll(seg, " ", "-")
		if i == len(segments)-1 {
			seg = strings.TrimSuffix(seg, ".md")
		}
		b.WriteString(seg)
	}
	return b.String()
}
