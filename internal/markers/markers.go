// Package markers finds and resolves version-control conflict regions in text.
//
// A conflict region looks like:
//
//	<<<<<<< HEAD
//	local lines
//	=======
//	incoming lines
//	>>>>>>> feature-branch
//
// Resolution always keeps the incoming lines and drops everything else,
// including the three marker lines.
package markers

import (
	"bytes"
	"regexp"
)

// Marker tokens recognized at the start of a line.
const (
	StartToken     = "<<<<<<< HEAD"
	SeparatorToken = "======="
	EndToken       = ">>>>>>> "
)

// conflictPattern matches one conflict region. Both segments are non-greedy
// so that every start/separator/end triple is matched on its own. "HEAD" may
// be followed by any label that starts with a non-word character, such as
// " (current change)", ":src/a.ts" or "~1". Marker lines may end in CRLF;
// the incoming segment keeps its line endings.
//
// Submatches: 1 start label, 2 local segment, 3 incoming segment, 4 end label.
var conflictPattern = regexp.MustCompile(
	`(?ms)^<<<<<<< (HEAD(?:[^\w\r\n][^\r\n]*)?)\r?\n(.*?)^=======\r?\n(.*?)^>>>>>>> ([^\r\n]*)\r?\n?`,
)

// Region describes a single matched conflict region.
type Region struct {
	// StartLine is the 1-based line number of the start marker.
	StartLine int `json:"start_line" yaml:"start_line"`
	// EndLine is the 1-based line number of the end marker.
	EndLine int `json:"end_line" yaml:"end_line"`
	// StartLabel is the text following "<<<<<<< " (usually "HEAD").
	StartLabel string `json:"start_label" yaml:"start_label"`
	// EndLabel is the text following ">>>>>>> ", commonly a branch or commit.
	EndLabel string `json:"end_label" yaml:"end_label"`
	// Local is the discarded segment between start and separator.
	Local string `json:"local" yaml:"local"`
	// Incoming is the retained segment between separator and end.
	Incoming string `json:"incoming" yaml:"incoming"`
}

// Lines returns the number of lines the region spans, marker lines included.
func (r Region) Lines() int {
	return r.EndLine - r.StartLine + 1
}

// Resolve replaces every conflict region in content with its incoming
// segment. It returns the new content and the number of regions replaced.
// When no region matches, content is returned as is with a count of zero.
func Resolve(content []byte) ([]byte, int) {
	matches := conflictPattern.FindAllSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, 0
	}

	var b bytes.Buffer
	b.Grow(len(content))

	last := 0
	for _, m := range matches {
		b.Write(content[last:m[0]])
		b.Write(content[m[6]:m[7]])
		last = m[1]
	}
	b.Write(content[last:])

	return b.Bytes(), len(matches)
}

// Find returns every conflict region in content, in document order.
func Find(content []byte) []Region {
	matches := conflictPattern.FindAllSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return nil
	}

	regions := make([]Region, 0, len(matches))
	line := 1
	offset := 0
	for _, m := range matches {
		line += bytes.Count(content[offset:m[0]], []byte{'\n'})
		offset = m[0]

		span := bytes.TrimSuffix(content[m[0]:m[1]], []byte{'\n'})
		regions = append(regions, Region{
			StartLine:  line,
			EndLine:    line + bytes.Count(span, []byte{'\n'}),
			StartLabel: string(content[m[2]:m[3]]),
			Local:      string(content[m[4]:m[5]]),
			Incoming:   string(content[m[6]:m[7]]),
			EndLabel:   string(content[m[8]:m[9]]),
		})
	}
	return regions
}
