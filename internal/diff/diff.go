package diff

import (
	"bytes"
	"fmt"
	"strings"
)

// Line represents a single line in a diff with its type and content
type Line struct {
	Type    LineType
	Content string
	OldNum  int // 1-based, 0 for additions
	NewNum  int // 1-based, 0 for deletions
}

// LineType indicates whether a line was added, removed, or is context
type LineType int

const (
	Context LineType = iota
	Addition
	Deletion
)

// Result contains the complete diff information
type Result struct {
	Hunks []Hunk
	Stats struct {
		Additions int
		Deletions int
		Changes   int
	}
}

// Hunk represents a continuous section of changes
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// Engine provides diffing capabilities
type Engine struct {
	contextLines int
}

// NewEngine creates a new diff engine with specified context lines
func NewEngine(contextLines int) *Engine {
	if contextLines < 0 {
		contextLines = 0
	}
	return &Engine{
		contextLines: contextLines,
	}
}

// Diff generates a line-by-line diff between two contents
func (e *Engine) Diff(oldContent, newContent []byte) *Result {
	script := editScript(splitLines(oldContent), splitLines(newContent))

	result := &Result{Hunks: e.group(script)}
	for _, l := range script {
		switch l.Type {
		case Addition:
			result.Stats.Additions++
		case Deletion:
			result.Stats.Deletions++
		}
	}
	result.Stats.Changes = result.Stats.Additions + result.Stats.Deletions
	return result
}

// Empty reports whether the two inputs were identical.
func (r *Result) Empty() bool {
	return r.Stats.Changes == 0
}

func splitLines(content []byte) []string {
	if len(content) == 0 {
		return nil
	}
	return strings.Split(string(bytes.TrimSuffix(content, []byte{'\n'})), "\n")
}

// editScript walks a longest-common-subsequence table from the front and
// emits every line of both inputs exactly once.
func editScript(oldLines, newLines []string) []Line {
	n, m := len(oldLines), len(newLines)

	// lcs[i][j] is the LCS length of oldLines[i:] and newLines[j:].
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else {
				lcs[i][j] = max(lcs[i+1][j], lcs[i][j+1])
			}
		}
	}

	script := make([]Line, 0, n+m)
	i, j := 0, 0
	for i < n || j < m {
		switch {
		case i < n && j < m && oldLines[i] == newLines[j]:
			script = append(script, Line{Type: Context, Content: oldLines[i], OldNum: i + 1, NewNum: j + 1})
			i++
			j++
		case j == m || (i < n && lcs[i+1][j] >= lcs[i][j+1]):
			script = append(script, Line{Type: Deletion, Content: oldLines[i], OldNum: i + 1})
			i++
		default:
			script = append(script, Line{Type: Addition, Content: newLines[j], NewNum: j + 1})
			j++
		}
	}
	return script
}

// group cuts the edit script into hunks, keeping contextLines of unchanged
// lines around each change and merging hunks whose context overlaps.
func (e *Engine) group(script []Line) []Hunk {
	var hunks []Hunk
	start, end := -1, -1
	flush := func() {
		if start >= 0 {
			hunks = append(hunks, newHunk(script, start, end))
		}
	}

	for k, l := range script {
		if l.Type == Context {
			continue
		}
		lo := max(0, k-e.contextLines)
		hi := min(len(script), k+e.contextLines+1)
		if start >= 0 && lo <= end {
			end = max(end, hi)
			continue
		}
		flush()
		start, end = lo, hi
	}
	flush()
	return hunks
}

func newHunk(script []Line, start, end int) Hunk {
	h := Hunk{Lines: append([]Line(nil), script[start:end]...)}

	// Line numbers before the hunk start.
	oldBefore, newBefore := 0, 0
	for _, l := range script[:start] {
		if l.Type != Addition {
			oldBefore++
		}
		if l.Type != Deletion {
			newBefore++
		}
	}
	for _, l := range h.Lines {
		if l.Type != Addition {
			h.OldLines++
		}
		if l.Type != Deletion {
			h.NewLines++
		}
	}

	h.OldStart, h.NewStart = oldBefore, newBefore
	if h.OldLines > 0 {
		h.OldStart++
	}
	if h.NewLines > 0 {
		h.NewStart++
	}
	return h
}

// Format returns the diff in unified format
func (r *Result) Format() string {
	var buf bytes.Buffer

	for _, hunk := range r.Hunks {
		fmt.Fprintf(&buf, "@@ -%d,%d +%d,%d @@\n",
			hunk.OldStart, hunk.OldLines,
			hunk.NewStart, hunk.NewLines)

		for _, line := range hunk.Lines {
			switch line.Type {
			case Addition:
				buf.WriteByte('+')
			case Deletion:
				buf.WriteByte('-')
			case Context:
				buf.WriteByte(' ')
			}
			buf.WriteString(line.Content)
			buf.WriteByte('\n')
		}
	}

	return buf.String()
}
