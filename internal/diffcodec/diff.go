// Package diffcodec computes and applies line-level diffs between two
// HTML strings, serialized to a stable JSON shape. It is deliberately
// dependency-free: the matching algorithm and its JSON encoding are the
// whole of the package's job, and nothing in the example corpus offers a
// closer-fitting third-party line-diff primitive than the standard
// library's string/slice handling plus encoding/json (see DESIGN.md).
package diffcodec

import (
	"encoding/json"
	"strings"
)

// Op names the kind of change a Change entry represents.
type Op string

const (
	OpReplace Op = "replace"
	OpDelete  Op = "delete"
	OpInsert  Op = "insert"
)

// Span is a half-open line range [Start, End) plus the lines it covers.
type Span struct {
	Start int      `json:"start"`
	End   int      `json:"end"`
	Lines []string `json:"lines"`
}

// Change is one non-equal span between the old and new line sequences.
type Change struct {
	Op  Op   `json:"op"`
	Old Span `json:"old"`
	New Span `json:"new"`
}

// Delta is the full serializable diff between two HTML documents.
type Delta struct {
	Changes      []Change `json:"changes"`
	OldLineCount int      `json:"old_line_count"`
	NewLineCount int      `json:"new_line_count"`
	OldLength    int      `json:"old_length"`
	NewLength    int      `json:"new_length"`
}

// splitLines normalizes CRLF/CR to LF and splits on LF, matching the
// source's DiffProcessor.split_html_lines.
func splitLines(html string) []string {
	if html == "" {
		return []string{}
	}
	normalized := strings.ReplaceAll(html, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}

// Compute produces the Delta that transforms old into new. Only non-equal
// spans are emitted; equal spans are implicit and reconstructed by
// Apply's unchanged-span copying.
func Compute(old, new string) Delta {
	oldLines := splitLines(old)
	newLines := splitLines(new)

	changes := make([]Change, 0)
	for _, op := range diffOpcodes(oldLines, newLines) {
		if op.tag == tagEqual {
			continue
		}
		changes = append(changes, Change{
			Op: op.tag.asOp(),
			Old: Span{
				Start: op.i1,
				End:   op.i2,
				Lines: append([]string(nil), oldLines[op.i1:op.i2]...),
			},
			New: Span{
				Start: op.j1,
				End:   op.j2,
				Lines: append([]string(nil), newLines[op.j1:op.j2]...),
			},
		})
	}

	return Delta{
		Changes:      changes,
		OldLineCount: len(oldLines),
		NewLineCount: len(newLines),
		OldLength:    len(old),
		NewLength:    len(new),
	}
}

// Apply replays delta against base to reconstruct the target string.
// It never panics or returns an error, and logs nothing itself (callers
// decide whether to log), so history stays readable even around a bad
// row. base is returned unchanged when the delta cannot be interpreted
// at all (nil, or a string that is empty or not valid JSON), when any
// change carries an unknown op, and when any change's old span is out of
// range for base (start < 0, end < start, or end past the last line).
// Change entries that are not JSON objects are skipped, and a change
// with missing fields is applied with defaults (op "replace", a zero
// span, no lines) rather than rejected.
func Apply(base string, delta any) string {
	d, ok := normalizeDelta(delta)
	if !ok {
		return base
	}

	oldLines := splitLines(base)
	total := len(oldLines)

	for _, change := range d.Changes {
		switch change.Op {
		case OpReplace, OpDelete, OpInsert:
		default:
			return base
		}
		if change.Old.Start < 0 || change.Old.End < change.Old.Start || change.Old.End > total {
			return base
		}
	}

	result := make([]string, 0, total)
	cursor := 0

	for _, change := range d.Changes {
		i1 := clamp(change.Old.Start, 0, total)
		i2 := clamp(change.Old.End, 0, total)

		if cursor < i1 {
			result = append(result, oldLines[cursor:i1]...)
		}

		switch change.Op {
		case OpReplace, OpInsert:
			result = append(result, change.New.Lines...)
		case OpDelete:
			// no-op: lines are dropped
		default:
			// unknown op: ignore and keep scanning forward
		}

		if i2 > cursor {
			cursor = i2
		}
	}

	if cursor < total {
		result = append(result, oldLines[cursor:]...)
	}

	return strings.Join(result, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// normalizeDelta accepts a Delta, a map[string]any (as decoded from a JSON
// column), or a JSON-encoded string, and returns a Delta with defensive
// defaults for any missing/malformed fields. ok is false only when the
// input cannot be interpreted as a delta at all, in which case callers
// must return base unchanged.
func normalizeDelta(delta any) (Delta, bool) {
	switch v := delta.(type) {
	case nil:
		return Delta{}, false
	case Delta:
		return v, true
	case *Delta:
		if v == nil {
			return Delta{}, false
		}
		return *v, true
	case string:
		if strings.TrimSpace(v) == "" {
			return Delta{}, false
		}
		var raw map[string]any
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return Delta{}, false
		}
		return deltaFromRaw(raw), true
	case []byte:
		return normalizeDelta(string(v))
	case map[string]any:
		return deltaFromRaw(v), true
	default:
		// Best-effort: round-trip through JSON for any other shape
		// (e.g. json.RawMessage or a struct with compatible fields).
		raw, err := json.Marshal(v)
		if err != nil {
			return Delta{}, false
		}
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return Delta{}, false
		}
		return deltaFromRaw(m), true
	}
}

// deltaFromRaw tolerantly extracts a Delta from a decoded JSON object,
// skipping any change entry that isn't itself a well-formed object rather
// than failing the whole delta.
func deltaFromRaw(raw map[string]any) Delta {
	changesRaw, _ := raw["changes"].([]any)
	changes := make([]Change, 0, len(changesRaw))

	for _, entry := range changesRaw {
		m, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		changes = append(changes, Change{
			Op:  Op(asString(m["op"], string(OpReplace))),
			Old: spanFromRaw(m["old"]),
			New: spanFromRaw(m["new"]),
		})
	}

	return Delta{
		Changes:      changes,
		OldLineCount: int(asNumber(raw["old_line_count"])),
		NewLineCount: int(asNumber(raw["new_line_count"])),
		OldLength:    int(asNumber(raw["old_length"])),
		NewLength:    int(asNumber(raw["new_length"])),
	}
}

func spanFromRaw(v any) Span {
	m, ok := v.(map[string]any)
	if !ok {
		return Span{}
	}
	lines := []string{}
	if rawLines, ok := m["lines"].([]any); ok {
		for _, l := range rawLines {
			if s, ok := l.(string); ok {
				lines = append(lines, s)
			}
		}
	}
	return Span{
		Start: int(asNumber(m["start"])),
		End:   int(asNumber(m["end"])),
		Lines: lines,
	}
}

func asNumber(v any) float64 {
	n, _ := v.(float64)
	return n
}

func asString(v any, fallback string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fallback
}
