package diffcodec

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		old, new string
	}{
		{"empty to content", "", "<h1>Policy</h1>"},
		{"append line", "<h1>Policy</h1>", "<h1>Policy</h1>\n<p>Body</p>"},
		{"replace middle", "a\nb\nc\nd", "a\nX\nY\nd"},
		{"delete lines", "a\nb\nc\nd\ne", "a\ne"},
		{"identical", "same\ncontent", "same\ncontent"},
		{"both empty", "", ""},
		{"crlf normalization", "a\r\nb\r\nc", "a\nb\nZ"},
		{"shrink to empty", "only content here", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			delta := Compute(tc.old, tc.new)
			got := Apply(tc.old, delta)
			want := normalizedJoin(tc.new)
			assert.Equal(t, want, got)
		})
	}
}

func normalizedJoin(s string) string {
	lines := splitLines(s)
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func TestApplyIdempotentNormalization(t *testing.T) {
	html := "a\r\nb\r\nc"
	delta := Compute(html, html)
	got := Apply(html, delta)
	assert.Equal(t, normalizedJoin(html), got)
}

func TestApplyMalformedDeltaNeverPanics(t *testing.T) {
	base := "line one\nline two"

	malformed := []any{
		nil,
		"",
		"not json {{{",
		map[string]any{"changes": "not-a-list"},
		map[string]any{"changes": []any{"not-an-object", 42, nil}},
		map[string]any{"changes": []any{map[string]any{"op": "explode"}}},
		map[string]any{"changes": []any{map[string]any{
			"op":  "replace",
			"old": map[string]any{"start": 999, "end": -5},
			"new": map[string]any{"lines": []any{"x"}},
		}}},
	}

	for _, m := range malformed {
		assert.NotPanics(t, func() {
			got := Apply(base, m)
			assert.IsType(t, "", got)
		})
	}
}

func TestApplyEmptyBaseDeleteIsNoop(t *testing.T) {
	delta := Delta{Changes: []Change{{
		Op:  OpDelete,
		Old: Span{Start: 0, End: 0},
		New: Span{Start: 0, End: 0},
	}}}
	got := Apply("", delta)
	assert.Equal(t, "", got)
}

func TestApplyToleratesStringDelta(t *testing.T) {
	delta := Compute("a\nb", "a\nc")
	raw, err := json.Marshal(delta)
	require.NoError(t, err)

	got := Apply("a\nb", string(raw))
	assert.Equal(t, "a\nc", got)
}

func TestApplyToleratesDecodedJSONMap(t *testing.T) {
	delta := Compute("a\nb\nc", "a\nX\nc")
	raw, err := json.Marshal(delta)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))

	got := Apply("a\nb\nc", decoded)
	assert.Equal(t, "a\nX\nc", got)
}

func TestComputeOnlyEmitsNonEqualSpans(t *testing.T) {
	delta := Compute("a\nb\nc\nd", "a\nb\nX\nd")
	require.Len(t, delta.Changes, 1)
	assert.Equal(t, OpReplace, delta.Changes[0].Op)
	assert.Equal(t, 2, delta.Changes[0].Old.Start)
	assert.Equal(t, 3, delta.Changes[0].Old.End)
}

func TestComputeLineAndByteCounts(t *testing.T) {
	delta := Compute("a\nb", "a\nb\nc")
	assert.Equal(t, 2, delta.OldLineCount)
	assert.Equal(t, 3, delta.NewLineCount)
	assert.Equal(t, len("a\nb"), delta.OldLength)
	assert.Equal(t, len("a\nb\nc"), delta.NewLength)
}
