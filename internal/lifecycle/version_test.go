package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    parsedVersion
		wantOk  bool
	}{
		{in: "1.0", want: parsedVersion{1, 0}, wantOk: true},
		{in: "2.7", want: parsedVersion{2, 7}, wantOk: true},
		{in: "3", want: parsedVersion{3, 0}, wantOk: true},
		{in: "not-a-version", wantOk: false},
		{in: "", wantOk: false},
	}
	for _, tt := range tests {
		got, ok := parseVersion(tt.in)
		assert.Equal(t, tt.wantOk, ok, "input %q", tt.in)
		if ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestNextVersionCallerProvidedForcesMajorBump(t *testing.T) {
	assert.Equal(t, "2.0", nextVersion("1.1", nil, false))
	assert.Equal(t, "6.0", nextVersion("5.9", &parsedVersion{1, 0}, false))
}

func TestNextVersionNoPredecessorNoCaller(t *testing.T) {
	assert.Equal(t, "1.0", nextVersion("", nil, false))
}

func TestNextVersionMinorBumpWhenNotExpired(t *testing.T) {
	assert.Equal(t, "1.2", nextVersion("", &parsedVersion{1, 1}, false))
}

func TestNextVersionMajorBumpWhenExpired(t *testing.T) {
	assert.Equal(t, "2.0", nextVersion("", &parsedVersion{1, 5}, true))
}

func TestNextVersionCallerProvidedParseFailureDefaultsToFirst(t *testing.T) {
	assert.Equal(t, "1.0", nextVersion("garbage", &parsedVersion{3, 0}, false))
}

func TestCheckpointCadence(t *testing.T) {
	checkpoints := map[int]bool{
		1: true, 2: false, 10: false, 11: true, 12: false,
		20: false, 21: true, 31: true, 30: false, 41: true,
	}
	for position, want := range checkpoints {
		assert.Equal(t, want, checkpointCadence(position), "position %d", position)
	}
}
