package reconstruct

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakflo/policystore/internal/diffcodec"
	"github.com/stakflo/policystore/internal/model"
)

func checkpointVersion(version, html string) model.PolicyVersion {
	h := html
	return model.PolicyVersion{
		ID:                 uuid.New(),
		Version:            version,
		CheckpointTemplate: &h,
		CreatedAt:          time.Now(),
	}
}

func deltaVersion(version string, delta diffcodec.Delta) model.PolicyVersion {
	raw, err := json.Marshal(delta)
	if err != nil {
		panic(err)
	}
	return model.PolicyVersion{
		ID:        uuid.New(),
		Version:   version,
		DiffData:  raw,
		CreatedAt: time.Now(),
	}
}

func TestReplayFromCheckpointOnly(t *testing.T) {
	versions := []model.PolicyVersion{
		checkpointVersion("1.0", "<p>hello</p>"),
	}
	html, err := replay(versions, "1.0")
	require.NoError(t, err)
	assert.Equal(t, "<p>hello</p>", html)
}

func TestReplayAppliesIntermediateDeltas(t *testing.T) {
	v1 := "<p>hello</p>"
	v2 := "<p>hello</p>\n<p>world</p>"
	v3 := "<p>goodbye</p>\n<p>world</p>"

	versions := []model.PolicyVersion{
		checkpointVersion("1.0", v1),
		deltaVersion("1.1", diffcodec.Compute(v1, v2)),
		deltaVersion("1.2", diffcodec.Compute(v2, v3)),
	}

	html, err := replay(versions, "1.2")
	require.NoError(t, err)
	assert.Equal(t, v3, html)

	html, err = replay(versions, "1.1")
	require.NoError(t, err)
	assert.Equal(t, v2, html)
}

func TestReplayUsesNearestPrecedingCheckpoint(t *testing.T) {
	v1 := "line-a"
	v11 := "line-k" // a later checkpoint, e.g. at cadence position 11
	v12 := "line-k\nline-l"

	versions := []model.PolicyVersion{
		checkpointVersion("1.0", v1),
		checkpointVersion("2.0", v11),
		deltaVersion("2.1", diffcodec.Compute(v11, v12)),
	}

	html, err := replay(versions, "2.1")
	require.NoError(t, err)
	assert.Equal(t, v12, html)
}

func TestReplayUnknownVersionErrors(t *testing.T) {
	versions := []model.PolicyVersion{checkpointVersion("1.0", "x")}
	_, err := replay(versions, "9.9")
	require.Error(t, err)
}

func TestReplayNoLeadingCheckpointErrors(t *testing.T) {
	versions := []model.PolicyVersion{
		deltaVersion("1.1", diffcodec.Delta{}),
	}
	_, err := replay(versions, "1.1")
	require.Error(t, err)
}
