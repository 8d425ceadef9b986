// Package lifecycle orchestrates the create/update/publish operations
// on an OrgPolicy's version history: version-number generation with
// expiry-triggered major bumps, checkpoint placement, atomic commits,
// and approver binding. It is the central controller (C4) tying
// together the store, reconstructor, condition engine, and generator
// gateway.
package lifecycle

import (
	"fmt"
	"strconv"
	"strings"
)

// parsedVersion is a "MAJOR.MINOR" version string decomposed for
// numeric comparison and arithmetic.
type parsedVersion struct {
	Major int
	Minor int
}

func (v parsedVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// parseVersion parses a "MAJOR.MINOR" string, defaulting MINOR to 0 if
// absent. ok is false if major could not be parsed as an integer.
func parseVersion(s string) (parsedVersion, bool) {
	parts := strings.SplitN(s, ".", 2)
	major, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return parsedVersion{}, false
	}
	minor := 0
	if len(parts) == 2 {
		minor, err = strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			minor = 0
		}
	}
	return parsedVersion{Major: major, Minor: minor}, true
}

// nextVersion implements spec.md §4.4.3's version-assignment rule.
//
//   - If the caller supplied an explicit version, the committed version
//     is always "(X+1).0" regardless of what X actually is (an explicit
//     caller-supplied version forces a major bump; kept as observed and
//     spec-documented behavior, not "fixed" — see SPEC_FULL.md).
//   - Else if a predecessor exists: "MAJOR.MINOR+1" normally, or
//     "MAJOR+1.0" if the predecessor is expired.
//   - Else (first version being assigned through Update, with no prior
//     version and no caller-supplied version): "1.0".
//   - On parse failure of any input: "1.0".
func nextVersion(callerProvided string, predecessor *parsedVersion, expired bool) string {
	if callerProvided != "" {
		if pv, ok := parseVersion(callerProvided); ok {
			return parsedVersion{Major: pv.Major + 1, Minor: 0}.String()
		}
		return "1.0"
	}

	if predecessor != nil {
		if expired {
			return parsedVersion{Major: predecessor.Major + 1, Minor: 0}.String()
		}
		return parsedVersion{Major: predecessor.Major, Minor: predecessor.Minor + 1}.String()
	}

	return "1.0"
}

// checkpointCadence reports whether the version at the given 1-based
// position within its policy should be a full-text checkpoint, per
// spec.md §4.3's invariant: position 1, then every position ≡ 1 (mod 10)
// for position ≥ 11.
func checkpointCadence(position int) bool {
	if position == 1 {
		return true
	}
	return position >= 11 && position%10 == 1
}
