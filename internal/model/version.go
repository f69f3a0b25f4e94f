package model

import (
	"encoding/json"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// Version tokens in free text. The dotted form is matched first so a
// digit inside the mod's name does not shadow the real version: in
// "MechJeb2-1.2.zip" the token is "1.2", not the "2" of "MechJeb2".
var (
	versionDotted = regexp.MustCompile(`\d+(?:\.\d+)+`)
	versionBare   = regexp.MustCompile(`\d+`)
)

// Version is a comparable mod version parsed from free text.
//
// Raw preserves the text the version was parsed from; comparisons use a
// canonical semver form. A nil *Version means "unknown" and cannot be
// ordered against anything.
type Version struct {
	Raw       string
	canonical string
}

// ParseVersion extracts a version from free text such as an explicit
// version field or an asset file name. It returns nil if the text
// contains no version token; that is not an error, just an unknown
// version.
func ParseVersion(text string) *Version {
	token := versionDotted.FindString(text)
	if token == "" {
		token = versionBare.FindString(text)
	}
	if token == "" {
		return nil
	}

	// Canonicalize to at most major.minor.patch for semver comparison.
	parts := strings.Split(token, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	canonical := "v" + strings.Join(parts, ".")
	if !semver.IsValid(canonical) {
		return nil
	}
	return &Version{Raw: token, canonical: semver.Canonical(canonical)}
}

// Compare orders v against other: -1 if older, 0 if equal, +1 if newer.
func (v *Version) Compare(other *Version) int {
	return semver.Compare(v.canonical, other.canonical)
}

func (v *Version) String() string {
	if v == nil {
		return ""
	}
	return v.Raw
}

// MarshalJSON writes the version as its raw text.
func (v *Version) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Raw)
}

// UnmarshalJSON re-parses a raw version string.
func (v *Version) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if parsed := ParseVersion(raw); parsed != nil {
		*v = *parsed
	}
	return nil
}

// Ordering is the result of comparing a local version against a remote
// one during reconciliation.
type Ordering int

const (
	// OrderingUnknown means one side has no parseable version, so the
	// remote copy may or may not be newer.
	OrderingUnknown Ordering = iota
	OrderingOlder
	OrderingEqual
	OrderingNewer
)

func (o Ordering) String() string {
	switch o {
	case OrderingOlder:
		return "older"
	case OrderingEqual:
		return "equal"
	case OrderingNewer:
		return "newer"
	default:
		return "unknown"
	}
}

// CompareVersions orders a remote version against the local one.
// OrderingNewer means the remote copy is newer than local. If either
// side is nil, or holds no canonical form (a stored record whose text
// no longer parses), the ordering cannot be determined and
// OrderingUnknown is returned; callers must not treat that as silently
// up to date.
func CompareVersions(local, remote *Version) Ordering {
	if local == nil || remote == nil || local.canonical == "" || remote.canonical == "" {
		return OrderingUnknown
	}
	switch remote.Compare(local) {
	case -1:
		return OrderingOlder
	case 1:
		return OrderingNewer
	default:
		return OrderingEqual
	}
}
