// Package version implements the semver 2.0 MAJOR.MINOR.PATCH triple the
// bump engine operates on. Pre-release identifiers and build metadata are
// explicitly unsupported: parsing a tag carrying either fails.
package version

import (
	"fmt"
	"strings"

	hcversion "github.com/hashicorp/go-version"
)

// BumpKind is one of {Patch, Minor, Major}, totally ordered Patch < Minor < Major.
// The zero value, None, means "no bump" and is never a valid argument to Bump.
type BumpKind int

const (
	None BumpKind = iota
	Patch
	Minor
	Major
)

func (k BumpKind) String() string {
	switch k {
	case Major:
		return "major"
	case Minor:
		return "minor"
	case Patch:
		return "patch"
	default:
		return "none"
	}
}

// Max returns the stronger of two bump kinds.
func Max(a, b BumpKind) BumpKind {
	if a > b {
		return a
	}
	return b
}

// ParseBumpKind maps a config string to a BumpKind.
func ParseBumpKind(s string) (BumpKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	case "patch":
		return Patch, nil
	default:
		return None, fmt.Errorf("version: unknown bump kind %q", s)
	}
}

// Version is an immutable MAJOR.MINOR.PATCH triple.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Parse parses a version string, tolerating a leading "v". Parsing fails if
// any component is missing, negative, non-numeric, or the string carries a
// pre-release suffix (-foo) or build metadata (+foo) — those are
// unsupported by design.
func Parse(s string) (Version, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "v")
	if trimmed == "" {
		return Version{}, fmt.Errorf("version: empty version string")
	}

	parsed, err := hcversion.NewSemver(trimmed)
	if err != nil {
		return Version{}, fmt.Errorf("version: %q is not a valid semver: %w", s, err)
	}

	if parsed.Prerelease() != "" {
		return Version{}, fmt.Errorf("version: %q carries an unsupported pre-release suffix", s)
	}
	if parsed.Metadata() != "" {
		return Version{}, fmt.Errorf("version: %q carries unsupported build metadata", s)
	}

	// go-version pads a short core ("1.2") with zeros, so count the
	// components in the input itself.
	segments := parsed.Segments()
	if strings.Count(trimmed, ".") < 2 {
		return Version{}, fmt.Errorf("version: %q is missing a MAJOR.MINOR.PATCH component", s)
	}

	for _, seg := range segments[:3] {
		if seg < 0 {
			return Version{}, fmt.Errorf("version: %q has a negative component", s)
		}
	}

	return Version{Major: segments[0], Minor: segments[1], Patch: segments[2]}, nil
}

// String renders the version without a "v" prefix, e.g. "1.2.3".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Bump produces the next version for the given kind. Major resets minor and
// patch to zero; Minor resets patch to zero; Patch increments patch alone.
func (v Version) Bump(kind BumpKind) Version {
	switch kind {
	case Major:
		return Version{Major: v.Major + 1}
	case Minor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	case Patch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	default:
		return v
	}
}

// Compare returns -1, 0, or 1 as v is less than, equal to, or greater than other.
func (v Version) Compare(other Version) int {
	switch {
	case v.Major != other.Major:
		return sign(v.Major - other.Major)
	case v.Minor != other.Minor:
		return sign(v.Minor - other.Minor)
	default:
		return sign(v.Patch - other.Patch)
	}
}

// GreaterThan reports whether v is strictly greater than other.
func (v Version) GreaterThan(other Version) bool { return v.Compare(other) > 0 }

// Equal reports whether v and other denote the same version.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

// Collection sorts Versions in ascending order. Mirrors the
// sort.Reverse(version.Collection(...)) idiom the teacher uses to rank
// discovered tags by precedence.
type Collection []Version

func (c Collection) Len() int           { return len(c) }
func (c Collection) Less(i, j int) bool { return c[i].Compare(c[j]) < 0 }
func (c Collection) Swap(i, j int)      { c[i], c[j] = c[j], c[i] }
