// Package vers classifies and reformats npm-style version range strings.
package vers

import (
	"strings"

	"golang.org/x/mod/semver"
)

// Class is the result of classifying a proposed version string.
type Class int

const (
	// Valid means the string is an applicable version or range.
	Valid Class = iota
	// Unknown means the string carries no usable version (absent, or a
	// placeholder the analysis service emits when it cannot resolve one).
	Unknown
	// RemovalSentinel means the string instructs removal of the package
	// rather than a version change.
	RemovalSentinel
)

// String returns the class name for diagnostics.
func (c Class) String() string {
	switch c {
	case Valid:
		return "valid"
	case Unknown:
		return "unknown"
	case RemovalSentinel:
		return "removal-sentinel"
	default:
		return "invalid"
	}
}

// unknownMarkers are placeholder values the service uses for entries it
// could not resolve. Matched case-insensitively, by substring.
var unknownMarkers = []string{
	"unknown",
	"not available",
	"pending",
	"manual review required",
}

// Classify decides whether a proposed version string is applicable,
// a removal instruction, or unusable.
func Classify(spec string) Class {
	trimmed := strings.TrimSpace(spec)
	if trimmed == "" {
		return Unknown
	}

	lower := strings.ToLower(trimmed)

	if lower == "remove" || lower == "remove or replace" || trimmed == "REMOVE" {
		return RemovalSentinel
	}

	for _, marker := range unknownMarkers {
		if strings.Contains(lower, marker) {
			return Unknown
		}
	}

	if strings.HasPrefix(trimmed, "*") || strings.HasPrefix(lower, "latest") {
		return Valid
	}

	c := trimmed[0]
	if c >= '0' && c <= '9' {
		return Valid
	}
	if strings.ContainsRune("^~>=<", rune(c)) {
		return Valid
	}

	return Unknown
}

// Format normalizes a valid version string for writing into a manifest.
// Strings that already carry a range operator, a space-separated range,
// or an || combinator are returned unchanged; a bare version gains the
// default caret (compatible-with) prefix.
func Format(spec string) string {
	if spec == "" {
		return spec
	}
	if strings.ContainsRune("^~>=<", rune(spec[0])) {
		return spec
	}
	if strings.Contains(spec, " ") || strings.Contains(spec, "||") {
		return spec
	}
	return "^" + spec
}

// Compare orders two version strings after stripping any range-operator
// prefix, for labeling a change as an upgrade or downgrade in plan output.
// It returns semver.Compare semantics, or 0 when either side does not
// parse as a semantic version. Never used for matching manifest text.
func Compare(a, b string) int {
	ca := canonical(a)
	cb := canonical(b)
	if !semver.IsValid(ca) || !semver.IsValid(cb) {
		return 0
	}
	return semver.Compare(ca, cb)
}

// canonical strips range operators and adds the "v" prefix x/mod/semver
// expects.
func canonical(spec string) string {
	s := strings.TrimSpace(spec)
	s = strings.TrimLeft(s, "^~><= ")
	if s == "" {
		return s
	}
	return "v" + s
}
