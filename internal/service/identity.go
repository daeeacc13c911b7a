package service

import (
	"path/filepath"
	"regexp"
	"strings"
)

// RollNumberUnknown is the sentinel roll number when no structure is found
// in the file name.
const RollNumberUnknown = "Unknown"

// StudentIdentity is the best-effort identity derived from a file name.
type StudentIdentity struct {
	Name       string
	RollNumber string
}

var (
	underscorePattern = regexp.MustCompile(`^([^_]+)_([^_]+)$`)
	hyphenPattern     = regexp.MustCompile(`^([^-]+)-([^-]+)$`)
	trailingNumber    = regexp.MustCompile(`^(.+?)\s+(\d+[a-zA-Z]*)$`)
	digitPattern      = regexp.MustCompile(`\d`)
)

// ResolveStudentIdentity derives a student's display name and roll number
// from an uploaded file name using an ordered heuristic chain; the first
// matching pattern wins and the fallback always succeeds.
func ResolveStudentIdentity(fileName string) StudentIdentity {
	base := strings.TrimSpace(strings.TrimSuffix(fileName, filepath.Ext(fileName)))

	if match := underscorePattern.FindStringSubmatch(base); match != nil {
		return splitNameAndRoll(match[1], match[2])
	}

	if match := hyphenPattern.FindStringSubmatch(base); match != nil {
		return splitNameAndRoll(match[1], match[2])
	}

	if match := trailingNumber.FindStringSubmatch(base); match != nil {
		name := strings.TrimSpace(match[1])
		roll := strings.TrimSpace(match[2])
		if name != "" && roll != "" {
			return StudentIdentity{Name: name, RollNumber: roll}
		}
	}

	return StudentIdentity{Name: base, RollNumber: RollNumberUnknown}
}

// splitNameAndRoll decides which of two tokens is the roll number: the one
// containing digits when exactly one does, otherwise first token is the name.
func splitNameAndRoll(first, second string) StudentIdentity {
	first = strings.TrimSpace(first)
	second = strings.TrimSpace(second)

	firstHasDigit := digitPattern.MatchString(first)
	secondHasDigit := digitPattern.MatchString(second)

	if firstHasDigit && !secondHasDigit {
		return StudentIdentity{Name: second, RollNumber: first}
	}

	return StudentIdentity{Name: first, RollNumber: second}
}
