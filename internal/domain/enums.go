package domain

import (
	"fmt"
	"strings"
)

// Decision is the closed set of screening outcomes.
type Decision string

const (
	DecisionAutoShortlist Decision = "AUTO_SHORTLIST"
	DecisionAskQuestions  Decision = "ASK_QUESTIONS"
	DecisionAutoReject    Decision = "AUTO_REJECT"
)

// Valid reports whether d is one of the known decisions.
func (d Decision) Valid() bool {
	switch d {
	case DecisionAutoShortlist, DecisionAskQuestions, DecisionAutoReject:
		return true
	}
	return false
}

// ConfidenceLevel buckets a confidence value into tiers.
type ConfidenceLevel string

const (
	ConfidenceVeryHigh ConfidenceLevel = "VERY_HIGH"
	ConfidenceHigh     ConfidenceLevel = "HIGH"
	ConfidenceMedium   ConfidenceLevel = "MEDIUM"
	ConfidenceLow      ConfidenceLevel = "LOW"
	ConfidenceVeryLow  ConfidenceLevel = "VERY_LOW"
)

// Tier lower bounds, inclusive.
const (
	ThresholdVeryHigh = 0.85
	ThresholdHigh     = 0.70
	ThresholdMedium   = 0.50
	ThresholdLow      = 0.30
)

// LevelFor maps a confidence in [0,1] to its tier. No rounding is applied.
func LevelFor(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= ThresholdVeryHigh:
		return ConfidenceVeryHigh
	case confidence >= ThresholdHigh:
		return ConfidenceHigh
	case confidence >= ThresholdMedium:
		return ConfidenceMedium
	case confidence >= ThresholdLow:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// EducationLevel is an ordinal degree rank; higher is more advanced.
type EducationLevel int

const (
	EducationNone EducationLevel = iota
	EducationDiploma
	EducationAssociate
	EducationBachelor
	EducationMaster
	EducationDoctorate
)

var educationNames = [...]string{"none", "diploma", "associate", "bachelor", "master", "doctorate"}

func (e EducationLevel) String() string {
	if e < EducationNone || int(e) >= len(educationNames) {
		return fmt.Sprintf("EducationLevel(%d)", int(e))
	}
	return educationNames[e]
}

// MarshalText encodes the level by name.
func (e EducationLevel) MarshalText() ([]byte, error) {
	if e < EducationNone || int(e) >= len(educationNames) {
		return nil, fmt.Errorf("%w: education level %d", ErrInvalidArgument, int(e))
	}
	return []byte(educationNames[e]), nil
}

// UnmarshalText accepts a level name; the empty string means none.
func (e *EducationLevel) UnmarshalText(b []byte) error {
	lvl, ok := ParseEducationLevel(string(b))
	if !ok {
		return fmt.Errorf("%w: unknown education level %q", ErrInvalidArgument, string(b))
	}
	*e = lvl
	return nil
}

// ParseEducationLevel resolves a level name.
func ParseEducationLevel(s string) (EducationLevel, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return EducationNone, true
	}
	for i, n := range educationNames {
		if n == s {
			return EducationLevel(i), true
		}
	}
	return EducationNone, false
}
