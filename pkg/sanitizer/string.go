package sanitizer

import (
	"strings"
	"unicode"
)

type Strategy func(string) string

type Pipeline []Strategy

func (p Pipeline) Apply(s string) string {
	for _, fn := range p {
		s = fn(s)
	}
	return s
}

// TrimAndNormalize trims s and collapses internal whitespace runs to one space.
func TrimAndNormalize(s string) string {
	s = strings.TrimSpace(s)

	if s == "" {
		return ""
	}

	var result strings.Builder
	var lastWasSpace bool

	for _, r := range s {
		if unicode.IsSpace(r) {
			if !lastWasSpace {
				result.WriteRune(' ')
				lastWasSpace = true
			}
		} else {
			result.WriteRune(r)
			lastWasSpace = false
		}
	}

	return result.String()
}

func removeSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// SanitizeVehicleName is used for vehicle and customer names.
func SanitizeVehicleName(input string) string {
	return TrimAndNormalize(input)
}

// SanitizePincode strips whitespace from a postal code ("560 001" -> "560001").
func SanitizePincode(input string) string {
	return Pipeline{strings.TrimSpace, removeSpaces}.Apply(input)
}

func SanitizeID(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}
