// Package casing rewrites a replacement's capitalization to mirror the
// capitalization pattern of the trigger as the user actually typed it.
package casing

import (
	"strings"
	"unicode"
)

// Pattern classifies the capitalization of a typed trigger. Classification
// looks at letters only, so trigger prefixes like ';' or '/' don't mask the
// user's intent.
type Pattern int

const (
	// PatternMixed is anything that isn't clearly lower, upper, or title;
	// the replacement is left as authored. Triggers without letters
	// classify as mixed.
	PatternMixed Pattern = iota
	// PatternLower means every letter is lowercase.
	PatternLower
	// PatternUpper means every letter is uppercase.
	PatternUpper
	// PatternTitle means the first letter is uppercase and the rest are
	// lowercase.
	PatternTitle
)

// Classify inspects the literal trigger text as typed.
func Classify(trigger string) Pattern {
	var letters []rune
	for _, r := range trigger {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return PatternMixed
	}

	allUpper, allLower, restLower := true, true, true
	for i, r := range letters {
		if unicode.IsUpper(r) {
			allLower = false
			if i > 0 {
				restLower = false
			}
		} else {
			allUpper = false
		}
	}

	switch {
	case allLower:
		return PatternLower
	case allUpper:
		return PatternUpper
	case unicode.IsUpper(letters[0]) && restLower:
		return PatternTitle
	default:
		return PatternMixed
	}
}

// Propagate applies the trigger's capitalization pattern to the replacement.
// Only PatternUpper and PatternTitle transform the text; lower and mixed
// triggers keep the replacement exactly as authored.
func Propagate(typedTrigger, replacement string) string {
	switch Classify(typedTrigger) {
	case PatternUpper:
		return strings.ToUpper(replacement)
	case PatternTitle:
		return upperFirst(replacement)
	default:
		return replacement
	}
}

func upperFirst(s string) string {
	for i, r := range s {
		return string(unicode.ToUpper(r)) + s[i+len(string(r)):]
	}
	return s
}
