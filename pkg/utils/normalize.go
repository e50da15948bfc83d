package utils

import "strings"

// descriptionPunctuation is replaced by spaces in descriptions.
const descriptionPunctuation = "!@#$%^&*()_+=[]{}|:;\"<>,.?/~`"

var brandStripper = strings.NewReplacer("\r", "", "\n", "", "\t", "", " ", "")

// NormalizeBrand removes line breaks, tabs and all spaces.
func NormalizeBrand(raw string) string {
	return brandStripper.Replace(raw)
}

// NormalizeDescription turns control characters and common punctuation into
// spaces, collapses runs of whitespace and trims the result.
func NormalizeDescription(parts ...string) string {
	joined := strings.Join(parts, " ")
	mapped := strings.Map(func(r rune) rune {
		if r == '\r' || r == '\n' || r == '\t' || strings.ContainsRune(descriptionPunctuation, r) {
			return ' '
		}
		return r
	}, joined)
	return strings.Join(strings.Fields(mapped), " ")
}

// NormalizeUPC returns the code when it is all digits of length 8 or 12, else "".
func NormalizeUPC(raw string) string {
	code := strings.TrimSpace(raw)
	if (len(code) == 8 || len(code) == 12) && isDigits(code) {
		return code
	}
	return ""
}

// NormalizeISBN accepts a 13 digit ISBN, or a 10 character ISBN made of nine
// digits and a digit or X check character, returned unchanged. Anything else
// becomes "".
func NormalizeISBN(raw string) string {
	code := strings.TrimSpace(raw)
	switch len(code) {
	case 13:
		if isDigits(code) {
			return code
		}
	case 10:
		check := code[9]
		if isDigits(code[:9]) && (isDigit(check) || check == 'X' || check == 'x') {
			return code
		}
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
