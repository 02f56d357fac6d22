package validate

import (
	"regexp"
	"strings"
)

// Empty fails when value is empty according to IsEmpty
func Empty(value any, opts Options) string {
	if IsEmpty(value) {
		return opts.Message()
	}
	return ""
}

var (
	idROCPattern = regexp.MustCompile(`(?i)^[a-z](1|2)\d{8}$`)
	idROCWeights = [10]int{1, 9, 8, 7, 6, 5, 4, 3, 2, 1}

	letterRegexp = regexp.MustCompile(`[a-zA-Z]`)
	digitRegexp  = regexp.MustCompile(`\d`)
)

// IDROC validates a national identity number: one letter, a gender digit
// (1 or 2) and eight more digits, the last being the check digit.
func IDROC(value any, opts Options) string {
	s, ok := value.(string)
	if !ok || !validIDROC(s) {
		return opts.Message()
	}
	return ""
}

func validIDROC(s string) bool {
	if !idROCPattern.MatchString(s) {
		return false
	}

	// Letters map to 10..35 in alphabetical order; both digits are weighted.
	code := int(strings.ToUpper(s[:1])[0]-'A') + 10
	digits := [10]int{code / 10, code % 10}
	for i := 2; i < len(digits); i++ {
		digits[i] = int(s[i-1] - '0')
	}

	sum := 0
	for i, d := range digits {
		sum += d * idROCWeights[i]
	}

	check := int(s[9] - '0')
	r := sum % 10
	if r == check {
		return true
	}
	return 10-r == check
}

// Password requires at least one letter and one digit
func Password(value any, opts Options) string {
	s, ok := value.(string)
	if !ok || !letterRegexp.MatchString(s) || !digitRegexp.MatchString(s) {
		return opts.Message()
	}
	return ""
}
