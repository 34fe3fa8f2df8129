package utils

import "regexp"

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_$]*$`)

func Contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// IsValidIdentifier reports whether name can be used as an unquoted SQL
// identifier: a letter or underscore followed by letters, digits, underscores
// or dollar signs, at most 128 characters.
func IsValidIdentifier(name string) bool {
	if name == "" || len(name) > 128 {
		return false
	}
	return identifierPattern.MatchString(name)
}
