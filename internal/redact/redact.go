// Package redact strips credentials from strings before they are logged or
// printed. Database URLs are the main source: a postgres:// URL carries its
// password in the user info and driver errors tend to echo it back.
package redact

import (
	"regexp"
)

// Placeholders substituted for redacted fragments.
const (
	RedactedCredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	RedactedKeyPlaceholder        = "[REDACTED_KEY]"
)

var (
	// scheme://user:password@ keeps the scheme and drops the user info.
	urlUserInfoRegex = regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://)[^/@\s]+@`)

	// password=secret in DSNs and query strings.
	passwordRegex = regexp.MustCompile(`(?i)\b(password|passwd|pwd)=[^&\s'"]+`)

	// sslkey=, sslpassword= and friends.
	keyParamRegex = regexp.MustCompile(`(?i)\b(sslkey|sslpassword|api[_-]?key|token|secret)=[^&\s'"]+`)
)

// String redacts credentials from input.
func String(input string) string {
	if input == "" {
		return input
	}
	result := urlUserInfoRegex.ReplaceAllString(input, "${1}"+RedactedCredentialPlaceholder+"@")
	result = passwordRegex.ReplaceAllString(result, "${1}="+RedactedCredentialPlaceholder)
	result = keyParamRegex.ReplaceAllString(result, "${1}="+RedactedKeyPlaceholder)
	return result
}

// Error redacts credentials from an error's Error() output.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
