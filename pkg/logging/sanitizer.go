package logging

import "regexp"

// RedactedText replaces sensitive values in log output.
const RedactedText = "[REDACTED]"

var (
	// password=x, pwd=x, pass=x up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// api_key=x / apikey=x / token=x with long opaque values
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|token)=[A-Za-z0-9-_]{16,}`)

	// Authorization bearer values
	bearerPattern = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9-_.]+`)

	// user:pass@host inside connection URLs
	userInfoPattern = regexp.MustCompile(`://[^:/@\s]+:[^@\s]+@`)
)

// Sanitize scrubs credential material from a string before it is logged.
// Adapter errors routinely embed connection strings and auth headers; every
// error message recorded on a datasource or written to the log goes through
// here first.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	out := passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	out = apiKeyPattern.ReplaceAllString(out, "${1}="+RedactedText)
	out = bearerPattern.ReplaceAllString(out, "Bearer "+RedactedText)
	out = userInfoPattern.ReplaceAllString(out, "://"+RedactedText+"@")
	return out
}

// SanitizeError is Sanitize for error values; nil yields "".
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return Sanitize(err.Error())
}
