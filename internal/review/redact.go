package review

import "regexp"

// Redaction runs before any content leaves the process. Order matters:
// JWTs first so their segments are not half-eaten by the long-token rule,
// addresses before the generic token sweep.
//
// Uncompressed IPv6 requires at least four groups so hh:mm:ss times in
// log messages survive; compressed (::) forms must lead with a hex group
// so C++-style namespace separators survive.
var (
	jwtRe       = regexp.MustCompile(`\beyJ[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,}\.[a-zA-Z0-9_-]{10,}\b`)
	emailRe     = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)
	ipv4Re      = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)
	ipv6Re      = regexp.MustCompile(`\b(?:[0-9a-fA-F]{1,4}:){3,7}[0-9a-fA-F]{1,4}\b|\b[0-9a-fA-F]{1,4}(?::[0-9a-fA-F]{1,4})*::(?:[0-9a-fA-F]{1,4}(?::[0-9a-fA-F]{1,4})*)?`)
	longTokenRe = regexp.MustCompile(`\b[a-zA-Z0-9_\-]{32,}\b`)
)

// Redact replaces emails, IP addresses, JWTs and long opaque tokens with
// fixed placeholder markers.
func Redact(text string) string {
	text = jwtRe.ReplaceAllString(text, "<REDACTED_JWT>")
	text = emailRe.ReplaceAllString(text, "<REDACTED_EMAIL>")
	text = ipv4Re.ReplaceAllString(text, "<REDACTED_IP>")
	text = ipv6Re.ReplaceAllString(text, "<REDACTED_IP>")
	text = longTokenRe.ReplaceAllString(text, "<REDACTED_TOKEN>")
	return text
}
