package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// Patterns are applied in order; UUIDs go before phone numbers so the loose
// phone pattern never eats UUID segments, and SSNs before phones for the
// same reason.
var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	ssnRE   = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
	// date_of_birth and license_number may appear in lookup query strings.
	sensitiveParamRE = regexp.MustCompile(`(?i)\b(date_of_birth|dob|license_number|ssn)=[^&]*`)
)

// redactor scrubs PII from log fields and masks secret-bearing headers.
type redactor struct {
	masked map[string]struct{}
}

func newRedactor(extra []string) redactor {
	m := map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
		"x-api-key":     {},
	}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			m[h] = struct{}{}
		}
	}
	return redactor{masked: m}
}

func (redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	s = sensitiveParamRE.ReplaceAllString(s, "$1=[REDACTED]")
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	s = ssnRE.ReplaceAllString(s, "[REDACTED:ssn]")
	s = phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
	return s
}

// headers flattens h, masking secret headers and passing the rest through
// scrub.
func (r redactor) headers(h http.Header, scrub func(string) string) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = scrub(strings.Join(vv, ", "))
	}
	return out
}
