package intelligence

import (
	"regexp"
	"strings"
	"unicode"
)

// Verdict is a content filter's classification of a piece of text.
type Verdict int

const (
	// Allow lets the text be stored.
	Allow Verdict = iota

	// Sensitive marks credentials, card numbers and one-time codes.
	Sensitive

	// Ephemeral marks chatter that is not worth remembering.
	Ephemeral
)

func (v Verdict) String() string {
	switch v {
	case Sensitive:
		return "sensitive"
	case Ephemeral:
		return "ephemeral"
	default:
		return "allow"
	}
}

// ContentFilter decides whether text may become a memory.
type ContentFilter interface {
	Check(text string) Verdict
}

var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?:sk|pk|rk)[-_][A-Za-z0-9_\-]{16,}`),
	regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`),
	regexp.MustCompile(`\bgh[pousr]_[A-Za-z0-9]{20,}`),
	regexp.MustCompile(`\bAIza[0-9A-Za-z_\-]{35}\b`),
	regexp.MustCompile(`\bxox[abprs]-[A-Za-z0-9\-]{10,}`),
	regexp.MustCompile(`(?i)\bbearer\s+[A-Za-z0-9\-._~+/]{16,}=*`),
	regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`),
	regexp.MustCompile(`(?i)\b(?:api[ _-]?key|secret|access[ _-]?token|auth[ _-]?token)\b\s*(?:is|:|=)\s*\S{8,}`),
	regexp.MustCompile(`(?i)\b(?:password|passwd|pwd|passcode|pin)\b\s*(?:is|:|=)\s*\S+`),
	regexp.MustCompile(`(?i)\b(?:otp|one[- ]time (?:password|code)|verification code|security code|2fa code|login code)\b\D{0,20}\d{4,8}\b`),
}

var cardCandidate = regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)

var ephemeralPhrases = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true, "sup": true,
	"thanks": true, "thank you": true, "thx": true, "ty": true,
	"ok": true, "okay": true, "k": true, "cool": true, "nice": true,
	"got it": true, "sure": true, "yes": true, "no": true, "yep": true, "nope": true,
	"bye": true, "goodbye": true, "see you": true, "lol": true, "haha": true,
	"good morning": true, "good night": true, "good evening": true, "gm": true, "gn": true,
}

var rightNow = regexp.MustCompile(`(?i)\b(?:right now|at the moment|atm|just now)\b`)

// maxStatusWords bounds how long a "right now" status line may be.
const maxStatusWords = 12

// RuleFilter is the default ContentFilter. It flags credentials and
// card numbers as sensitive, and greetings, acknowledgements and short
// present-moment status lines as ephemeral.
type RuleFilter struct{}

// NewRuleFilter returns the default filter.
func NewRuleFilter() *RuleFilter {
	return &RuleFilter{}
}

// Check classifies text. Sensitive wins over ephemeral.
func (f *RuleFilter) Check(text string) Verdict {
	if isSensitive(text) {
		return Sensitive
	}
	if isEphemeral(text) {
		return Ephemeral
	}
	return Allow
}

// EntirelySensitive reports whether every sentence of text is sensitive.
// Empty text is not.
func EntirelySensitive(f ContentFilter, text string) bool {
	segments := splitSegments(text)
	if len(segments) == 0 {
		return false
	}
	for _, s := range segments {
		if f.Check(s) != Sensitive {
			return false
		}
	}
	return true
}

func isSensitive(text string) bool {
	for _, p := range sensitivePatterns {
		if p.MatchString(text) {
			return true
		}
	}
	for _, m := range cardCandidate.FindAllString(text, -1) {
		if luhn(m) {
			return true
		}
	}
	return false
}

func isEphemeral(text string) bool {
	normalized := strings.Join(strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	}), " ")
	if normalized == "" {
		return true
	}
	if ephemeralPhrases[normalized] {
		return true
	}
	return rightNow.MatchString(text) && len(strings.Fields(normalized)) <= maxStatusWords
}

// luhn validates a card number candidate, ignoring spaces and dashes.
func luhn(s string) bool {
	var digits []int
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits = append(digits, int(r-'0'))
		}
	}
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func splitSegments(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '\n' || r == '.' || r == '!' || r == '?' || r == ';'
	})
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
