package extraction

import (
	"regexp"
	"strings"
)

// Field names an event attribute that has an extractor
type Field string

const (
	FieldDate        Field = "date"
	FieldTime        Field = "time"
	FieldVenue       Field = "venue"
	FieldTicketPrice Field = "ticketPrice"
	FieldTicketLink  Field = "ticketLink"
	FieldDescription Field = "description"
)

// Fields lists every extractable field in output order
var Fields = []Field{FieldDate, FieldTime, FieldVenue, FieldTicketPrice, FieldTicketLink, FieldDescription}

// Rule is one attempt at locating a field. Either Pattern or Match is set.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
	Group   int
	Match   func(text string) (string, bool)
	Clean   func(value string) string
}

// Apply runs the rule against text, returning the trimmed, cleaned value
func (r Rule) Apply(text string) (string, bool) {
	var value string
	switch {
	case r.Match != nil:
		v, ok := r.Match(text)
		if !ok {
			return "", false
		}
		value = v
	case r.Pattern != nil:
		m := r.Pattern.FindStringSubmatch(text)
		if m == nil || r.Group >= len(m) {
			return "", false
		}
		value = m[r.Group]
	default:
		return "", false
	}

	value = strings.TrimSpace(value)
	if r.Clean != nil {
		value = strings.TrimSpace(r.Clean(value))
	}
	if value == "" {
		return "", false
	}
	return value, true
}

// RuleSet maps each field to its rules in precedence order; the first rule
// that matches wins.
type RuleSet map[Field][]Rule

const (
	longDays    = `Monday|Tuesday|Wednesday|Thursday|Friday|Saturday|Sunday`
	longMonths  = `January|February|March|April|May|June|July|August|September|October|November|December`
	shortDays   = `Mon|Tue|Wed|Thu|Fri|Sat|Sun`
	shortMonths = `Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec`
	amount      = `(?:\$\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\$\d+(?:\.\d{2})?)`
)

var (
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]*)\]\((https?://[^\s)]+)\)`)
	descLabelLine       = regexp.MustCompile(`(?i)^(?:Time|Date|Venue|Tickets?|Link|Location|Hours|Admission|Price|Cost|Website)\b`)
	bulletPrefix        = regexp.MustCompile(`^(?:[*\-+•]|\d+\.)[ \t]+`)
)

func labeled(labels string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + labels + `):[ \t]*([^\n]+)`)
}

// DefaultRules returns a fresh copy of the standard extraction rules
func DefaultRules() RuleSet {
	return RuleSet{
		FieldDate: {
			{Name: "date-label", Pattern: labeled(`Dates?`), Group: 1},
			{Name: "weekday-month-day", Pattern: regexp.MustCompile(`(?i)\b(?:` + longDays + `),?\s+(?:` + longMonths + `)\s+\d{1,2}`)},
			{Name: "month-day", Pattern: regexp.MustCompile(`(?i)\b(?:` + longMonths + `)\s+\d{1,2}`)},
			{Name: "short-weekday-month-day", Pattern: regexp.MustCompile(`(?i)\b(?:` + shortDays + `),?\s+(?:` + shortMonths + `)\.?\s+\d{1,2}`)},
			{Name: "numeric", Pattern: regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b`)},
			{Name: "weekday-day", Pattern: regexp.MustCompile(`(?i)\b(?:` + longDays + `),?\s+\d{1,2}`)},
		},
		FieldTime: {
			{Name: "time-label", Pattern: labeled(`Time|Hours`), Group: 1},
			{Name: "clock-range", Pattern: regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}[ \t]*(?:AM|PM)?[ \t]*[-–][ \t]*\d{1,2}:\d{2}[ \t]*(?:AM|PM)\b`)},
			{Name: "hour-range", Pattern: regexp.MustCompile(`(?i)\b\d{1,2}[ \t]*(?:AM|PM)?[ \t]*[-–][ \t]*\d{1,2}[ \t]*(?:AM|PM)\b`)},
			{Name: "clock", Pattern: regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}[ \t]*(?:AM|PM)\b`)},
			{Name: "hour", Pattern: regexp.MustCompile(`(?i)\b\d{1,2}[ \t]*(?:AM|PM)\b`)},
		},
		FieldVenue: {
			{Name: "venue-label", Pattern: labeled(`Location|Venue`), Group: 1},
			{Name: "at-phrase", Pattern: regexp.MustCompile(`(?i)\bat[ \t]+([^,\n.]+)`), Group: 1},
		},
		FieldTicketPrice: {
			{Name: "price-label", Pattern: labeled(`Tickets|Admission|Price|Cost`), Group: 1},
			{Name: "amount-range", Pattern: regexp.MustCompile(amount + `[ \t]*[-–][ \t]*` + amount)},
			{Name: "starting-at", Pattern: regexp.MustCompile(`(?i)\bstarting at ` + amount)},
			{Name: "amount", Pattern: regexp.MustCompile(amount)},
			{Name: "free", Pattern: regexp.MustCompile(`(?i)\bfree\b`), Clean: func(string) string { return "Free" }},
		},
		FieldTicketLink: {
			{Name: "link-label", Pattern: labeled(`Ticket Link|Link|Website`), Group: 1, Clean: cleanLink},
			{Name: "markdown-link", Pattern: markdownLinkPattern, Group: 2},
		},
		FieldDescription: {
			{Name: "description-label", Pattern: labeled(`Bio|Description|Details`), Group: 1},
			{Name: "trailing-line", Match: trailingLine},
		},
	}
}

// cleanLink reduces a labeled link value to its URL
func cleanLink(value string) string {
	if m := markdownLinkPattern.FindStringSubmatch(value); m != nil {
		return m[2]
	}
	value = strings.Trim(value, "<>")
	switch strings.ToLower(value) {
	case "tbd", "tba", "n/a", "none":
		return ""
	}
	return value
}

// trailingLine uses the last non-empty line as a description unless it is
// itself a field line.
func trailingLine(text string) (string, bool) {
	lines := strings.Split(text, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		line = strings.TrimSpace(bulletPrefix.ReplaceAllString(line, ""))
		if line == "" || descLabelLine.MatchString(line) {
			return "", false
		}
		return line, true
	}
	return "", false
}
