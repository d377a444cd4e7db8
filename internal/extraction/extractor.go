package extraction

import (
	"strings"

	"desmoines-weekly-events/internal/models"
)

// Extractor pulls individual fields out of free text using ordered rules,
// returning the field's sentinel when no rule matches.
type Extractor struct {
	rules     RuleSet
	sentinels Sentinels
}

// NewExtractor creates an extractor. A nil rule set uses DefaultRules.
func NewExtractor(rules RuleSet, sentinels Sentinels) *Extractor {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Extractor{rules: rules, sentinels: sentinels}
}

// Extract returns the first rule match for field, or its sentinel
func (x *Extractor) Extract(field Field, text string) string {
	value, _ := x.Find(field, text)
	return value
}

// Find is Extract that also reports which rule matched. The rule name is
// empty when the sentinel was returned.
func (x *Extractor) Find(field Field, text string) (string, string) {
	for _, rule := range x.rules[field] {
		if value, ok := rule.Apply(text); ok {
			return value, rule.Name
		}
	}
	return x.sentinels.For(field), ""
}

func (x *Extractor) Date(text string) string        { return x.Extract(FieldDate, text) }
func (x *Extractor) Time(text string) string        { return x.Extract(FieldTime, text) }
func (x *Extractor) Venue(text string) string       { return x.Extract(FieldVenue, text) }
func (x *Extractor) TicketPrice(text string) string { return x.Extract(FieldTicketPrice, text) }
func (x *Extractor) TicketLink(text string) string  { return x.Extract(FieldTicketLink, text) }
func (x *Extractor) Description(text string) string { return x.Extract(FieldDescription, text) }

// Event builds an event from a name and the text that describes it
func (x *Extractor) Event(name, text string) models.Event {
	text = strings.ReplaceAll(text, "**", "")
	return models.Event{
		Name:        strings.TrimSpace(name),
		Date:        x.Date(text),
		Time:        x.Time(text),
		Venue:       x.Venue(text),
		TicketPrice: x.TicketPrice(text),
		TicketLink:  x.TicketLink(text),
		Description: x.Description(text),
	}
}

var defaultExtractor = NewExtractor(nil, DefaultSentinels())

// ExtractDate finds a date with the default rules
func ExtractDate(text string) string { return defaultExtractor.Date(text) }

// ExtractTime finds a time with the default rules
func ExtractTime(text string) string { return defaultExtractor.Time(text) }

// ExtractVenue finds a venue with the default rules
func ExtractVenue(text string) string { return defaultExtractor.Venue(text) }

// ExtractTicketPrice finds a price with the default rules
func ExtractTicketPrice(text string) string { return defaultExtractor.TicketPrice(text) }

// ExtractTicketLink finds a ticket link with the default rules
func ExtractTicketLink(text string) string { return defaultExtractor.TicketLink(text) }

// ExtractDescription finds a description with the default rules
func ExtractDescription(text string) string { return defaultExtractor.Description(text) }
