package extraction

import (
	"regexp"
	"strings"

	"desmoines-weekly-events/internal/models"
)

// Rejection records an event that failed validation
type Rejection struct {
	Category      string       `json:"category"`
	Event         models.Event `json:"event"`
	PresentFields int          `json:"presentFields"`
	Missing       []string     `json:"missing"`
}

// Validator filters events by how many required fields they carry
type Validator struct {
	cfg Config
}

// NewValidator creates a validator
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

var placeholderName = regexp.MustCompile(`(?i)^(?:event(?:\s+(?:\d+|name))?|\[.*\]|tbd|tba)$`)

// IsPlaceholderName reports whether a name is missing or a generic stand-in
func IsPlaceholderName(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || placeholderName.MatchString(name)
}

func (v *Validator) isPlaceholder(field Field, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return true
	}
	lower := strings.ToLower(value)
	if sentinel := v.cfg.Sentinels.For(field); sentinel != "" && strings.EqualFold(value, sentinel) {
		return true
	}
	switch lower {
	case "tbd", "tba", "n/a", "unknown":
		return true
	}
	name := string(field)
	return lower == name+" tbd" || lower == name+" not specified"
}

// Score returns how many of name, date, time and venue are present and
// which are missing.
func (v *Validator) Score(e models.Event) (int, []string) {
	var missing []string
	if IsPlaceholderName(e.Name) {
		missing = append(missing, "name")
	}
	if v.isPlaceholder(FieldDate, e.Date) {
		missing = append(missing, string(FieldDate))
	}
	if v.isPlaceholder(FieldTime, e.Time) {
		missing = append(missing, string(FieldTime))
	}
	if v.isPlaceholder(FieldVenue, e.Venue) {
		missing = append(missing, string(FieldVenue))
	}
	return 4 - len(missing), missing
}

// Accepts reports whether an event would survive validation
func (v *Validator) Accepts(e models.Event) bool {
	present, _ := v.Score(e)
	return present >= v.cfg.requiredFields()
}

// Validate keeps events with enough required fields, fills optional fields
// with sentinels, and drops categories left empty. The input is not modified.
func (v *Validator) Validate(result models.ExtractionResult) (models.ExtractionResult, []Rejection) {
	out := models.ExtractionResult{Categories: []models.Category{}, PlanningTips: []string{}}
	var rejected []Rejection
	for _, category := range result.Categories {
		kept := make([]models.Event, 0, len(category.Events))
		for _, e := range category.Events {
			present, missing := v.Score(e)
			if present < v.cfg.requiredFields() {
				rejected = append(rejected, Rejection{
					Category:      category.Name,
					Event:         e,
					PresentFields: present,
					Missing:       missing,
				})
				continue
			}
			kept = append(kept, v.fillOptional(e))
		}
		if len(kept) > 0 {
			out.Categories = append(out.Categories, models.Category{Name: category.Name, Events: kept})
		}
	}

	for _, tip := range result.PlanningTips {
		if tip = strings.TrimSpace(tip); tip != "" {
			out.PlanningTips = append(out.PlanningTips, tip)
		}
	}
	return out, rejected
}

func (v *Validator) fillOptional(e models.Event) models.Event {
	s := v.cfg.Sentinels
	e.Name = strings.TrimSpace(e.Name)
	if strings.TrimSpace(e.Date) == "" {
		e.Date = s.Date
	}
	if strings.TrimSpace(e.Time) == "" {
		e.Time = s.Time
	}
	if strings.TrimSpace(e.Venue) == "" {
		e.Venue = s.Venue
	}
	if strings.TrimSpace(e.TicketPrice) == "" {
		e.TicketPrice = s.TicketPrice
	}
	if strings.TrimSpace(e.TicketLink) == "" {
		e.TicketLink = s.TicketLink
	}
	if strings.TrimSpace(e.Description) == "" {
		e.Description = s.Description
	}
	return e
}
