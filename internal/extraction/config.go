package extraction

// Sentinels are the placeholder values written when a field cannot be found
type Sentinels struct {
	Date        string `yaml:"date"`
	Time        string `yaml:"time"`
	Venue       string `yaml:"venue"`
	TicketPrice string `yaml:"ticket_price"`
	TicketLink  string `yaml:"ticket_link"`
	Description string `yaml:"description"`
}

// DefaultSentinels returns the standard placeholders
func DefaultSentinels() Sentinels {
	return Sentinels{
		Date:        "TBD",
		Time:        "TBD",
		Venue:       "TBD",
		TicketPrice: "TBD",
		TicketLink:  "",
		Description: "No description available.",
	}
}

// For returns the sentinel for a field
func (s Sentinels) For(field Field) string {
	switch field {
	case FieldDate:
		return s.Date
	case FieldTime:
		return s.Time
	case FieldVenue:
		return s.Venue
	case FieldTicketPrice:
		return s.TicketPrice
	case FieldTicketLink:
		return s.TicketLink
	case FieldDescription:
		return s.Description
	}
	return ""
}

// Config controls parsing and validation
type Config struct {
	Sentinels Sentinels

	// RequiredFields is how many of name, date, time and venue must be
	// present for an event to survive validation.
	RequiredFields int

	// KeepUnclassified files events from sections whose heading matches no
	// known category under "Other Events" instead of dropping them.
	KeepUnclassified bool
}

// DefaultConfig returns the standard parsing configuration
func DefaultConfig() Config {
	return Config{
		Sentinels:      DefaultSentinels(),
		RequiredFields: 3,
	}
}

func (c Config) requiredFields() int {
	if c.RequiredFields <= 0 || c.RequiredFields > 4 {
		return 3
	}
	return c.RequiredFields
}
