package extraction

import (
	"strings"

	"desmoines-weekly-events/internal/models"
)

// Parsed is an extraction result plus what the parser had to do to get it
type Parsed struct {
	Result models.ExtractionResult

	// UsedFallback is set when no section yielded events and the whole
	// document was scanned instead.
	UsedFallback bool

	// Unclassified holds headings that matched no known category
	Unclassified []string
}

// Parser turns a generated newsletter into categories and planning tips.
// It performs no I/O and is safe for concurrent use.
type Parser struct {
	cfg       Config
	extractor *Extractor
}

// NewParser creates a parser using the default rules
func NewParser(cfg Config) *Parser {
	return NewParserWithRules(cfg, nil)
}

// NewParserWithRules creates a parser with a custom rule set
func NewParserWithRules(cfg Config, rules RuleSet) *Parser {
	return &Parser{cfg: cfg, extractor: NewExtractor(rules, cfg.Sentinels)}
}

// Config returns the parser's configuration
func (p *Parser) Config() Config {
	return p.cfg
}

// ExtractActivities parses raw text. It never fails: unrecognizable input
// yields an empty result.
func (p *Parser) ExtractActivities(raw string) models.ExtractionResult {
	return p.Parse(raw).Result
}

// Parse is ExtractActivities with diagnostics
func (p *Parser) Parse(raw string) Parsed {
	text := strings.ReplaceAll(raw, "\r\n", "\n")

	parsed := Parsed{
		Result: models.ExtractionResult{Categories: []models.Category{}, PlanningTips: []string{}},
	}
	byName := map[string]int{}
	addEvents := func(name string, events []models.Event) {
		if len(events) == 0 {
			return
		}
		if i, ok := byName[name]; ok {
			parsed.Result.Categories[i].Events = append(parsed.Result.Categories[i].Events, events...)
			return
		}
		byName[name] = len(parsed.Result.Categories)
		parsed.Result.Categories = append(parsed.Result.Categories, models.Category{Name: name, Events: events})
	}

	for _, section := range SplitSections(text) {
		switch section.Kind {
		case SectionLiveMusic:
			addEvents(models.CategoryLiveMusic, p.blockEvents(section.Body))
		case SectionFestivals:
			addEvents(models.CategoryFestivalsEvents, p.blockEvents(section.Body))
		case SectionPlanningTips:
			parsed.Result.PlanningTips = append(parsed.Result.PlanningTips, ParsePlanningTips(section.Body)...)
		default:
			parsed.Unclassified = append(parsed.Unclassified, section.Title)
			if p.cfg.KeepUnclassified {
				addEvents(models.CategoryOtherEvents, p.blockEvents(section.Body))
			}
		}
	}

	if len(parsed.Result.Categories) == 0 {
		parsed.Result.Categories = append(parsed.Result.Categories, p.scanDocument(text)...)
		parsed.UsedFallback = true
	}
	return parsed
}

func (p *Parser) blockEvents(body string) []models.Event {
	blocks := SplitBlocks(body)
	events := make([]models.Event, 0, len(blocks))
	for _, b := range blocks {
		events = append(events, p.extractor.Event(b.Name, b.Text))
	}
	return events
}

var defaultParser = NewParser(DefaultConfig())

// ExtractActivities parses raw text with the default configuration
func ExtractActivities(raw string) models.ExtractionResult {
	return defaultParser.ExtractActivities(raw)
}
