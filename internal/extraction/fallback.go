package extraction

import (
	"regexp"
	"strings"

	"desmoines-weekly-events/internal/models"
)

// Whole-document patterns for responses that ignore the section layout.
// Group 1 is always the event name.
var fallbackPatterns = []*regexp.Regexp{
	// * Name
	//   * Time: ...
	//   * Tickets: ...
	//   * Link: ...
	//   * Bio: ...
	regexp.MustCompile(`(?i)\*[ \t]+([^\n]+)\n\s*\*[ \t]+Time:[ \t]*([^\n]+)\n\s*\*[ \t]+(?:Tickets|Admission):[ \t]*([^\n]+)\n\s*\*[ \t]+(?:Ticket Link|Link|Website):[ \t]*([^\n]+)\n\s*\*[ \t]+(?:Bio|Description|Details):[ \t]*([^\n]+)`),
	// **Name**
	//   * Date: ...
	//   * Time: ...
	//   * Location: ...
	regexp.MustCompile(`(?i)\*\*([^*\n]+)\*\*[^\n]*\n\s*\*[ \t]+(?:Date|Dates):[ \t]*([^\n]+)\n\s*\*[ \t]+(?:Time|Hours):[ \t]*([^\n]+)\n\s*\*[ \t]+(?:Location|Venue):[ \t]*([^\n]+)`),
}

var (
	musicKeywords  = regexp.MustCompile(`(?i)concert|music|band|artist|performance|show`)
	labelLikeName  = regexp.MustCompile(`(?i)^(?:Date|Dates|Time|Hours|Location|Venue|Tickets|Admission|Ticket Link|Link|Website|Bio|Description|Details):`)
)

// scanDocument recovers events from the whole text when no section yielded
// any. Text matched by an earlier pattern is not scanned again.
func (p *Parser) scanDocument(text string) []models.Category {
	var music, festivals []models.Event
	consumed := make([]bool, len(text))

	for _, pattern := range fallbackPatterns {
		for _, loc := range pattern.FindAllStringSubmatchIndex(text, -1) {
			if overlaps(consumed, loc[0], loc[1]) {
				continue
			}
			name := cleanName(strings.ReplaceAll(text[loc[2]:loc[3]], "**", ""))
			if name == "" || labelLikeName.MatchString(name) {
				continue
			}
			for i := loc[0]; i < loc[1]; i++ {
				consumed[i] = true
			}

			match := text[loc[0]:loc[1]]
			event := p.extractor.Event(name, match)
			if musicKeywords.MatchString(match) {
				music = append(music, event)
			} else {
				festivals = append(festivals, event)
			}
		}
	}

	var categories []models.Category
	if len(music) > 0 {
		categories = append(categories, models.Category{Name: models.CategoryLiveMusic, Events: music})
	}
	if len(festivals) > 0 {
		categories = append(categories, models.Category{Name: models.CategoryFestivalsEvents, Events: festivals})
	}
	return categories
}

func overlaps(consumed []bool, start, end int) bool {
	for i := start; i < end; i++ {
		if consumed[i] {
			return true
		}
	}
	return false
}
