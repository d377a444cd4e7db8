package extraction

import (
	"regexp"
	"strings"
)

// SectionKind is what a top-level heading was recognized as
type SectionKind int

const (
	SectionUnclassified SectionKind = iota
	SectionLiveMusic
	SectionFestivals
	SectionPlanningTips
)

func (k SectionKind) String() string {
	switch k {
	case SectionLiveMusic:
		return "live-music"
	case SectionFestivals:
		return "festivals"
	case SectionPlanningTips:
		return "planning-tips"
	}
	return "unclassified"
}

// Section is a heading and the text up to the next heading
type Section struct {
	Title string
	Body  string
	Kind  SectionKind
}

var headingPattern = regexp.MustCompile(`(?m)^[ \t]*#{1,6}[ \t]+([^\n]*)$`)

// Recognized heading synonyms in precedence order. Matching is a
// case-insensitive substring test, so a title matching several groups takes
// the first.
var sectionSynonyms = []struct {
	kind     SectionKind
	keywords []string
}{
	{SectionLiveMusic, []string{"live music", "music", "concerts", "shows"}},
	{SectionFestivals, []string{"festivals", "events", "outdoor", "family"}},
	{SectionPlanningTips, []string{"planning", "tips", "notes"}},
}

// ClassifyTitle maps a heading to a section kind
func ClassifyTitle(title string) SectionKind {
	lower := strings.ToLower(title)
	for _, s := range sectionSynonyms {
		for _, kw := range s.keywords {
			if strings.Contains(lower, kw) {
				return s.kind
			}
		}
	}
	return SectionUnclassified
}

// SplitSections splits text on line-anchored headings. Text before the
// first heading is not part of any section.
func SplitSections(text string) []Section {
	locs := headingPattern.FindAllStringSubmatchIndex(text, -1)
	sections := make([]Section, 0, len(locs))
	for i, loc := range locs {
		bodyEnd := len(text)
		if i+1 < len(locs) {
			bodyEnd = locs[i+1][0]
		}
		title := strings.TrimSpace(strings.TrimRight(text[loc[2]:loc[3]], "# \t"))
		title = strings.TrimSpace(strings.ReplaceAll(title, "**", ""))
		sections = append(sections, Section{
			Title: title,
			Body:  text[loc[1]:bodyEnd],
			Kind:  ClassifyTitle(title),
		})
	}
	return sections
}
