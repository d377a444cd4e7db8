package extraction

import (
	"regexp"
	"strings"
)

// Block is one candidate event inside a section: a bold name and the text
// that follows it up to the next bold name.
type Block struct {
	Name string
	Text string
}

var boldPattern = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)

// SplitBlocks splits a section body on bold-delimited names. Bold field
// labels such as "**Date:**" are part of the surrounding block, not names.
func SplitBlocks(body string) []Block {
	type span struct{ start, end, nameStart, nameEnd int }
	var names []span
	for _, loc := range boldPattern.FindAllStringSubmatchIndex(body, -1) {
		if isFieldLabel(body, loc) {
			continue
		}
		if strings.TrimSpace(body[loc[2]:loc[3]]) == "" {
			continue
		}
		names = append(names, span{loc[0], loc[1], loc[2], loc[3]})
	}

	blocks := make([]Block, 0, len(names))
	for i, n := range names {
		end := len(body)
		if i+1 < len(names) {
			end = names[i+1].start
		}
		blocks = append(blocks, Block{
			Name: cleanName(body[n.nameStart:n.nameEnd]),
			Text: strings.ReplaceAll(body[n.end:end], "**", ""),
		})
	}
	return blocks
}

// isFieldLabel reports whether a bold match is a label rather than a name,
// i.e. its text ends with a colon or a colon follows the closing marker.
func isFieldLabel(body string, loc []int) bool {
	inner := strings.TrimSpace(body[loc[2]:loc[3]])
	if strings.HasSuffix(inner, ":") {
		return true
	}
	rest := strings.TrimLeft(body[loc[1]:], " \t")
	return strings.HasPrefix(rest, ":")
}

func cleanName(name string) string {
	name = strings.TrimSpace(name)
	return strings.TrimSpace(strings.TrimRight(name, "-–:"))
}
