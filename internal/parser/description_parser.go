package parser

import (
	"regexp"
	"strings"
)

var tagRegex = regexp.MustCompile(`#([\p{L}0-9_,-]+)`)

// ParsedDescription is free text with its #tags pulled out
type ParsedDescription struct {
	Text string
	Tags []string
}

// ParseDescription extracts tags using the "#tag1,tag2" or "#tag1 #tag2"
// syntax and returns the remaining text with whitespace collapsed.
// Syntax: "Fixing the sink #plumbing,urgent"
func ParseDescription(input string) ParsedDescription {
	result := ParsedDescription{Tags: []string{}}
	seen := make(map[string]bool)

	for _, match := range tagRegex.FindAllStringSubmatch(input, -1) {
		// Split by comma in case of #tag1,tag2
		for _, tag := range strings.Split(match[1], ",") {
			tag = strings.TrimSpace(tag)
			key := strings.ToLower(tag)
			if tag == "" || seen[key] {
				continue
			}
			seen[key] = true
			result.Tags = append(result.Tags, tag)
		}
	}

	input = tagRegex.ReplaceAllString(input, "")
	result.Text = strings.Join(strings.Fields(input), " ")
	return result
}
