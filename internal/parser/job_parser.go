package parser

import (
	"fmt"
	"strings"
)

// JobSpec is a job reference typed by name
type JobSpec struct {
	Code     string
	Category string
}

// ParseJobSpec parses "Code@Category", "@Category" or a bare name.
// A bare name is taken as a category unless asCode is set.
// Examples:
// - "Hensley@WRP" -> code Hensley in category WRP
// - "@Kitchen", "Kitchen" -> category Kitchen
func ParseJobSpec(input string, asCode bool) (JobSpec, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return JobSpec{}, fmt.Errorf("empty job")
	}

	code, category, found := strings.Cut(input, "@")
	code = strings.TrimSpace(code)
	category = strings.TrimSpace(category)

	if !found {
		if asCode {
			return JobSpec{Code: input}, nil
		}
		return JobSpec{Category: input}, nil
	}
	if category == "" {
		return JobSpec{}, fmt.Errorf("invalid job %q. Use: Code@Category or Category", input)
	}
	if strings.Contains(category, "@") {
		return JobSpec{}, fmt.Errorf("invalid job %q: more than one @", input)
	}
	return JobSpec{Code: code, Category: category}, nil
}
