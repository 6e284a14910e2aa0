package generation

import (
	"strings"
)

const nonEmptyRule = "Always return a non-empty value for every field in the object."

// objectPrefix renders the opening of the new object: "{" followed by one
// clause per forwarded value, each terminated by ", ".
func (s *Stage) objectPrefix(values []any) (string, error) {
	var b strings.Builder
	b.WriteString("{")
	for i, v := range values {
		clause, err := encodeClause(s.cfg.Schema[i].Name, v)
		if err != nil {
			return "", err
		}
		b.WriteString(clause)
		b.WriteString(", ")
	}
	return b.String(), nil
}

// prompt renders the full completion prompt. Examples are reshuffled on
// every call.
func (s *Stage) prompt(raw, prefix string) (string, error) {
	order := make([]int, len(s.examples))
	for i := range order {
		order[i] = i
	}
	s.shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	examples := make([]string, 0, len(order))
	for _, idx := range order {
		rendered, err := s.cfg.Schema.encodeOrdered(s.examples[idx])
		if err != nil {
			return "", err
		}
		examples = append(examples, rendered)
	}

	instructions := strings.TrimSpace(s.cfg.Instructions)
	if instructions == "" {
		instructions = "Generate a JSON object describing " + strings.TrimSpace(s.cfg.Description) + "."
	}

	var b strings.Builder
	b.WriteString("INSTRUCTIONS:\n")
	b.WriteString(instructions)
	b.WriteString("\n")
	b.WriteString(nonEmptyRule)
	b.WriteString("\n\n")
	if raw = strings.TrimSpace(raw); raw != "" {
		b.WriteString("REQUEST:\n")
		b.WriteString(raw)
		b.WriteString("\n\n")
	}
	b.WriteString("FIELDS DESIRED:\n")
	b.WriteString(strings.Join(s.cfg.Schema.Names(), ", "))
	b.WriteString("\n\n")
	if len(examples) > 0 {
		b.WriteString("EXAMPLE OBJECTS:\n")
		b.WriteString(strings.Join(examples, "\n"))
		b.WriteString("\n\n")
	}
	b.WriteString("NEW OBJECT:\n")
	b.WriteString(prefix)
	return b.String(), nil
}
