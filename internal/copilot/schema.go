package copilot

import "strings"

// JSONSchema returns the JSON Schema object describing the action's
// arguments, in the shape tool-calling models expect.
func (a *Action) JSONSchema() map[string]any {
	return objectSchema("", a.Parameters)
}

func objectSchema(desc string, params []Parameter) map[string]any {
	props := make(map[string]any, len(params))
	required := []string{}
	for _, p := range params {
		props[p.Name] = paramSchema(p)
		if !p.Optional {
			required = append(required, p.Name)
		}
	}
	s := map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
	if desc != "" {
		s["description"] = desc
	}
	return s
}

func paramSchema(p Parameter) map[string]any {
	switch p.Type {
	case TypeObject:
		return objectSchema(p.Description, p.Attributes)
	case TypeObjectArray:
		s := map[string]any{
			"type":  "array",
			"items": objectSchema("", p.Attributes),
		}
		if p.Description != "" {
			s["description"] = p.Description
		}
		return s
	}

	if elem, ok := strings.CutSuffix(p.Type, "[]"); ok {
		items := map[string]any{"type": elem}
		if len(p.Enum) > 0 {
			items["enum"] = p.Enum
		}
		s := map[string]any{"type": "array", "items": items}
		if p.Description != "" {
			s["description"] = p.Description
		}
		return s
	}

	typ := p.Type
	if typ == "" {
		typ = TypeString
	}
	s := map[string]any{"type": typ}
	if p.Description != "" {
		s["description"] = p.Description
	}
	if len(p.Enum) > 0 {
		s["enum"] = p.Enum
	}
	return s
}
