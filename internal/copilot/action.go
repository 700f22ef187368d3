// Package copilot is the local half of an assistant integration: named,
// schema-typed actions an external assistant may invoke, and readable
// context it consults before choosing one.
package copilot

import (
	"context"
	"encoding/json"
	"fmt"
)

// Parameter types understood by the assistant.
const (
	TypeString       = "string"
	TypeNumber       = "number"
	TypeBoolean      = "boolean"
	TypeObject       = "object"
	TypeStringArray  = "string[]"
	TypeNumberArray  = "number[]"
	TypeBooleanArray = "boolean[]"
	TypeObjectArray  = "object[]"
)

// Parameter describes one action argument. Parameters are required unless
// Optional is set. Attributes describe the fields of object and object[]
// parameters.
type Parameter struct {
	Name        string
	Type        string
	Description string
	Optional    bool
	Enum        []string
	Attributes  []Parameter
}

// Handler runs an action with the decoded JSON arguments.
type Handler func(ctx context.Context, args map[string]any) error

// Action is a named operation exposed to the assistant.
type Action struct {
	Name        string
	Description string
	Parameters  []Parameter
	Handler     Handler

	// Render is the status text shown while the action runs.
	Render string
}

// Validate checks the action declaration itself, not call arguments.
func (a *Action) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("action: empty name")
	}
	if a.Handler == nil {
		return fmt.Errorf("action %q: nil handler", a.Name)
	}
	return validateParams(a.Name, a.Parameters)
}

func validateParams(owner string, params []Parameter) error {
	seen := make(map[string]bool, len(params))
	for _, p := range params {
		if p.Name == "" {
			return fmt.Errorf("action %q: parameter with empty name", owner)
		}
		if seen[p.Name] {
			return fmt.Errorf("action %q: duplicate parameter %q", owner, p.Name)
		}
		seen[p.Name] = true

		switch p.Type {
		case "", TypeString, TypeNumber, TypeBoolean,
			TypeStringArray, TypeNumberArray, TypeBooleanArray:
		case TypeObject, TypeObjectArray:
			if err := validateParams(owner+"."+p.Name, p.Attributes); err != nil {
				return err
			}
		default:
			return fmt.Errorf("action %q: parameter %q has unknown type %q", owner, p.Name, p.Type)
		}
	}
	return nil
}

// DecodeArgs converts loosely typed arguments into v via a JSON round-trip.
func DecodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("marshal args: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode args: %w", err)
	}
	return nil
}
