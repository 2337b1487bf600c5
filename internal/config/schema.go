package config

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/koustreak/hiverunner/internal/errs"
)

// FieldType is the JSON-schema type of a configuration field.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBoolean FieldType = "boolean"
)

// Field declares one configuration setting.
type Field struct {
	Name    string
	Type    FieldType
	Title   string // optional display title
	Default any    // nil when the field has no default
}

// Schema is the declarative field list a runner exposes so the host can
// render a form and validate what the user entered.
type Schema struct {
	Fields   []Field
	Order    []string
	Required []string
	Secret   []string
}

// ApplyDefaults returns a copy of settings with every unset field that
// declares a default filled in.
func (s Schema) ApplyDefaults(settings Settings) Settings {
	out := settings.Clone()
	for _, f := range s.Fields {
		if f.Default != nil && !out.Has(f.Name) {
			out[f.Name] = f.Default
		}
	}
	return out
}

// Validate reports every required field that is unset, after defaults.
func (s Schema) Validate(settings Settings) error {
	withDefaults := s.ApplyDefaults(settings)

	var missing []string
	for _, name := range s.Required {
		if !withDefaults.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("missing required settings: %s", strings.Join(missing, ", ")))
	}
	return nil
}

type propertyJSON struct {
	Type    FieldType `json:"type"`
	Title   string    `json:"title,omitempty"`
	Default any       `json:"default,omitempty"`
}

type schemaJSON struct {
	Type       string                  `json:"type"`
	Properties map[string]propertyJSON `json:"properties"`
	Order      []string                `json:"order,omitempty"`
	Required   []string                `json:"required,omitempty"`
	Secret     []string                `json:"secret,omitempty"`
}

// MarshalJSON renders the schema in the JSON-schema dialect hosts expect:
// {"type":"object","properties":{...},"order":[...],"required":[...],"secret":[...]}.
func (s Schema) MarshalJSON() ([]byte, error) {
	out := schemaJSON{
		Type:       "object",
		Properties: make(map[string]propertyJSON, len(s.Fields)),
		Order:      s.Order,
		Required:   s.Required,
		Secret:     s.Secret,
	}
	for _, f := range s.Fields {
		out.Properties[f.Name] = propertyJSON{Type: f.Type, Title: f.Title, Default: f.Default}
	}
	return json.Marshal(out)
}
