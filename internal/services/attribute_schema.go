package services

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const attributeMaxLength = 255

// FieldSpec describes one product attribute input derived from a category filter.
type FieldSpec struct {
	Name      string `json:"name"`
	Label     string `json:"label"`
	Required  bool   `json:"required"`
	MaxLength int    `json:"max_length"`
}

// AttributeSchema is the set of attribute inputs a category asks for.
type AttributeSchema struct {
	Fields []FieldSpec `json:"fields"`
}

func NewAttributeSchema(filters []string) AttributeSchema {
	schema := AttributeSchema{Fields: make([]FieldSpec, 0, len(filters))}
	for _, name := range cleanNames(filters) {
		schema.Fields = append(schema.Fields, FieldSpec{
			Name:      name,
			Label:     capitalize(name),
			Required:  true,
			MaxLength: attributeMaxLength,
		})
	}
	return schema
}

func (s AttributeSchema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks submitted values against the schema and returns the cleaned
// attributes. Values for names outside the schema are dropped.
func (s AttributeSchema) Validate(values map[string]string) (map[string]interface{}, error) {
	cleaned := make(map[string]interface{}, len(s.Fields))
	errs := make(map[string]string)
	for _, f := range s.Fields {
		v := strings.TrimSpace(values[f.Name])
		switch {
		case v == "" && f.Required:
			errs["attributes."+f.Name] = "This field is required."
		case utf8.RuneCountInString(v) > f.MaxLength:
			errs["attributes."+f.Name] = "Ensure this value has at most 255 characters."
		default:
			cleaned[f.Name] = v
		}
	}
	if err := validationOrNil(errs); err != nil {
		return nil, err
	}
	return cleaned, nil
}

// cleanNames trims names and drops blanks and repeats, keeping order.
func cleanNames(filters []string) []string {
	seen := make(map[string]bool, len(filters))
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		f = strings.TrimSpace(f)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
