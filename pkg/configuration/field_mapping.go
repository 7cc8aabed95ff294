package configuration

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldMap binds one CSV column to one remote USER custom field.
type FieldMap struct {
	Column string
	Field  string
}

// FieldMapping keeps the declaration order of the field_mapping YAML block.
type FieldMapping []FieldMap

func (m *FieldMapping) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode && value.Tag == "!!null" {
		*m = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("field_mapping: expected a mapping, got %s", kindName(value.Kind))
	}
	out := make(FieldMapping, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if k.Kind != yaml.ScalarNode || v.Kind != yaml.ScalarNode {
			return fmt.Errorf("field_mapping: line %d: column and field must be plain strings", k.Line)
		}
		out = append(out, FieldMap{
			Column: strings.TrimSpace(k.Value),
			Field:  strings.TrimSpace(v.Value),
		})
	}
	*m = out
	return nil
}

// Fields returns the distinct custom-field names in declaration order.
func (m FieldMapping) Fields() []string {
	seen := make(map[string]struct{}, len(m))
	out := make([]string, 0, len(m))
	for _, fm := range m {
		if _, ok := seen[fm.Field]; ok {
			continue
		}
		seen[fm.Field] = struct{}{}
		out = append(out, fm.Field)
	}
	return out
}

func (m FieldMapping) validate() error {
	for i, fm := range m {
		if fm.Column == "" {
			return fmt.Errorf("field_mapping[%d]: empty CSV column", i)
		}
		if fm.Field == "" {
			return fmt.Errorf("field_mapping[%d] (%s): empty custom field name", i, fm.Column)
		}
	}
	return nil
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
