package formview

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// UnmarshalYAML decodes a YAML schema document. Mapping order is preserved by
// re-encoding the node tree as JSON before the regular decode.
func (s *Schema) UnmarshalYAML(node *yaml.Node) error {
	var buf bytes.Buffer
	if err := writeYAMLNodeAsJSON(&buf, node); err != nil {
		return err
	}
	return s.UnmarshalJSON(buf.Bytes())
}

// ParseSchemaYAML decodes a YAML schema document and checks it.
func ParseSchemaYAML(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		if fe, ok := AsFormError(err); ok {
			return nil, fe
		}
		return nil, NewUnsupportedSchemaError("", "invalid schema document").WithCause(err)
	}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return &s, nil
}

func writeYAMLNodeAsJSON(buf *bytes.Buffer, node *yaml.Node) error {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeYAMLNodeAsJSON(buf, node.Content[0])
	case yaml.AliasNode:
		return writeYAMLNodeAsJSON(buf, node.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(node.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(node.Content[i].Value)
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeYAMLNodeAsJSON(buf, node.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range node.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeYAMLNodeAsJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return fmt.Errorf("decode scalar at line %d: %w", node.Line, err)
		}
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode scalar at line %d: %w", node.Line, err)
		}
		buf.Write(data)
		return nil
	}
	return fmt.Errorf("unsupported yaml node kind %d", node.Kind)
}
