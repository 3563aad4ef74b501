package codec

import "gopkg.in/yaml.v3"

// YAML is the default serializer of TypeSerialized fields.
type YAML struct{}

// Marshal encodes v as a YAML document.
func (YAML) Marshal(v any) (string, error) {
	b, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Unmarshal decodes a YAML document into generic values.
func (YAML) Unmarshal(data string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(data), &v); err != nil {
		return nil, err
	}
	return v, nil
}
