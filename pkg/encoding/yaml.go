package encoding

import (
	"bytes"
	"io"

	"gopkg.in/yaml.v3"
)

// unmarshalStrictYAML decodes YAML data into the specified structure,
// rejecting any fields not known to that structure.
func unmarshalStrictYAML(data []byte, value interface{}) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(value); err != nil && err != io.EOF {
		return err
	}
	return nil
}

// LoadAndUnmarshalYAML loads data from the specified path and decodes it into
// the specified structure.
func LoadAndUnmarshalYAML(path string, value interface{}) error {
	return LoadAndUnmarshal(path, func(data []byte) error {
		return unmarshalStrictYAML(data, value)
	})
}
