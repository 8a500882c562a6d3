package multiples

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the YAML layout of a multiples override
//
//	sectors:
//	  Technology: {current_pe: 64.15, forward_pe: 86.4, ...}
//	  Other: {...}
//	aliases:
//	  Information Technology: Technology
type File struct {
	Sectors map[string]Multiples `yaml:"sectors"`
	Aliases map[string]string    `yaml:"aliases"`
}

// Load reads a YAML multiples file.
// Any error here is a configuration error and should abort the run.
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read multiples file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a Table
func Parse(data []byte) (*Table, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode multiples: %w", err)
	}
	if len(f.Sectors) == 0 {
		return nil, fmt.Errorf("decode multiples: no sectors defined")
	}

	t, err := New(f.Sectors, f.Aliases)
	if err != nil {
		return nil, fmt.Errorf("invalid multiples: %w", err)
	}
	return t, nil
}

// LoadOrDefault loads path, or returns the built-in table when path is empty
func LoadOrDefault(path string) (*Table, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
