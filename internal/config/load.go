package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
	FormatTOML
)

func (format Format) String() string {
	switch format {
	case FormatYAML:
		return "YAML"
	case FormatTOML:
		return "TOML"
	default:
		return "JSON"
	}
}

// FormatForPath picks a format by file extension. Anything unrecognized is
// read as JSON, which is what build tools write.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// Decode parses a document into a generic map. The manifest loader shares
// this so every input file accepts the same formats.
func Decode(contents []byte, format Format) (map[string]interface{}, error) {
	var data map[string]interface{}
	switch format {
	case FormatYAML:
		var root interface{}
		if err := yaml.Unmarshal(contents, &root); err != nil {
			return nil, err
		}
		if root == nil {
			return map[string]interface{}{}, nil
		}
		m, ok := root.(map[string]interface{})
		if !ok {
			return nil, &ConfigShapeError{Reason: fmt.Sprintf("expected a mapping at the top level but found %s", describe(root))}
		}
		data = m

	case FormatTOML:
		if _, err := toml.Decode(string(contents), &data); err != nil {
			return nil, err
		}

	default:
		var root interface{}
		if err := json.Unmarshal(contents, &root); err != nil {
			return nil, err
		}
		m, ok := root.(map[string]interface{})
		if !ok {
			return nil, &ConfigShapeError{Reason: fmt.Sprintf("expected an object at the top level but found %s", describe(root))}
		}
		data = m
	}
	return data, nil
}

func Parse(contents []byte, format Format) (*Flags, error) {
	data, err := Decode(contents, format)
	if err != nil {
		return nil, err
	}
	return FromMap(data)
}

func LoadFile(path string) (*Flags, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	flags, err := Parse(contents, FormatForPath(path))
	if err != nil {
		var shapeErr *ConfigShapeError
		if errors.As(err, &shapeErr) {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, fmt.Errorf("Could not read %s as %s: %w", path, FormatForPath(path), err)
	}
	return flags, nil
}
