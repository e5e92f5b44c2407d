package settings

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
)

// ErrUnsupportedFormat is returned for settings files that are not YAML,
// TOML or JSON.
var ErrUnsupportedFormat = errors.New("unsupported settings format")

// Format is a settings file encoding.
type Format string

// Supported formats.
const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf detects the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Decode parses data over the defaults, so absent keys keep their default
// values.
func Decode(format Format, data []byte) (Settings, error) {
	s := Default()
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &s)
	case FormatTOML:
		err = toml.Unmarshal(data, &s)
	case FormatJSON:
		err = sonic.Unmarshal(data, &s)
	default:
		return Settings{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Settings{}, fmt.Errorf("failed to decode %s settings: %w", format, err)
	}
	return s.Normalize(), nil
}

// Encode serializes s in format.
func Encode(format Format, s Settings) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(s)
	case FormatTOML:
		return toml.Marshal(s)
	case FormatJSON:
		return sonic.ConfigStd.MarshalIndent(s, "", "  ")
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}
