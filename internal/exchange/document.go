// Package exchange converts a page to and from its portable export document:
// building exports with default metadata, encoding them as JSON or YAML,
// validating untrusted input and merging imported sections into a page.
package exchange

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"page-composer-backend/internal/constants"
	"page-composer-backend/internal/document"
	"page-composer-backend/internal/models"
	"page-composer-backend/pkg/utils"
	"page-composer-backend/pkg/validator"
)

var (
	// ErrInvalidDocument wraps the aggregated validation errors of a rejected import.
	ErrInvalidDocument = errors.New("invalid export document")
	// ErrUnsupportedFormat is returned for formats other than json and yaml.
	ErrUnsupportedFormat = errors.New("unsupported document format")
)

// Metadata describes an exported page.
type Metadata struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Author      string    `json:"author,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	URL         string    `json:"url,omitempty"`
}

// Document is the portable export format.
type Document struct {
	Sections []models.Section `json:"sections"`
	Metadata Metadata         `json:"metadata"`
}

// Export wraps sections into a document. Non-empty override fields win over
// the defaults; UpdatedAt is always now. Sections are deep-copied.
func Export(sections []models.Section, overrides Metadata, now time.Time) Document {
	now = now.UTC()
	meta := Metadata{
		Name:        "Website Export " + now.Format("2006-01-02"),
		Description: constants.DefaultExportDescription,
		Author:      constants.DefaultExportAuthor,
		Tags:        constants.DefaultExportTags(),
		Version:     constants.ExportVersion,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	overrides = CleanMetadata(overrides)
	if overrides.Name != "" {
		meta.Name = overrides.Name
	}
	if overrides.Description != "" {
		meta.Description = overrides.Description
	}
	if overrides.Author != "" {
		meta.Author = overrides.Author
	}
	if len(overrides.Tags) > 0 {
		meta.Tags = append([]string(nil), overrides.Tags...)
	}
	if overrides.Version != "" {
		meta.Version = overrides.Version
	}
	if !overrides.CreatedAt.IsZero() {
		meta.CreatedAt = overrides.CreatedAt.UTC()
	}
	meta.URL = overrides.URL

	return Document{
		Sections: document.Clone(sections),
		Metadata: meta,
	}
}

// CleanMetadata strips markup and redundant whitespace from every text field.
func CleanMetadata(meta Metadata) Metadata {
	meta.Name = validator.CleanText(meta.Name)
	meta.Description = validator.CleanText(meta.Description)
	meta.Author = validator.CleanText(meta.Author)
	meta.URL = strings.TrimSpace(meta.URL)
	meta.Version = strings.TrimSpace(meta.Version)

	if len(meta.Tags) > 0 {
		tags := make([]string, 0, len(meta.Tags))
		for _, tag := range meta.Tags {
			if tag = validator.CleanText(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
		meta.Tags = tags
	}
	return meta
}

// Format is the serialisation of an export document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml and yml in any case. An empty string means JSON.
func ParseFormat(value string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, value)
	}
}

// FormatFromFilename picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromFilename(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	if f == FormatYAML {
		return ".yaml"
	}
	return ".json"
}

// ContentType returns the MIME type used when the document is downloaded.
func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Filename derives the download name from the metadata name and the date,
// e.g. "my-landing-page-2024-03-01.json".
func Filename(meta Metadata, now time.Time, format Format) string {
	base := utils.SlugOrDefault(meta.Name, constants.DefaultExportFilename)
	return base + "-" + now.UTC().Format("2006-01-02") + format.Extension()
}

// Encode serialises doc. JSON is indented by two spaces.
func Encode(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		var buf bytes.Buffer
		encoder := json.NewEncoder(&buf)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		if err := encoder.Encode(doc); err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return buf.Bytes(), nil
	case FormatYAML:
		tree, err := toTree(doc)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)
		if err := encoder.Encode(tree); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := encoder.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// Decode parses and validates data, returning the document or an error
// wrapping ErrInvalidDocument with every validation message.
func Decode(data []byte, format Format) (Document, error) {
	result := ParseAndValidate(data, format)
	if !result.IsValid {
		return Document{}, fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(result.Errors, "; "))
	}
	return *result.Data, nil
}

// Parse decodes data into a generic tree of maps, slices, strings, bools and numbers.
func Parse(data []byte, format Format) (interface{}, error) {
	var tree interface{}
	switch format {
	case FormatJSON, "":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&tree); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	return normalizeTree(tree), nil
}

func toTree(value interface{}) (interface{}, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var tree interface{}
	if err := json.Unmarshal(encoded, &tree); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return tree, nil
}

// normalizeTree turns YAML-specific values into their JSON equivalents so
// both formats validate and decode the same way.
func normalizeTree(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		for key, item := range v {
			v[key] = normalizeTree(item)
		}
		return v
	case map[interface{}]interface{}:
		converted := make(map[string]interface{}, len(v))
		for key, item := range v {
			converted[fmt.Sprint(key)] = normalizeTree(item)
		}
		return converted
	case []interface{}:
		for i, item := range v {
			v[i] = normalizeTree(item)
		}
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	default:
		return v
	}
}
