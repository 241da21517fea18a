package exchange

import (
	"encoding/json"
	"fmt"

	"page-composer-backend/internal/constants"
	"page-composer-backend/internal/models"
)

// ValidationResult reports every problem found in an import. Data is set
// only when the document is valid.
type ValidationResult struct {
	IsValid  bool      `json:"isValid"`
	Errors   []string  `json:"errors"`
	Warnings []string  `json:"warnings"`
	Data     *Document `json:"data,omitempty"`
}

func (r *ValidationResult) errorf(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *ValidationResult) warnf(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ParseAndValidate parses data and validates the result. Parse failures are
// reported as validation errors.
func ParseAndValidate(data []byte, format Format) ValidationResult {
	tree, err := Parse(data, format)
	if err != nil {
		return ValidationResult{Errors: []string{err.Error()}, Warnings: []string{}}
	}
	return Validate(tree)
}

// Validate checks the structure of an arbitrary parsed value. Structural
// problems are errors; version mismatches and missing optional metadata
// are warnings. Section types are normalised to their canonical spelling.
func Validate(raw interface{}) ValidationResult {
	result := ValidationResult{Errors: []string{}, Warnings: []string{}}

	root, ok := raw.(map[string]interface{})
	if !ok {
		result.errorf("Invalid document format: expected an object")
		return result
	}

	sections, sectionsOK := root["sections"].([]interface{})
	if !sectionsOK {
		result.errorf("Missing or invalid sections field")
	}

	meta, metaOK := root["metadata"].(map[string]interface{})
	if !metaOK {
		result.errorf("Missing or invalid metadata field")
	}

	checkVersion(&result, root, meta)

	if metaOK {
		if name, ok := meta["name"].(string); !ok || name == "" {
			result.warnf("Missing or invalid metadata name")
		}
	}

	if sectionsOK {
		seen := make(map[string]int, len(sections))
		for i, item := range sections {
			validateSection(&result, i+1, item, seen)
		}
	}

	if len(result.Errors) > 0 {
		return result
	}

	doc, err := decodeTree(root)
	if err != nil {
		result.errorf("Document could not be decoded: %v", err)
		return result
	}
	doc.Metadata = CleanMetadata(doc.Metadata)
	if doc.Metadata.Version == "" {
		if version, ok := root["version"].(string); ok {
			doc.Metadata.Version = version
		}
	}

	result.IsValid = true
	result.Data = &doc
	return result
}

func checkVersion(result *ValidationResult, root, meta map[string]interface{}) {
	metaVersion, metaOK := "", false
	if meta != nil {
		metaVersion, metaOK = meta["version"].(string)
		if !metaOK || metaVersion == "" {
			result.warnf("Missing builder version in metadata")
		}
	}

	version, ok := root["version"].(string)
	if !ok || version == "" {
		version, ok = metaVersion, metaOK
	}
	if !ok || version == "" {
		return
	}
	if version != constants.ExportVersion {
		result.warnf("Version mismatch: expected %s, got %s", constants.ExportVersion, version)
	}
}

func validateSection(result *ValidationResult, number int, item interface{}, seen map[string]int) {
	section, ok := item.(map[string]interface{})
	if !ok {
		result.errorf("Section %d: Invalid section format", number)
		return
	}

	if id, ok := section["id"].(string); !ok || id == "" {
		result.errorf("Section %d: Missing or invalid id", number)
	} else if first, dup := seen[id]; dup {
		result.warnf("Section %d: Duplicate id %q (also used by section %d)", number, id, first)
	} else {
		seen[id] = number
	}

	if value, ok := section["type"].(string); !ok || value == "" {
		result.errorf("Section %d: Missing or invalid type", number)
	} else if kind, known := models.ParseSectionType(value); !known {
		result.errorf("Section %d: Unknown section type %q", number, value)
	} else {
		section["type"] = string(kind)
	}

	if _, ok := section["props"].(map[string]interface{}); !ok {
		result.errorf("Section %d: Missing or invalid props", number)
	}

	if !isNumber(section["order"]) {
		result.errorf("Section %d: Missing or invalid order", number)
	}
}

func isNumber(value interface{}) bool {
	switch value.(type) {
	case json.Number, float64, float32, int, int64, int32, uint64, uint32, uint:
		return true
	}
	return false
}

func decodeTree(root map[string]interface{}) (Document, error) {
	encoded, err := json.Marshal(root)
	if err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return Document{}, err
	}
	if doc.Sections == nil {
		doc.Sections = []models.Section{}
	}
	return doc, nil
}
