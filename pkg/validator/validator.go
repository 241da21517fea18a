package validator

import (
	"html"
	"mime"
	"regexp"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
)

var (
	initOnce  sync.Once
	validate  *validator.Validate
	sanitizer *bluemonday.Policy

	slugPattern     = regexp.MustCompile(`^[a-z0-9-]+$`)
	spacePattern    = regexp.MustCompile(`\s+`)
	filenamePattern = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
)

// Init builds the shared validator and registers the custom tags with gin's
// binding engine. It is safe to call more than once.
func Init() {
	initOnce.Do(func() {
		validate = validator.New()
		sanitizer = bluemonday.StrictPolicy()

		registerCustomValidations(validate)

		if engine, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerCustomValidations(engine)
		}
	})
}

func registerCustomValidations(v *validator.Validate) {
	v.RegisterValidation("slug", validateSlug)
	v.RegisterValidation("no_html", validateNoHTML)
}

func Validate(s interface{}) error {
	Init()
	return validate.Struct(s)
}

// SanitizeString strips every tag from s.
func SanitizeString(s string) string {
	Init()
	return sanitizer.Sanitize(s)
}

// CleanText strips markup and collapses whitespace, returning plain text.
func CleanText(s string) string {
	return strings.TrimSpace(NormalizeSpaces(html.UnescapeString(SanitizeString(s))))
}

func validateSlug(fl validator.FieldLevel) bool {
	return slugPattern.MatchString(fl.Field().String())
}

func validateNoHTML(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return !strings.Contains(value, "<") && !strings.Contains(value, ">")
}

func NormalizeSpaces(s string) string {
	return spacePattern.ReplaceAllString(s, " ")
}

func SanitizeFilename(filename string) string {
	return filenamePattern.ReplaceAllString(filename, "_")
}

func ValidateFileSize(size int64, maxSize int64) bool {
	return size > 0 && size <= maxSize
}

// ValidateContentType reports whether contentType matches one of
// allowedMimeTypes. Entries ending in "/*" match any subtype.
func ValidateContentType(contentType string, allowedMimeTypes []string) bool {
	if contentType == "" || len(allowedMimeTypes) == 0 {
		return false
	}

	mimeType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))

	for _, allowed := range allowedMimeTypes {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if mimeType == allowed {
			return true
		}
		if strings.HasSuffix(allowed, "/*") {
			prefix := strings.TrimSuffix(allowed, "/*")
			if strings.HasPrefix(mimeType, prefix+"/") {
				return true
			}
		}
	}
	return false
}

// ValidateDocumentContentType accepts the formats a page export can be uploaded in.
func ValidateDocumentContentType(contentType string) bool {
	allowedMimeTypes := []string{
		"application/json",
		"text/json",
		"application/yaml",
		"application/x-yaml",
		"text/yaml",
		"text/x-yaml",
		"text/plain",
		"application/octet-stream",
	}
	return ValidateContentType(contentType, allowedMimeTypes)
}
