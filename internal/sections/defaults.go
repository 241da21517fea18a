package sections

import (
	"page-composer-backend/internal/constants"
	"page-composer-backend/internal/models"
)

// DefaultCatalog returns a catalog pre-populated with the built-in templates.
func DefaultCatalog() *Catalog {
	catalog := NewCatalog()
	RegisterDefaults(catalog)
	return catalog
}

// RegisterDefaults adds the built-in templates to the provided catalog.
func RegisterDefaults(catalog *Catalog) {
	if catalog == nil {
		return
	}

	RegisterHero(catalog)
	RegisterHeader(catalog)
	RegisterContent(catalog)
	RegisterFooter(catalog)
}

// ResolveColors returns the effective background and text colors of a
// section, falling back to the type defaults for unset values.
func ResolveColors(section models.Section) (background, text string) {
	if section.Props != nil {
		background, text = section.Props.Colors()
	}

	fallbackBackground, fallbackText := defaultColors(section.Type)
	if background == "" {
		background = fallbackBackground
	}
	if text == "" {
		text = fallbackText
	}
	return background, text
}

func defaultColors(sectionType models.SectionType) (string, string) {
	switch sectionType {
	case models.SectionHero:
		return constants.HeroBackgroundColor, constants.HeroTextColor
	case models.SectionHeader:
		return constants.HeaderBackgroundColor, constants.HeaderTextColor
	case models.SectionFooter:
		return constants.FooterBackgroundColor, constants.FooterTextColor
	default:
		return constants.ContentBackgroundColor, constants.ContentTextColor
	}
}
