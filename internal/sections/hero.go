package sections

import "page-composer-backend/internal/models"

// HeroTemplate is the bold landing block with a call to action.
func HeroTemplate() models.SectionTemplate {
	return models.SectionTemplate{
		ID:          "hero-1",
		Name:        "Hero Section",
		Type:        models.SectionHero,
		Description: "A bold hero section with title, subtitle, and CTA button",
		Preview:     "🎯",
		DefaultProps: models.HeroProps{
			Title:           "Welcome to Our Website",
			Subtitle:        "Create amazing experiences with our platform",
			ButtonText:      "Get Started",
			ButtonURL:       "#",
			BackgroundColor: "#1e40af",
			TextColor:       "#ffffff",
		},
	}
}

// RegisterHero registers the hero template.
func RegisterHero(catalog *Catalog) {
	catalog.MustRegister(HeroTemplate())
}
