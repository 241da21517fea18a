package sections

import "page-composer-backend/internal/models"

// FooterTemplate is the closing block with copyright and link groups.
func FooterTemplate() models.SectionTemplate {
	return models.SectionTemplate{
		ID:          "footer-1",
		Name:        "Footer",
		Type:        models.SectionFooter,
		Description: "Clean footer with copyright and links",
		Preview:     "🔗",
		DefaultProps: models.FooterProps{
			Title:           "Your Company",
			Description:     "© 2024 Your Company. All rights reserved.",
			BackgroundColor: "#1f2937",
			TextColor:       "#ffffff",
		},
	}
}

// RegisterFooter registers the footer template.
func RegisterFooter(catalog *Catalog) {
	catalog.MustRegister(FooterTemplate())
}
