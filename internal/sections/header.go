package sections

import "page-composer-backend/internal/models"

func HeaderTemplate() models.SectionTemplate {
	return models.SectionTemplate{
		ID:          "header-1",
		Name:        "Navigation Header",
		Type:        models.SectionHeader,
		Description: "Clean navigation header with logo and menu items",
		Preview:     "📄",
		DefaultProps: models.HeaderProps{
			Title:           "Your Brand",
			BackgroundColor: "#ffffff",
			TextColor:       "#1f2937",
		},
	}
}

func RegisterHeader(catalog *Catalog) {
	catalog.MustRegister(HeaderTemplate())
}
