package sections

import "page-composer-backend/internal/models"

// ContentTemplate is a plain title and description block.
func ContentTemplate() models.SectionTemplate {
	return models.SectionTemplate{
		ID:          "content-1",
		Name:        "Content Block",
		Type:        models.SectionContent,
		Description: "Simple content section with title and description",
		Preview:     "📝",
		DefaultProps: models.ContentProps{
			Title:           "About Us",
			Description:     "Tell your story and connect with your audience through compelling content.",
			BackgroundColor: "#ffffff",
			TextColor:       "#374151",
		},
	}
}

func RegisterContent(catalog *Catalog) {
	catalog.MustRegister(ContentTemplate())
}
