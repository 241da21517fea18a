package models

// SectionProps is the editable property set of a section. Each section type
// has its own concrete variant; an empty field means "use the type default".
type SectionProps interface {
	// Supports reports whether the variant belongs to the given section type.
	Supports(sectionType SectionType) bool
	// Clone returns a deep copy that shares no slices with the receiver.
	Clone() SectionProps
	// Colors returns the configured background and text colors.
	Colors() (background, text string)
}

type NavLink struct {
	Name string `json:"name"`
	Href string `json:"href"`
}

type FooterLinkGroup struct {
	Title string    `json:"title"`
	Links []NavLink `json:"links"`
}

type HeroProps struct {
	Title           string `json:"title,omitempty"`
	Subtitle        string `json:"subtitle,omitempty"`
	Description     string `json:"description,omitempty"`
	ImageURL        string `json:"imageUrl,omitempty"`
	ButtonText      string `json:"buttonText,omitempty"`
	ButtonURL       string `json:"buttonUrl,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty"`
}

func (p HeroProps) Supports(sectionType SectionType) bool { return sectionType == SectionHero }
func (p HeroProps) Clone() SectionProps                   { return p }
func (p HeroProps) Colors() (string, string)              { return p.BackgroundColor, p.TextColor }

type HeaderProps struct {
	Title           string    `json:"title,omitempty"`
	NavLinks        []NavLink `json:"navLinks,omitempty"`
	BackgroundColor string    `json:"backgroundColor,omitempty"`
	TextColor       string    `json:"textColor,omitempty"`
}

func (p HeaderProps) Supports(sectionType SectionType) bool { return sectionType == SectionHeader }
func (p HeaderProps) Colors() (string, string)              { return p.BackgroundColor, p.TextColor }

func (p HeaderProps) Clone() SectionProps {
	p.NavLinks = cloneLinks(p.NavLinks)
	return p
}

type ContentProps struct {
	Title           string `json:"title,omitempty"`
	Description     string `json:"description,omitempty"`
	Content         string `json:"content,omitempty"`
	ImageURL        string `json:"imageUrl,omitempty"`
	BackgroundColor string `json:"backgroundColor,omitempty"`
	TextColor       string `json:"textColor,omitempty"`
}

func (p ContentProps) Supports(sectionType SectionType) bool { return sectionType == SectionContent }
func (p ContentProps) Clone() SectionProps                   { return p }
func (p ContentProps) Colors() (string, string)              { return p.BackgroundColor, p.TextColor }

type FooterProps struct {
	Title             string            `json:"title,omitempty"`
	Description       string            `json:"description,omitempty"`
	FooterDescription string            `json:"footerDescription,omitempty"`
	Copyright         string            `json:"copyright,omitempty"`
	FooterLinks       []FooterLinkGroup `json:"footerLinks,omitempty"`
	BackgroundColor   string            `json:"backgroundColor,omitempty"`
	TextColor         string            `json:"textColor,omitempty"`
}

func (p FooterProps) Supports(sectionType SectionType) bool { return sectionType == SectionFooter }
func (p FooterProps) Colors() (string, string)              { return p.BackgroundColor, p.TextColor }

func (p FooterProps) Clone() SectionProps {
	if p.FooterLinks != nil {
		groups := make([]FooterLinkGroup, len(p.FooterLinks))
		for i, group := range p.FooterLinks {
			groups[i] = FooterLinkGroup{Title: group.Title, Links: cloneLinks(group.Links)}
		}
		p.FooterLinks = groups
	}
	return p
}

// GenericProps backs the section types without a dedicated renderer
// (gallery, contact, testimonial).
type GenericProps struct {
	Title           string   `json:"title,omitempty"`
	Subtitle        string   `json:"subtitle,omitempty"`
	Description     string   `json:"description,omitempty"`
	Content         string   `json:"content,omitempty"`
	ImageURL        string   `json:"imageUrl,omitempty"`
	Images          []string `json:"images,omitempty"`
	ButtonText      string   `json:"buttonText,omitempty"`
	ButtonURL       string   `json:"buttonUrl,omitempty"`
	BackgroundColor string   `json:"backgroundColor,omitempty"`
	TextColor       string   `json:"textColor,omitempty"`
}

func (p GenericProps) Supports(sectionType SectionType) bool {
	switch sectionType {
	case SectionGallery, SectionContact, SectionTestimonial:
		return true
	}
	return false
}

func (p GenericProps) Colors() (string, string) { return p.BackgroundColor, p.TextColor }

func (p GenericProps) Clone() SectionProps {
	if p.Images != nil {
		p.Images = append([]string(nil), p.Images...)
	}
	return p
}

// NewProps returns the empty variant for sectionType, or nil for unknown types.
func NewProps(sectionType SectionType) SectionProps {
	target := newPropsTarget(sectionType)
	if target == nil {
		return nil
	}
	return derefProps(target, sectionType)
}

func newPropsTarget(sectionType SectionType) interface{} {
	switch sectionType {
	case SectionHero:
		return &HeroProps{}
	case SectionHeader:
		return &HeaderProps{}
	case SectionContent:
		return &ContentProps{}
	case SectionFooter:
		return &FooterProps{}
	case SectionGallery, SectionContact, SectionTestimonial:
		return &GenericProps{}
	}
	return nil
}

func derefProps(target interface{}, sectionType SectionType) SectionProps {
	switch p := target.(type) {
	case *HeroProps:
		return *p
	case *HeaderProps:
		return *p
	case *ContentProps:
		return *p
	case *FooterProps:
		return *p
	case *GenericProps:
		return *p
	}
	return NewProps(sectionType)
}

func cloneLinks(links []NavLink) []NavLink {
	if links == nil {
		return nil
	}
	return append([]NavLink(nil), links...)
}
