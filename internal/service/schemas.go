package service

import (
	"strings"

	"valour-site/internal/data"
)

// Sponsor categories in display order.
var SponsorCategories = []string{"operations", "insurance", "marketing", "chase_truck", "meals", "swag"}

// EventTypes lists the allowed events.event_type values.
var EventTypes = []string{
	data.EventTypeRideDay,
	data.EventTypeLegionEvent,
	data.EventTypeLuncheon,
	data.EventTypeDinner,
	data.EventTypeSocial,
	data.EventTypeOther,
}

// PageSchema edits the slug-addressed content pages. Pages are seeded, so
// they can be edited but not created or removed.
func PageSchema() Schema[data.Page] {
	return Schema[data.Page]{
		Name:     "pages",
		Title:    "Pages",
		Singular: "page",
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: KindText, Required: true},
			{Name: "content", Label: "Content", Kind: KindRichText},
		},
		ListColumns: []string{"slug", "title", "updated_at"},
		Order:       []data.Order{data.Asc("slug"), data.Asc("id")},
		Label:       func(p *data.Page) string { return p.Title },
	}
}

// EventSchema edits the public events list.
func EventSchema() Schema[data.Event] {
	return Schema[data.Event]{
		Name:     "events",
		Title:    "Events",
		Singular: "event",
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: KindText, Required: true},
			{Name: "description", Label: "Description", Kind: KindTextarea},
			{Name: "start_date", Label: "Starts", Kind: KindDateTime, Required: true},
			{Name: "end_date", Label: "Ends", Kind: KindDateTime},
			{Name: "location", Label: "Location", Kind: KindText},
			{Name: "registration_url", Label: "Registration link", Kind: KindURL},
			{Name: "event_type", Label: "Type", Kind: KindSelect, Options: EventTypes, Required: true},
			{Name: "day_number", Label: "Ride day", Kind: KindNumber, Help: "Only for ride days"},
			{Name: "is_published", Label: "Published", Kind: KindCheckbox},
		},
		ListColumns: []string{"title", "start_date", "event_type", "is_published"},
		Order:       []data.Order{data.Asc("start_date"), data.Asc("id")},
		Creatable:   true,
		Deletable:   true,
		New: func() *data.Event {
			return &data.Event{EventType: data.EventTypeOther, IsPublished: true}
		},
		Validate: func(e *data.Event, res *Result) {
			if e.EndDate != nil && e.EndDate.Before(e.StartDate) {
				res.Add("end_date", "must not be before the start")
			}
		},
		Label: func(e *data.Event) string { return e.Title },
	}
}

// SponsorSchema edits sponsors.
func SponsorSchema() Schema[data.Sponsor] {
	return Schema[data.Sponsor]{
		Name:     "sponsors",
		Title:    "Sponsors",
		Singular: "sponsor",
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "logo_url", Label: "Logo", Kind: KindImage},
			{Name: "website_url", Label: "Website", Kind: KindURL},
			{Name: "description", Label: "Description", Kind: KindTextarea},
			{Name: "category", Label: "Category", Kind: KindSelect, Options: SponsorCategories, Required: true},
			{Name: "display_order", Label: "Display order", Kind: KindNumber},
			{Name: "is_active", Label: "Active", Kind: KindCheckbox},
		},
		ListColumns: []string{"name", "category", "display_order", "is_active"},
		Order:       []data.Order{data.Asc("display_order"), data.Asc("name"), data.Asc("id")},
		Creatable:   true,
		Deletable:   true,
		New:         func() *data.Sponsor { return &data.Sponsor{Category: "operations", IsActive: true} },
		Normalize:   func(s *data.Sponsor) { s.Category = strings.ToLower(s.Category) },
		Label:       func(s *data.Sponsor) string { return s.Name },
	}
}

// PhotoSchema edits the gallery.
func PhotoSchema() Schema[data.Photo] {
	return Schema[data.Photo]{
		Name:     "photos",
		Title:    "Photos",
		Singular: "photo",
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: KindText, Required: true},
			{Name: "description", Label: "Description", Kind: KindTextarea},
			{Name: "image_url", Label: "Image", Kind: KindImage, Required: true},
			{Name: "photographer_name", Label: "Photographer", Kind: KindText},
			{Name: "event_date", Label: "Taken on", Kind: KindDate},
			{Name: "category", Label: "Category", Kind: KindText},
			{Name: "is_featured", Label: "Featured", Kind: KindCheckbox},
			{Name: "display_order", Label: "Display order", Kind: KindNumber},
			{Name: "is_published", Label: "Published", Kind: KindCheckbox},
		},
		ListColumns: []string{"title", "category", "event_date", "is_published"},
		Order:       []data.Order{data.Asc("display_order"), data.Desc("event_date"), data.Asc("id")},
		Creatable:   true,
		Deletable:   true,
		New:         func() *data.Photo { return &data.Photo{Category: "general", IsPublished: true} },
		Label:       func(p *data.Photo) string { return p.Title },
	}
}

// DocumentSchema edits the document repository.
func DocumentSchema() Schema[data.Document] {
	return Schema[data.Document]{
		Name:     "documents",
		Title:    "Documents",
		Singular: "document",
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: KindText, Required: true},
			{Name: "description", Label: "Description", Kind: KindTextarea},
			{Name: "file_url", Label: "File", Kind: KindFile, Required: true},
			{Name: "file_name", Label: "File name", Kind: KindText},
			{Name: "file_size", Label: "Size (bytes)", Kind: KindNumber},
			{Name: "mime_type", Label: "Type", Kind: KindText},
			{Name: "category", Label: "Category", Kind: KindText},
			{Name: "is_public", Label: "Public", Kind: KindCheckbox},
		},
		ListColumns: []string{"title", "category", "file_name", "is_public"},
		Order:       []data.Order{data.Desc("created_at"), data.Asc("title"), data.Asc("id")},
		Creatable:   true,
		Deletable:   true,
		New:         func() *data.Document { return &data.Document{Category: "general", IsPublic: true} },
		Label:       func(d *data.Document) string { return d.Title },
	}
}

// PressSchema edits press coverage.
func PressSchema() Schema[data.PressArticle] {
	return Schema[data.PressArticle]{
		Name:     "press",
		Title:    "Press articles",
		Singular: "press article",
		Fields: []Field{
			{Name: "title", Label: "Headline", Kind: KindText, Required: true},
			{Name: "description", Label: "Summary", Kind: KindTextarea},
			{Name: "url", Label: "Article link", Kind: KindURL, Required: true},
			{Name: "publication", Label: "Publication", Kind: KindText},
			{Name: "published_date", Label: "Published on", Kind: KindDate},
			{Name: "image_url", Label: "Image", Kind: KindImage},
			{Name: "display_order", Label: "Display order", Kind: KindNumber},
			{Name: "is_published", Label: "Published", Kind: KindCheckbox},
		},
		ListColumns: []string{"title", "publication", "published_date", "is_published"},
		Order:       []data.Order{data.Asc("display_order"), data.Desc("published_date"), data.Asc("id")},
		Creatable:   true,
		Deletable:   true,
		New:         func() *data.PressArticle { return &data.PressArticle{IsPublished: true} },
		Label:       func(a *data.PressArticle) string { return a.Title },
	}
}

// RouteSchema edits ride routes.
func RouteSchema() Schema[data.Route] {
	return Schema[data.Route]{
		Name:     "routes",
		Title:    "Routes",
		Singular: "route",
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "description", Label: "Description", Kind: KindTextarea},
			{Name: "duration_days", Label: "Days", Kind: KindNumber},
			{Name: "provinces", Label: "Provinces", Kind: KindText},
			{Name: "map_embed_url", Label: "Map embed link", Kind: KindURL},
			{Name: "itinerary_content", Label: "Itinerary", Kind: KindRichText},
			{Name: "is_active", Label: "Active", Kind: KindCheckbox},
			{Name: "display_order", Label: "Display order", Kind: KindNumber},
		},
		ListColumns: []string{"name", "duration_days", "provinces", "is_active"},
		Order:       []data.Order{data.Asc("display_order"), data.Asc("name"), data.Asc("id")},
		Creatable:   true,
		Deletable:   true,
		New:         func() *data.Route { return &data.Route{IsActive: true} },
		Label:       func(r *data.Route) string { return r.Name },
	}
}

// Feature pages are seeded singletons edited in place.

func EventPageSchema() Schema[data.EventPage] {
	return Schema[data.EventPage]{
		Name:     "event-page",
		Title:    "The Event page",
		Singular: "event page",
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: KindText, Required: true},
			{Name: "content", Label: "Content", Kind: KindRichText},
			{Name: "key_dates", Label: "Key dates", Kind: KindRichText},
		},
		Order: []data.Order{data.Asc("created_at"), data.Asc("id")},
		Label: func(p *data.EventPage) string { return p.Title },
	}
}

func BlueberryMountainSchema() Schema[data.BlueberryMountainPage] {
	return Schema[data.BlueberryMountainPage]{
		Name:     "blueberry-mountain",
		Title:    "Blueberry Mountain page",
		Singular: "Blueberry Mountain page",
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: KindText, Required: true},
			{Name: "hero_image_url", Label: "Hero image", Kind: KindImage},
			{Name: "content", Label: "Content", Kind: KindRichText},
			{Name: "walk_details", Label: "Walk details", Kind: KindRichText},
			{Name: "col_stone_memorial_info", Label: "Col. Stone memorial", Kind: KindRichText},
			{Name: "brochure_url", Label: "Brochure", Kind: KindFile},
		},
		Order: []data.Order{data.Asc("created_at"), data.Asc("id")},
		Label: func(p *data.BlueberryMountainPage) string { return p.Title },
	}
}

func MPFBCSchema() Schema[data.MPFBCPage] {
	return Schema[data.MPFBCPage]{
		Name:     "mpfbc",
		Title:    "MPFBC page",
		Singular: "MPFBC page",
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: KindText, Required: true},
			{Name: "subtitle", Label: "Subtitle", Kind: KindText},
			{Name: "hero_image_url", Label: "Hero image", Kind: KindImage},
			{Name: "website_url", Label: "Website", Kind: KindURL},
			{Name: "facebook_url", Label: "Facebook", Kind: KindURL},
			{Name: "content", Label: "Content", Kind: KindRichText},
		},
		Order:    []data.Order{data.Asc("created_at"), data.Asc("id")},
		Validate: validateURLs[data.MPFBCPage]("website_url", "facebook_url"),
		Label:    func(p *data.MPFBCPage) string { return p.Title },
	}
}

func VisionValourRideSchema() Schema[data.VisionValourRidePage] {
	return Schema[data.VisionValourRidePage]{
		Name:     "vision-valour-ride",
		Title:    "Vision & Valour Ride page",
		Singular: "ride page",
		Fields: []Field{
			{Name: "title", Label: "Title", Kind: KindText, Required: true},
			{Name: "hero_image_url", Label: "Hero image", Kind: KindImage},
			{Name: "content", Label: "Content", Kind: KindRichText},
		},
		Order: []data.Order{data.Asc("created_at"), data.Asc("id")},
		Label: func(p *data.VisionValourRidePage) string { return p.Title },
	}
}

func PrivacyPolicySchema() Schema[data.PrivacyPolicy] {
	return Schema[data.PrivacyPolicy]{
		Name:     "privacy-policy",
		Title:    "Privacy policy",
		Singular: "privacy policy",
		Fields: []Field{
			{Name: "content", Label: "Policy", Kind: KindRichText},
		},
		Order: []data.Order{data.Asc("created_at"), data.Asc("id")},
		Label: func(*data.PrivacyPolicy) string { return "Privacy policy" },
	}
}

// validateURLs checks optional link fields the model does not tag.
func validateURLs[T any](columns ...string) func(*T, *Result) {
	return func(v *T, res *Result) {
		for col, val := range Encode(fieldsNamed(columns), v) {
			if val == "" {
				continue
			}
			if err := validate.Var(val, "url"); err != nil {
				res.Add(col, "must be a valid URL")
			}
		}
	}
}

func fieldsNamed(names []string) []Field {
	out := make([]Field, len(names))
	for i, n := range names {
		out[i] = Field{Name: n, Kind: KindText}
	}
	return out
}
