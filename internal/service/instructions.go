package service

import (
	"context"
	"html/template"
	"strings"
	"time"

	"valour-site/internal/cache"
	"valour-site/internal/data"
	"valour-site/internal/logger"
	"valour-site/internal/richtext"
)

// InstructionsForm is the editable registration instruction block.
type InstructionsForm struct {
	Title        string   `form:"title" validate:"required"`
	Items        []string `form:"instructions" validate:"min=1"`
	NoteText     string   `form:"note_text"`
	ContactEmail string   `form:"contact_email" validate:"omitempty,email"`
}

// Instructions is the rendered block shown on the register page.
type Instructions struct {
	Title        string
	Items        []template.HTML
	NoteText     template.HTML
	ContactEmail string
}

// InstructionsService manages the single active registration instruction record.
type InstructionsService struct {
	table Gateway[data.RegistrationInstructions]
	cache cache.Store
	log   logger.Logger
	now   func() time.Time
}

// NewInstructionsService creates an InstructionsService.
func NewInstructionsService(table Gateway[data.RegistrationInstructions], c cache.Store, log logger.Logger) *InstructionsService {
	return &InstructionsService{table: table, cache: c, log: log, now: time.Now}
}

// Active returns the active record, or nil.
func (s *InstructionsService) Active(ctx context.Context) (*data.RegistrationInstructions, error) {
	return s.table.First(ctx, data.Filter{data.Eq("is_active", true)}, data.Desc("updated_at"), data.Asc("id"))
}

// Form seeds the admin form from the active record.
func (s *InstructionsService) Form(ctx context.Context) (InstructionsForm, error) {
	active, err := s.Active(ctx)
	if err != nil || active == nil {
		return InstructionsForm{Title: "Registration Instructions"}, err
	}
	return InstructionsForm{
		Title:        active.Title,
		Items:        active.Instructions,
		NoteText:     active.NoteText,
		ContactEmail: active.ContactEmail,
	}, nil
}

// Save updates the active record, or inserts one when none exists. Blank
// instruction lines are dropped.
func (s *InstructionsService) Save(ctx context.Context, f InstructionsForm) (Result, error) {
	f.Title = strings.TrimSpace(f.Title)
	f.ContactEmail = strings.TrimSpace(f.ContactEmail)
	f.Items = splitLines(strings.Join(f.Items, "\n"))
	res := Check(&f)
	if !res.Valid {
		return res, nil
	}

	active, err := s.Active(ctx)
	if err != nil {
		s.log.Error(err, "Failed to load registration instructions")
		return res, err
	}
	if active == nil {
		err = s.table.Insert(ctx, &data.RegistrationInstructions{
			Title:        f.Title,
			Instructions: data.StringList(f.Items),
			NoteText:     f.NoteText,
			ContactEmail: f.ContactEmail,
			IsActive:     true,
		})
	} else {
		_, err = s.table.Update(ctx, data.ByID(active.ID), data.Patch{
			"title":         f.Title,
			"instructions":  data.StringList(f.Items),
			"note_text":     f.NoteText,
			"contact_email": f.ContactEmail,
			"updated_at":    s.now().UTC(),
		})
	}
	if err != nil {
		s.log.Error(err, "Failed to save registration instructions")
		return res, err
	}
	if s.cache != nil {
		if err := s.cache.DeletePrefix(ctx, PublicCachePrefix); err != nil {
			s.log.Error(err, "Failed to invalidate public cache")
		}
	}
	return res, nil
}

// RenderInstructions turns the record into display HTML. Each item may use inline
// markdown such as links and emphasis.
func RenderInstructions(r *data.RegistrationInstructions) (*Instructions, error) {
	if r == nil {
		return nil, nil
	}
	out := &Instructions{Title: r.Title, ContactEmail: r.ContactEmail}
	for _, item := range r.Instructions {
		html, err := richtext.InlineMarkdown(item)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, template.HTML(html))
	}
	if r.NoteText != "" {
		note, err := richtext.InlineMarkdown(r.NoteText)
		if err != nil {
			return nil, err
		}
		out.NoteText = template.HTML(note)
	}
	return out, nil
}
