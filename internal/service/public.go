package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"valour-site/internal/cache"
	"valour-site/internal/data"
	"valour-site/internal/logger"
)

const publicCacheTTL = 5 * time.Minute

// PublicDeps are the collaborators of PublicService.
type PublicDeps struct {
	Pages        PageServicer
	Settings     *SettingsService
	Instructions *InstructionsService
	Calendar     *CalendarService

	Events    Gateway[data.Event]
	Sponsors  Gateway[data.Sponsor]
	Photos    Gateway[data.Photo]
	Press     Gateway[data.PressArticle]
	Routes    Gateway[data.Route]
	Documents Gateway[data.Document]

	EventPage         Gateway[data.EventPage]
	BlueberryMountain Gateway[data.BlueberryMountainPage]
	MPFBC             Gateway[data.MPFBCPage]
	VisionValourRide  Gateway[data.VisionValourRidePage]
	PrivacyPolicy     Gateway[data.PrivacyPolicy]

	Cache cache.Store
	Log   logger.Logger
}

// PublicService assembles what the public pages show. Reads of independent
// sources run concurrently.
type PublicService struct {
	PublicDeps
}

// NewPublicService creates a PublicService.
func NewPublicService(deps PublicDeps) *PublicService {
	return &PublicService{PublicDeps: deps}
}

// HomeView is the home page content.
type HomeView struct {
	Page     *data.Page
	Settings SiteConfig
}

// Home loads the home page text and the settings it embeds.
func (s *PublicService) Home(ctx context.Context) (HomeView, error) {
	var v HomeView
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.Pages.ViewPage(gctx, "home")
		v.Page = p
		return err
	})
	g.Go(func() error {
		cfg, err := s.Settings.Load(gctx)
		v.Settings = cfg
		return err
	})
	if err := g.Wait(); err != nil {
		s.Log.Error(err, "Failed to load home page")
		return HomeView{}, err
	}
	return v, nil
}

// RegisterView is the register page content.
type RegisterView struct {
	Instructions *Instructions
	Settings     SiteConfig
}

// Register loads the active instructions and the registration embeds.
func (s *PublicService) Register(ctx context.Context) (RegisterView, error) {
	var v RegisterView
	var active *data.RegistrationInstructions
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		active, err = s.Instructions.Active(gctx)
		return err
	})
	g.Go(func() error {
		cfg, err := s.Settings.Load(gctx)
		v.Settings = cfg
		return err
	})
	if err := g.Wait(); err != nil {
		s.Log.Error(err, "Failed to load register page")
		return RegisterView{}, err
	}
	rendered, err := RenderInstructions(active)
	if err != nil {
		return RegisterView{}, err
	}
	v.Instructions = rendered
	return v, nil
}

// About returns the About page sections keyed by slug.
func (s *PublicService) About(ctx context.Context) (map[string]*data.Page, error) {
	return s.Pages.ViewPages(ctx, AboutSlugs...)
}

// Events lists published events by start date.
func (s *PublicService) Events(ctx context.Context) ([]data.Event, error) {
	return cache.Fetch(ctx, s.Cache, PublicCachePrefix+"events", publicCacheTTL, func(ctx context.Context) ([]data.Event, error) {
		return s.PublicDeps.Events.Select(ctx, data.Filter{data.Eq("is_published", true)}, data.Asc("start_date"), data.Asc("id"))
	})
}

// SponsorGroup is one sponsor category with its members in display order.
type SponsorGroup struct {
	Category string
	Title    string
	Sponsors []data.Sponsor
}

var sponsorTitles = map[string]string{
	"operations":  "Operations",
	"insurance":   "Insurance",
	"marketing":   "Marketing",
	"chase_truck": "Chase Truck / Rider Support",
	"meals":       "Meal and Coffee Break",
	"swag":        "Swag",
}

// SponsorCategoryTitle returns the heading for a sponsor category.
func SponsorCategoryTitle(category string) string {
	if t, ok := sponsorTitles[strings.ToLower(category)]; ok {
		return t
	}
	if category == "" {
		return ""
	}
	return strings.ToUpper(category[:1]) + category[1:]
}

// Sponsors lists active sponsors grouped by category. Known categories come
// first in their fixed order, the rest alphabetically.
func (s *PublicService) Sponsors(ctx context.Context) ([]SponsorGroup, error) {
	return cache.Fetch(ctx, s.Cache, PublicCachePrefix+"sponsors", publicCacheTTL, func(ctx context.Context) ([]SponsorGroup, error) {
		rows, err := s.PublicDeps.Sponsors.Select(ctx, data.Filter{data.Eq("is_active", true)},
			data.Asc("display_order"), data.Asc("name"), data.Asc("id"))
		if err != nil {
			return nil, err
		}
		return GroupSponsors(rows), nil
	})
}

// GroupSponsors groups rows by category, keeping their order within each group.
func GroupSponsors(rows []data.Sponsor) []SponsorGroup {
	groups := map[string]*SponsorGroup{}
	var keys []string
	for _, sp := range rows {
		cat := strings.ToLower(sp.Category)
		if cat == "" {
			cat = "operations"
		}
		g, ok := groups[cat]
		if !ok {
			g = &SponsorGroup{Category: cat, Title: SponsorCategoryTitle(cat)}
			groups[cat] = g
			keys = append(keys, cat)
		}
		g.Sponsors = append(g.Sponsors, sp)
	}
	rank := func(c string) int {
		for i, k := range SponsorCategories {
			if k == c {
				return i
			}
		}
		return len(SponsorCategories)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	out := make([]SponsorGroup, len(keys))
	for i, k := range keys {
		out[i] = *groups[k]
	}
	return out
}

// Photos lists published photos, optionally in one category, along with
// every category that has published photos.
func (s *PublicService) Photos(ctx context.Context, category string) ([]data.Photo, []string, error) {
	filter := data.Filter{data.Eq("is_published", true)}
	if category != "" {
		filter = append(filter, data.Eq("category", category))
	}
	var photos, all []data.Photo
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		photos, err = s.PublicDeps.Photos.Select(gctx, filter, data.Asc("display_order"), data.Desc("event_date"), data.Asc("id"))
		return err
	})
	g.Go(func() error {
		var err error
		all, err = s.PublicDeps.Photos.Select(gctx, data.Filter{data.Eq("is_published", true)}, data.Asc("category"), data.Asc("id"))
		return err
	})
	if err := g.Wait(); err != nil {
		s.Log.Error(err, "Failed to load photos")
		return nil, nil, err
	}
	cats := make([]string, 0, len(all))
	for _, p := range all {
		cats = append(cats, p.Category)
	}
	return photos, distinct(cats), nil
}

// Documents lists public documents, optionally in one category, along with
// every category that has public documents.
func (s *PublicService) Documents(ctx context.Context, category string) ([]data.Document, []string, error) {
	filter := data.Filter{data.Eq("is_public", true)}
	if category != "" {
		filter = append(filter, data.Eq("category", category))
	}
	var docs, all []data.Document
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = s.PublicDeps.Documents.Select(gctx, filter, data.Desc("created_at"), data.Asc("title"), data.Asc("id"))
		return err
	})
	g.Go(func() error {
		var err error
		all, err = s.PublicDeps.Documents.Select(gctx, data.Filter{data.Eq("is_public", true)}, data.Asc("category"), data.Asc("id"))
		return err
	})
	if err := g.Wait(); err != nil {
		s.Log.Error(err, "Failed to load documents")
		return nil, nil, err
	}
	cats := make([]string, 0, len(all))
	for _, d := range all {
		cats = append(cats, d.Category)
	}
	return docs, distinct(cats), nil
}

func distinct(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Press lists published press articles.
func (s *PublicService) Press(ctx context.Context) ([]data.PressArticle, error) {
	return cache.Fetch(ctx, s.Cache, PublicCachePrefix+"press", publicCacheTTL, func(ctx context.Context) ([]data.PressArticle, error) {
		return s.PublicDeps.Press.Select(ctx, data.Filter{data.Eq("is_published", true)},
			data.Asc("display_order"), data.Desc("published_date"), data.Asc("id"))
	})
}

// Routes lists active routes.
func (s *PublicService) Routes(ctx context.Context) ([]data.Route, error) {
	return cache.Fetch(ctx, s.Cache, PublicCachePrefix+"routes", publicCacheTTL, func(ctx context.Context) ([]data.Route, error) {
		return s.PublicDeps.Routes.Select(ctx, data.Filter{data.Eq("is_active", true)},
			data.Asc("display_order"), data.Asc("name"), data.Asc("id"))
	})
}

// Calendar returns the ride schedule.
func (s *PublicService) Calendar(ctx context.Context) ([]DaySchedule, error) {
	return cache.Fetch(ctx, s.Cache, PublicCachePrefix+"calendar", publicCacheTTL, s.PublicDeps.Calendar.Schedule)
}

// SiteConfig returns the settings used by the layout and embed pages.
func (s *PublicService) SiteConfig(ctx context.Context) (SiteConfig, error) {
	return s.Settings.Load(ctx)
}

var singletonOrder = []data.Order{data.Asc("created_at"), data.Asc("id")}

// EventPage returns "the event" page, or nil.
func (s *PublicService) EventPage(ctx context.Context) (*data.EventPage, error) {
	return s.PublicDeps.EventPage.First(ctx, nil, singletonOrder...)
}

// BlueberryMountainPage returns the memorial walk page, or nil.
func (s *PublicService) BlueberryMountainPage(ctx context.Context) (*data.BlueberryMountainPage, error) {
	return s.PublicDeps.BlueberryMountain.First(ctx, nil, singletonOrder...)
}

// MPFBCPage returns the beneficiary page, or nil.
func (s *PublicService) MPFBCPage(ctx context.Context) (*data.MPFBCPage, error) {
	return s.PublicDeps.MPFBC.First(ctx, nil, singletonOrder...)
}

// VisionValourRidePage returns the ride overview page, or nil.
func (s *PublicService) VisionValourRidePage(ctx context.Context) (*data.VisionValourRidePage, error) {
	return s.PublicDeps.VisionValourRide.First(ctx, nil, singletonOrder...)
}

// PrivacyPolicy returns the privacy policy, or nil.
func (s *PublicService) PrivacyPolicy(ctx context.Context) (*data.PrivacyPolicy, error) {
	return s.PublicDeps.PrivacyPolicy.First(ctx, nil, singletonOrder...)
}
