package service

import (
	"context"
	"strings"
	"time"

	"valour-site/internal/cache"
	"valour-site/internal/data"
	"valour-site/internal/logger"
)

// SettingKey names a row of site_settings.
type SettingKey string

// Known setting keys. Any other key is rejected.
const (
	SettingRegistrationEmbed SettingKey = "zeffy_registration_embed"
	SettingFundraisingURL    SettingKey = "zeffy_fundraising_url"
	SettingDonationEmbed     SettingKey = "zeffy_fundraising_donation_embed"
	SettingLeaderboardEmbed  SettingKey = "zeffy_fundraising_leaderboard_embed"
	SettingNewsletterEmbed   SettingKey = "zeffy_newsletter_embed"
	SettingFacebookURL       SettingKey = "facebook_url"
	SettingInstagramURL      SettingKey = "instagram_url"
	SettingContactEmail      SettingKey = "contact_email"
)

// SettingKeys lists every known key in admin display order.
var SettingKeys = []SettingKey{
	SettingRegistrationEmbed,
	SettingFundraisingURL,
	SettingDonationEmbed,
	SettingLeaderboardEmbed,
	SettingNewsletterEmbed,
	SettingFacebookURL,
	SettingInstagramURL,
	SettingContactEmail,
}

var settingDescriptions = map[SettingKey]string{
	SettingRegistrationEmbed: "Zeffy embed URL for the registration form",
	SettingFundraisingURL:    "Zeffy peer-to-peer fundraising page",
	SettingDonationEmbed:     "Zeffy donation form embed URL",
	SettingLeaderboardEmbed:  "Zeffy fundraising leaderboard embed URL",
	SettingNewsletterEmbed:   "Zeffy newsletter sign-up embed URL",
	SettingFacebookURL:       "Facebook page shown in the footer",
	SettingInstagramURL:      "Instagram profile shown in the footer",
	SettingContactEmail:      "Public contact address",
}

// Description returns the help text for k.
func (k SettingKey) Description() string { return settingDescriptions[k] }

// Valid reports whether k is a known key.
func (k SettingKey) Valid() bool {
	_, ok := settingDescriptions[k]
	return ok
}

// SiteConfig holds every setting as a named field. An empty field means
// the setting is absent and the page falls back to its default.
type SiteConfig struct {
	RegistrationEmbed string `json:"registrationEmbed"`
	FundraisingURL    string `json:"fundraisingUrl"`
	DonationEmbed     string `json:"donationEmbed"`
	LeaderboardEmbed  string `json:"leaderboardEmbed"`
	NewsletterEmbed   string `json:"newsletterEmbed"`
	FacebookURL       string `json:"facebookUrl"`
	InstagramURL      string `json:"instagramUrl"`
	ContactEmail      string `json:"contactEmail"`
}

func (c *SiteConfig) field(k SettingKey) *string {
	switch k {
	case SettingRegistrationEmbed:
		return &c.RegistrationEmbed
	case SettingFundraisingURL:
		return &c.FundraisingURL
	case SettingDonationEmbed:
		return &c.DonationEmbed
	case SettingLeaderboardEmbed:
		return &c.LeaderboardEmbed
	case SettingNewsletterEmbed:
		return &c.NewsletterEmbed
	case SettingFacebookURL:
		return &c.FacebookURL
	case SettingInstagramURL:
		return &c.InstagramURL
	case SettingContactEmail:
		return &c.ContactEmail
	}
	return nil
}

// Get returns the value for k, or "".
func (c SiteConfig) Get(k SettingKey) string {
	if p := c.field(k); p != nil {
		return *p
	}
	return ""
}

const (
	settingsCacheKey = "settings"
	settingsCacheTTL = 5 * time.Minute
)

// SettingsService reads and writes site settings through a read-through cache.
type SettingsService struct {
	table Gateway[data.SiteSetting]
	cache cache.Store
	log   logger.Logger
	now   func() time.Time
}

// NewSettingsService creates a SettingsService. A nil cache disables caching.
func NewSettingsService(table Gateway[data.SiteSetting], c cache.Store, log logger.Logger) *SettingsService {
	return &SettingsService{table: table, cache: c, log: log, now: time.Now}
}

// Load returns the current settings. Unknown keys in the table are ignored.
func (s *SettingsService) Load(ctx context.Context) (SiteConfig, error) {
	return cache.Fetch(ctx, s.cache, settingsCacheKey, settingsCacheTTL, func(ctx context.Context) (SiteConfig, error) {
		rows, err := s.table.Select(ctx, nil, data.Asc("key"))
		if err != nil {
			s.log.Error(err, "Failed to load site settings")
			return SiteConfig{}, err
		}
		var cfg SiteConfig
		for _, row := range rows {
			if p := cfg.field(SettingKey(row.Key)); p != nil {
				*p = row.Value
			}
		}
		return cfg, nil
	})
}

// Set upserts one setting by key.
func (s *SettingsService) Set(ctx context.Context, key SettingKey, value string) (Result, error) {
	res := OK()
	if !key.Valid() {
		res.Add("key", "is not a known setting")
		return res, nil
	}
	value = strings.TrimSpace(value)
	if value != "" {
		tag := "url"
		if key == SettingContactEmail {
			tag = "email"
		}
		if err := validate.Var(value, tag); err != nil {
			res.Add(string(key), varMessage(err))
			return res, nil
		}
	}

	now := s.now().UTC()
	n, err := s.table.Update(ctx, data.Filter{data.Eq("key", string(key))}, data.Patch{"value": value, "updated_at": now})
	if err != nil {
		s.log.Error(err, "Failed to update setting "+string(key))
		return res, err
	}
	if n == 0 {
		// MySQL reports zero rows for a no-op update, so check before inserting.
		existing, err := s.table.First(ctx, data.Filter{data.Eq("key", string(key))})
		if err != nil {
			return res, err
		}
		if existing != nil {
			s.Invalidate(ctx)
			return res, nil
		}
		row := &data.SiteSetting{Key: string(key), Value: value, Description: key.Description()}
		if err := s.table.Insert(ctx, row); err != nil {
			s.log.Error(err, "Failed to insert setting "+string(key))
			return res, err
		}
	}
	s.Invalidate(ctx)
	return res, nil
}

// Invalidate drops cached settings and every public read derived from them.
func (s *SettingsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, settingsCacheKey); err != nil {
		s.log.Error(err, "Failed to invalidate settings cache")
	}
	if err := s.cache.DeletePrefix(ctx, PublicCachePrefix); err != nil {
		s.log.Error(err, "Failed to invalidate public cache")
	}
}
