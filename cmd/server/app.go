package main

import (
	"context"
	"crypto/sha256"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/casbin/casbin/v2"
	"github.com/jmoiron/sqlx"

	"valour-site/internal/auth"
	"valour-site/internal/cache"
	"valour-site/internal/config"
	"valour-site/internal/data"
	"valour-site/internal/handler"
	"valour-site/internal/logger"
	"valour-site/internal/notify"
	"valour-site/internal/service"
	"valour-site/internal/session"
	"valour-site/internal/storage"
	"valour-site/internal/view"
	"valour-site/web"
)

// app holds the long-lived resources shared by every subcommand.
type app struct {
	cfg    *config.Config
	log    logger.Logger
	db     *sqlx.DB
	cache  *cache.Cache
	tables *data.Tables
	outbox *data.OutboxRepository

	accounts   *auth.Accounts
	notifier   *notify.Notifier
	dispatcher *notify.Dispatcher
}

// openApp connects the database and cache and builds the mail pipeline.
// Migrations are not applied.
func openApp(cfg *config.Config, log logger.Logger) (*app, error) {
	log.Info("Connecting to the database...")
	db, err := data.NewDB(cfg.DB)
	if err != nil {
		return nil, err
	}

	c, err := cache.New(cfg.Cache)
	if err != nil {
		db.Close()
		return nil, err
	}

	sender, err := notify.NewSender(cfg.Email, log)
	if err != nil {
		c.Close()
		db.Close()
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		log:    log,
		db:     db,
		cache:  c,
		tables: data.NewTables(db),
		outbox: data.NewOutboxRepository(db),
	}
	a.accounts = auth.NewAccounts(a.tables.AdminUsers, a.tables.PasswordResets, sender, cfg.Email.From, cfg.Server.BaseURL, log)
	a.notifier = notify.NewNotifier(sender, cfg.Email.From, cfg.Email.NotifyTo, log)
	a.dispatcher = notify.NewDispatcher(a.outbox, map[string]notify.Executor{
		data.ActionWaiverNotification: a.notifier,
	}, log)
	return a, nil
}

// Close releases the cache and the database pool.
func (a *app) Close() {
	if err := a.cache.Close(); err != nil {
		a.log.Error(err, "Failed to close cache")
	}
	if err := a.db.Close(); err != nil {
		a.log.Error(err, "Failed to close database")
	}
}

func (a *app) migrate() error {
	a.log.Info("Applying database migrations...")
	if err := data.ApplyMigrations(a.db); err != nil {
		return err
	}
	a.log.Info("Migrations applied successfully.")
	return nil
}

// newSessions stores admin sessions in the application database.
func newSessions(cfg *config.Config, db *sqlx.DB) *scs.SessionManager {
	sm := scs.New()
	if db.DriverName() == "mysql" {
		sm.Store = mysqlstore.New(db.DB)
	} else {
		sm.Store = sqlite3store.New(db.DB)
	}
	sm.Lifetime = time.Duration(cfg.Session.Lifetime) * time.Hour
	sm.Cookie.Name = "valour_session"
	sm.Cookie.HttpOnly = true
	sm.Cookie.Persist = true
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Secure = cfg.Server.TLS.Enabled
	return sm
}

// newEnforcer loads persisted policies and makes sure the defaults exist.
func newEnforcer(cfg *config.Config, log logger.Logger) (casbin.IEnforcer, error) {
	log.Info("Initializing authorization...")
	e, err := auth.NewEnforcer(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize enforcer: %w", err)
	}
	if err := auth.SeedDefaultPolicies(e, log); err != nil {
		return nil, fmt.Errorf("failed to seed policies: %w", err)
	}
	return e, nil
}

// newSSO returns nil when no OIDC provider is configured.
func newSSO(ctx context.Context, cfg config.OIDCConfig, baseURL string) (handler.SSOProvider, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	authn, err := auth.NewAuthenticator(ctx, cfg, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OIDC: %w", err)
	}
	return authn, nil
}

// router injects the application layers from top to bottom and returns the router.
func (a *app) router(sm session.Manager, enforcer casbin.IEnforcer, sso handler.SSOProvider) (http.Handler, error) {
	v, err := view.New(web.TemplateFS)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize view templates: %w", err)
	}
	static, err := web.Static()
	if err != nil {
		return nil, err
	}
	store, err := storage.New(a.cfg.Storage)
	if err != nil {
		return nil, err
	}
	uploader := storage.NewUploader(store, a.cfg.Storage.MaxImageWidth)

	t, c, log := a.tables, a.cache, a.log
	pages := service.NewPageService(data.NewSQLPageRepository(a.db), c)
	settings := service.NewSettingsService(t.Settings, c, log)
	instructions := service.NewInstructionsService(t.Instructions, c, log)
	calendar := service.NewCalendarService(data.NewRideCalendarRepository(a.db), t.CalendarDays, t.CalendarEvents, c, log)

	public := service.NewPublicService(service.PublicDeps{
		Pages:             pages,
		Settings:          settings,
		Instructions:      instructions,
		Calendar:          calendar,
		Events:            t.Events,
		Sponsors:          t.Sponsors,
		Photos:            t.Photos,
		Press:             t.Press,
		Routes:            t.Routes,
		Documents:         t.Documents,
		EventPage:         t.EventPage,
		BlueberryMountain: t.BlueberryMountain,
		MPFBC:             t.MPFBC,
		VisionValourRide:  t.VisionValourRide,
		PrivacyPolicy:     t.PrivacyPolicy,
		Cache:             c,
		Log:               log,
	})

	tx := func(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
		return data.WithTx(ctx, a.db, fn)
	}
	submissions := service.NewSubmissionService(t.Contacts, t.Media, t.Waivers, a.outbox, tx, a.dispatcher, a.cfg.Outbox.MaxAttempts, log)

	deps := handler.Deps{
		Log:           log,
		View:          v,
		Sessions:      sm,
		Enforcer:      enforcer,
		SecureCookies: a.cfg.Server.TLS.Enabled,
		BaseURL:       a.cfg.Server.BaseURL,
		Static:        static,

		Pages:        pages,
		Public:       public,
		Submissions:  submissions,
		Accounts:     a.accounts,
		SSO:          sso,
		Settings:     settings,
		Calendar:     calendar,
		Instructions: instructions,
		Moderation:   service.NewModerationService(t.Contacts, t.Waivers, t.Media, t.Registrations, t.Events, log),
		Editors: handler.Editors{
			Pages:     service.NewEditor(service.PageSchema(), t.Pages, c, log),
			Events:    service.NewEditor(service.EventSchema(), t.Events, c, log),
			Sponsors:  service.NewEditor(service.SponsorSchema(), t.Sponsors, c, log).WithFiles(uploader),
			Photos:    service.NewEditor(service.PhotoSchema(), t.Photos, c, log).WithFiles(uploader),
			Documents: service.NewEditor(service.DocumentSchema(), t.Documents, c, log).WithFiles(uploader),
			Press:     service.NewEditor(service.PressSchema(), t.Press, c, log).WithFiles(uploader),
			Routes:    service.NewEditor(service.RouteSchema(), t.Routes, c, log),

			EventPage:         service.NewEditor(service.EventPageSchema(), t.EventPage, c, log),
			BlueberryMountain: service.NewEditor(service.BlueberryMountainSchema(), t.BlueberryMountain, c, log).WithFiles(uploader),
			MPFBC:             service.NewEditor(service.MPFBCSchema(), t.MPFBC, c, log).WithFiles(uploader),
			VisionValourRide:  service.NewEditor(service.VisionValourRideSchema(), t.VisionValourRide, c, log).WithFiles(uploader),
			PrivacyPolicy:     service.NewEditor(service.PrivacyPolicySchema(), t.PrivacyPolicy, c, log),
		},

		Uploader:       uploader,
		Images:         service.NewImageService(t.RichTextImages, uploader, log),
		MaxUploadBytes: a.cfg.Storage.MaxUploadMB << 20,
		Notifier:       a.notifier,
	}
	if a.cfg.Session.SecretKey != "" {
		key := sha256.Sum256([]byte(a.cfg.Session.SecretKey))
		deps.CSRFKey = key[:]
	}
	if a.cfg.Storage.Driver == "" || a.cfg.Storage.Driver == "local" {
		deps.UploadsDir = a.cfg.Storage.Dir
	}
	return handler.NewRouter(deps), nil
}
