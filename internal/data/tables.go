package data

import "github.com/jmoiron/sqlx"

// Tables holds one gateway per application table.
type Tables struct {
	Pages     *Table[Page]
	Events    *Table[Event]
	Sponsors  *Table[Sponsor]
	Photos    *Table[Photo]
	Documents *Table[Document]
	Press     *Table[PressArticle]
	Routes    *Table[Route]

	CalendarDays   *Table[RideCalendarDay]
	CalendarEvents *Table[RideCalendarEvent]

	Settings     *Table[SiteSetting]
	Instructions *Table[RegistrationInstructions]

	Registrations *Table[Registration]
	Contacts      *Table[ContactSubmission]
	Media         *Table[MediaSubmission]
	Waivers       *Table[WaiverSubmission]

	EventPage         *Table[EventPage]
	BlueberryMountain *Table[BlueberryMountainPage]
	MPFBC             *Table[MPFBCPage]
	VisionValourRide  *Table[VisionValourRidePage]
	PrivacyPolicy     *Table[PrivacyPolicy]

	RichTextImages *Table[RichTextImage]
	AdminUsers     *Table[AdminUser]
	PasswordResets *Table[PasswordReset]
}

// NewTables binds every table to db.
func NewTables(db *sqlx.DB) *Tables {
	return &Tables{
		Pages:     NewTable[Page](db, "pages"),
		Events:    NewTable[Event](db, "events"),
		Sponsors:  NewTable[Sponsor](db, "sponsors"),
		Photos:    NewTable[Photo](db, "photos"),
		Documents: NewTable[Document](db, "documents"),
		Press:     NewTable[PressArticle](db, "press_articles"),
		Routes:    NewTable[Route](db, "routes"),

		CalendarDays:   NewTable[RideCalendarDay](db, "ride_calendar_days"),
		CalendarEvents: NewTable[RideCalendarEvent](db, "ride_calendar_events"),

		Settings:     NewTable[SiteSetting](db, "site_settings"),
		Instructions: NewTable[RegistrationInstructions](db, "registration_instructions"),

		Registrations: NewTable[Registration](db, "registrations"),
		Contacts:      NewTable[ContactSubmission](db, "contact_submissions"),
		Media:         NewTable[MediaSubmission](db, "media_submissions"),
		Waivers:       NewTable[WaiverSubmission](db, "waiver_submissions"),

		EventPage:         NewTable[EventPage](db, "event_page"),
		BlueberryMountain: NewTable[BlueberryMountainPage](db, "blueberry_mountain_page"),
		MPFBC:             NewTable[MPFBCPage](db, "mpfbc_page"),
		VisionValourRide:  NewTable[VisionValourRidePage](db, "vision_valour_ride_page"),
		PrivacyPolicy:     NewTable[PrivacyPolicy](db, "privacy_policy"),

		RichTextImages: NewTable[RichTextImage](db, "rich_text_images"),
		AdminUsers:     NewTable[AdminUser](db, "admin_users"),
		PasswordResets: NewTable[PasswordReset](db, "password_resets"),
	}
}
