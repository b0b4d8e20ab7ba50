package data

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// EventType enumerates events.event_type.
const (
	EventTypeRideDay     = "ride_day"
	EventTypeLegionEvent = "legion_event"
	EventTypeLuncheon    = "luncheon"
	EventTypeDinner      = "dinner"
	EventTypeSocial      = "social"
	EventTypeOther       = "other"
)

// Payment statuses for waiver_submissions.payment_status.
const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentCompleted = "completed"
)

// Page is a slug-addressed content page. Pages are seeded by migration and
// never deleted from the admin console.
type Page struct {
	ID        string    `db:"id"`
	Slug      string    `db:"slug"`
	Title     string    `db:"title" validate:"required"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Event is a dated happening on the public events list.
type Event struct {
	ID              string     `db:"id"`
	Title           string     `db:"title" validate:"required"`
	Description     string     `db:"description"`
	StartDate       time.Time  `db:"start_date" validate:"required"`
	EndDate         *time.Time `db:"end_date"`
	Location        string     `db:"location"`
	RegistrationURL *string    `db:"registration_url" validate:"omitempty,url"`
	EventType       string     `db:"event_type" validate:"required,oneof=ride_day legion_event luncheon dinner social other"`
	DayNumber       *int       `db:"day_number" validate:"omitempty,min=1"`
	IsPublished     bool       `db:"is_published"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Sponsor is a supporting organisation shown on the sponsors page.
type Sponsor struct {
	ID           string    `db:"id"`
	Name         string    `db:"name" validate:"required"`
	LogoURL      string    `db:"logo_url"`
	WebsiteURL   string    `db:"website_url" validate:"omitempty,url"`
	Description  string    `db:"description"`
	Category     string    `db:"category" validate:"required"`
	DisplayOrder int       `db:"display_order"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// Photo is a gallery image.
type Photo struct {
	ID               string    `db:"id"`
	Title            string    `db:"title" validate:"required"`
	Description      string    `db:"description"`
	ImageURL         string    `db:"image_url" validate:"required"`
	PhotographerName string    `db:"photographer_name"`
	EventDate        *string   `db:"event_date" validate:"omitempty,datetime=2006-01-02"`
	Category         string    `db:"category"`
	IsFeatured       bool      `db:"is_featured"`
	DisplayOrder     int       `db:"display_order"`
	IsPublished      bool      `db:"is_published"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// Document is a downloadable file in the document repository.
type Document struct {
	ID          string    `db:"id"`
	Title       string    `db:"title" validate:"required"`
	Description string    `db:"description"`
	FileName    string    `db:"file_name"`
	FileURL     string    `db:"file_url" validate:"required"`
	FileSize    int64     `db:"file_size"`
	MimeType    string    `db:"mime_type"`
	Category    string    `db:"category"`
	IsPublic    bool      `db:"is_public"`
	UploadedBy  *string   `db:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// PressArticle links to external media coverage.
type PressArticle struct {
	ID            string    `db:"id"`
	Title         string    `db:"title" validate:"required"`
	Description   string    `db:"description"`
	URL           string    `db:"url" validate:"required,url"`
	Publication   string    `db:"publication"`
	PublishedDate *string   `db:"published_date" validate:"omitempty,datetime=2006-01-02"`
	ImageURL      *string   `db:"image_url"`
	DisplayOrder  int       `db:"display_order"`
	IsPublished   bool      `db:"is_published"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

// Route describes a ride route and its itinerary.
type Route struct {
	ID               string    `db:"id"`
	Name             string    `db:"name" validate:"required"`
	Description      string    `db:"description"`
	DurationDays     int       `db:"duration_days" validate:"min=0"`
	Provinces        string    `db:"provinces"`
	MapEmbedURL      string    `db:"map_embed_url" validate:"omitempty,url"`
	ItineraryContent string    `db:"itinerary_content"`
	IsActive         bool      `db:"is_active"`
	DisplayOrder     int       `db:"display_order"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

// RideCalendarDay is one day of the multi-day ride.
type RideCalendarDay struct {
	ID          string    `db:"id"`
	DayNumber   int       `db:"day_number"`
	Date        *string   `db:"date"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// RideCalendarEvent is a scheduled item within a ride day. Category is never
// empty once normalised; it defaults to ["other"].
type RideCalendarEvent struct {
	ID          string     `db:"id"`
	DayID       string     `db:"day_id"`
	Title       string     `db:"title"`
	Description string     `db:"description"`
	Time        string     `db:"time"`
	StartTime   *string    `db:"start_time"`
	EndTime     *string    `db:"end_time"`
	Location    string     `db:"location"`
	Category    StringList `db:"category"`
	OrderIndex  int        `db:"order_index"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

// SiteSetting is one row of the key/value settings table.
type SiteSetting struct {
	ID          string    `db:"id"`
	Key         string    `db:"key"`
	Value       string    `db:"value"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// RegistrationInstructions is the single active block shown on the register page.
type RegistrationInstructions struct {
	ID           string     `db:"id"`
	Title        string     `db:"title"`
	Instructions StringList `db:"instructions"`
	NoteText     string     `db:"note_text"`
	ContactEmail string     `db:"contact_email"`
	IsActive     bool       `db:"is_active"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// Registration is a rider registration, optionally tied to an event.
type Registration struct {
	ID               string    `db:"id"`
	EventID          *string   `db:"event_id"`
	FirstName        string    `db:"first_name"`
	LastName         string    `db:"last_name"`
	Email            string    `db:"email"`
	Phone            string    `db:"phone"`
	MotorcycleInfo   string    `db:"motorcycle_info"`
	EmergencyContact string    `db:"emergency_contact"`
	CreatedAt        time.Time `db:"created_at"`
}

// ContactSubmission is written once by the public contact form.
type ContactSubmission struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Subject   string    `db:"subject"`
	Message   string    `db:"message"`
	IsRead    bool      `db:"is_read"`
	CreatedAt time.Time `db:"created_at"`
}

// MediaSubmission is a video link shared by the public.
type MediaSubmission struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Email       string    `db:"email"`
	URL         string    `db:"url"`
	Description string    `db:"description"`
	MediaType   string    `db:"media_type"`
	IsReviewed  bool      `db:"is_reviewed"`
	AdminNotes  *string   `db:"admin_notes"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// WaiverSubmission is a signed rider waiver. Passenger details are stored in
// flat passenger_* columns and are all NULL when HasPassenger is false.
type WaiverSubmission struct {
	ID                          string     `db:"id"`
	FullName                    string     `db:"full_name"`
	DateOfBirth                 string     `db:"date_of_birth"`
	Age                         int        `db:"age"`
	Address                     string     `db:"address"`
	CityProvincePostal          string     `db:"city_province_postal"`
	Phone                       string     `db:"phone"`
	Email                       string     `db:"email"`
	EmergencyContactName        string     `db:"emergency_contact_name"`
	EmergencyContactPhone       string     `db:"emergency_contact_phone"`
	MotorcycleMakeModel         string     `db:"motorcycle_make_model"`
	LicensePlate                string     `db:"license_plate"`
	LicenseProvince             string     `db:"license_province"`
	HasPassenger                bool       `db:"has_passenger"`
	IsMinor                     bool       `db:"is_minor"`
	ParentGuardianName          *string    `db:"parent_guardian_name"`
	RiderSignature              string     `db:"rider_signature"`
	RiderSignatureDate          time.Time  `db:"rider_signature_date"`
	ParentGuardianSignature     *string    `db:"parent_guardian_signature"`
	ParentGuardianSignatureDate *time.Time `db:"parent_guardian_signature_date"`

	PassengerFullName                    *string    `db:"passenger_full_name"`
	PassengerDateOfBirth                 *string    `db:"passenger_date_of_birth"`
	PassengerAge                         *int       `db:"passenger_age"`
	PassengerAddress                     *string    `db:"passenger_address"`
	PassengerCityProvincePostal          *string    `db:"passenger_city_province_postal"`
	PassengerPhone                       *string    `db:"passenger_phone"`
	PassengerEmail                       *string    `db:"passenger_email"`
	PassengerEmergencyContactName        *string    `db:"passenger_emergency_contact_name"`
	PassengerEmergencyContactPhone       *string    `db:"passenger_emergency_contact_phone"`
	PassengerIsMinor                     bool       `db:"passenger_is_minor"`
	PassengerParentGuardianName          *string    `db:"passenger_parent_guardian_name"`
	PassengerSignature                   *string    `db:"passenger_signature"`
	PassengerSignatureDate               *time.Time `db:"passenger_signature_date"`
	PassengerParentGuardianSignature     *string    `db:"passenger_parent_guardian_signature"`
	PassengerParentGuardianSignatureDate *time.Time `db:"passenger_parent_guardian_signature_date"`

	PaymentStatus         string    `db:"payment_status"`
	RegistrationFeeAmount *float64  `db:"registration_fee_amount"`
	PassengerFeeAmount    *float64  `db:"passenger_fee_amount"`
	PacketIssued          bool      `db:"packet_issued"`
	AdminNotes            *string   `db:"admin_notes"`
	CreatedAt             time.Time `db:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"`
}

// EventPage is the singleton "the event" page.
type EventPage struct {
	ID        string    `db:"id"`
	Title     string    `db:"title" validate:"required"`
	Content   string    `db:"content"`
	KeyDates  string    `db:"key_dates"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// BlueberryMountainPage is the singleton memorial walk page.
type BlueberryMountainPage struct {
	ID                   string    `db:"id"`
	Title                string    `db:"title" validate:"required"`
	HeroImageURL         *string   `db:"hero_image_url"`
	Content              string    `db:"content"`
	WalkDetails          string    `db:"walk_details"`
	ColStoneMemorialInfo string    `db:"col_stone_memorial_info"`
	BrochureURL          string    `db:"brochure_url"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// MPFBCPage is the singleton beneficiary page.
type MPFBCPage struct {
	ID           string    `db:"id"`
	Title        string    `db:"title" validate:"required"`
	HeroImageURL *string   `db:"hero_image_url"`
	Subtitle     *string   `db:"subtitle"`
	WebsiteURL   *string   `db:"website_url"`
	FacebookURL  *string   `db:"facebook_url"`
	Content      string    `db:"content"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// VisionValourRidePage is the singleton ride overview page.
type VisionValourRidePage struct {
	ID           string    `db:"id"`
	Title        string    `db:"title" validate:"required"`
	HeroImageURL *string   `db:"hero_image_url"`
	Content      string    `db:"content"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// PrivacyPolicy is the singleton privacy policy document.
type PrivacyPolicy struct {
	ID        string    `db:"id"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// RichTextImage is the presentation sidecar for an image embedded in a
// rich-text field, keyed by the node's data-image-id.
type RichTextImage struct {
	ID        string    `db:"id"`
	URL       string    `db:"url"`
	Alignment string    `db:"alignment"`
	Width     string    `db:"width"`
	Border    bool      `db:"border"`
	Caption   string    `db:"caption"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// AdminUser is an account allowed into the admin console.
type AdminUser struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// PasswordReset is a single-use reset token.
type PasswordReset struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// OutboxEntry is a pending side effect written in the same transaction as
// the record that caused it.
type OutboxEntry struct {
	ID              string     `db:"id"`
	ActionType      string     `db:"action_type"`
	Payload         string     `db:"payload"`
	Status          string     `db:"status"`
	Attempts        int        `db:"attempts"`
	MaxAttempts     int        `db:"max_attempts"`
	LastAttemptedAt *time.Time `db:"last_attempted_at"`
	NextAttemptAt   time.Time  `db:"next_attempt_at"`
	ExternalID      string     `db:"external_id"`
	ErrorMessage    string     `db:"error_message"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// StringList is a string slice persisted as a JSON array in a text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return errors.Join(errors.New("invalid string list"), err)
	}
	*l = out
	return nil
}
