package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"valour-site/internal/data"
	"valour-site/internal/logger"
	"valour-site/internal/notify"
)

// ContactForm is the public contact form.
type ContactForm struct {
	Name    string `form:"name" validate:"required"`
	Email   string `form:"email" validate:"required,email"`
	Subject string `form:"subject" validate:"required"`
	Message string `form:"message" validate:"required"`
}

// VideoForm is the public "share a video" form.
type VideoForm struct {
	Name        string `form:"name" validate:"required"`
	Email       string `form:"email" validate:"required,email"`
	URL         string `form:"url" validate:"required,url"`
	Description string `form:"description"`
}

// PassengerForm is the optional passenger block of a waiver.
type PassengerForm struct {
	FullName              string `form:"passenger_full_name" validate:"required"`
	DateOfBirth           string `form:"passenger_date_of_birth" validate:"required,datetime=2006-01-02"`
	Age                   int    `form:"passenger_age" validate:"min=0,max=120"`
	Address               string `form:"passenger_address" validate:"required"`
	CityProvincePostal    string `form:"passenger_city_province_postal" validate:"required"`
	Phone                 string `form:"passenger_phone" validate:"required"`
	Email                 string `form:"passenger_email" validate:"required,email"`
	EmergencyContactName  string `form:"passenger_emergency_contact_name" validate:"required"`
	EmergencyContactPhone string `form:"passenger_emergency_contact_phone" validate:"required"`
	IsMinor               bool   `form:"passenger_is_minor"`
	ParentGuardianName    string `form:"passenger_parent_guardian_name"`
	Signature             string `form:"passenger_signature" validate:"required"`
	AgreedToTerms         bool   `form:"passenger_agreed_to_terms"`
}

// WaiverForm is the public rider waiver.
type WaiverForm struct {
	FullName              string `form:"full_name" validate:"required"`
	DateOfBirth           string `form:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Age                   int    `form:"age" validate:"min=0,max=120"`
	Address               string `form:"address" validate:"required"`
	CityProvincePostal    string `form:"city_province_postal" validate:"required"`
	Phone                 string `form:"phone" validate:"required"`
	Email                 string `form:"email" validate:"required,email"`
	EmergencyContactName  string `form:"emergency_contact_name" validate:"required"`
	EmergencyContactPhone string `form:"emergency_contact_phone" validate:"required"`
	MotorcycleMakeModel   string `form:"motorcycle_make_model" validate:"required"`
	LicensePlate          string `form:"license_plate" validate:"required"`
	LicenseProvince       string `form:"license_province" validate:"required"`
	IsMinor               bool   `form:"is_minor"`
	ParentGuardianName    string `form:"parent_guardian_name"`
	RiderSignature        string `form:"rider_signature" validate:"required"`
	AgreedToTerms         bool   `form:"agreed_to_terms"`
	AgreedToMedia         bool   `form:"agreed_to_media"`
	HasPassenger          bool   `form:"has_passenger"`

	// Passenger is only bound and checked when HasPassenger is set.
	Passenger PassengerForm `form_if:"has_passenger" validate:"-"`
}

func trimAll(ss ...*string) {
	for _, s := range ss {
		*s = strings.TrimSpace(*s)
	}
}

// signatureMatches compares a typed signature to a legal name, ignoring case.
func signatureMatches(signature, name string) bool {
	return strings.EqualFold(strings.TrimSpace(signature), strings.TrimSpace(name))
}

// Validate checks the waiver rules: every rider field, both agreements,
// a signature matching the full name, a guardian for minors, and the same
// for the passenger when one rides along.
func (f *WaiverForm) Validate() Result {
	trimAll(&f.FullName, &f.Email, &f.Phone, &f.RiderSignature, &f.ParentGuardianName, &f.DateOfBirth)
	res := Check(f)
	if !f.AgreedToTerms {
		res.Add("agreed_to_terms", "You must agree to all terms and conditions to submit this waiver.")
	}
	if !f.AgreedToMedia {
		res.Add("agreed_to_media", "You must agree to all terms and conditions to submit this waiver.")
	}
	if f.RiderSignature != "" && !signatureMatches(f.RiderSignature, f.FullName) {
		res.Add("rider_signature", "Your signature must match your full legal name exactly.")
	}
	if f.IsMinor && f.ParentGuardianName == "" {
		res.Add("parent_guardian_name", "is required for riders under 18")
	}

	if !f.HasPassenger {
		return res
	}
	p := &f.Passenger
	trimAll(&p.FullName, &p.Email, &p.Phone, &p.Signature, &p.ParentGuardianName, &p.DateOfBirth)
	res.Merge(Check(p))
	if !p.AgreedToTerms {
		res.Add("passenger_agreed_to_terms", "Passenger must agree to all terms and conditions.")
	}
	if p.Signature != "" && !signatureMatches(p.Signature, p.FullName) {
		res.Add("passenger_signature", "Passenger signature must match their full legal name exactly.")
	}
	if p.IsMinor && p.ParentGuardianName == "" {
		res.Add("passenger_parent_guardian_name", "is required for passengers under 18")
	}
	return res
}

// Row builds the stored submission. Passenger columns stay NULL unless
// HasPassenger is set.
func (f *WaiverForm) Row(now time.Time) *data.WaiverSubmission {
	w := &data.WaiverSubmission{
		FullName:              f.FullName,
		DateOfBirth:           f.DateOfBirth,
		Age:                   f.Age,
		Address:               f.Address,
		CityProvincePostal:    f.CityProvincePostal,
		Phone:                 f.Phone,
		Email:                 f.Email,
		EmergencyContactName:  f.EmergencyContactName,
		EmergencyContactPhone: f.EmergencyContactPhone,
		MotorcycleMakeModel:   f.MotorcycleMakeModel,
		LicensePlate:          f.LicensePlate,
		LicenseProvince:       f.LicenseProvince,
		HasPassenger:          f.HasPassenger,
		IsMinor:               f.IsMinor,
		RiderSignature:        f.RiderSignature,
		RiderSignatureDate:    now,
		PaymentStatus:         data.PaymentPending,
	}
	if f.IsMinor {
		w.ParentGuardianName = optional(f.ParentGuardianName)
		w.ParentGuardianSignature = optional(f.ParentGuardianName)
		w.ParentGuardianSignatureDate = &now
	}
	if !f.HasPassenger {
		return w
	}

	p := f.Passenger
	age := p.Age
	w.PassengerFullName = &p.FullName
	w.PassengerDateOfBirth = &p.DateOfBirth
	w.PassengerAge = &age
	w.PassengerAddress = &p.Address
	w.PassengerCityProvincePostal = &p.CityProvincePostal
	w.PassengerPhone = &p.Phone
	w.PassengerEmail = &p.Email
	w.PassengerEmergencyContactName = &p.EmergencyContactName
	w.PassengerEmergencyContactPhone = &p.EmergencyContactPhone
	w.PassengerIsMinor = p.IsMinor
	w.PassengerSignature = &p.Signature
	w.PassengerSignatureDate = &now
	if p.IsMinor {
		w.PassengerParentGuardianName = optional(p.ParentGuardianName)
		w.PassengerParentGuardianSignature = optional(p.ParentGuardianName)
		w.PassengerParentGuardianSignatureDate = &now
	}
	return w
}

// TxRunner runs fn in a transaction. data.WithTx bound to a pool satisfies it.
type TxRunner func(ctx context.Context, fn func(tx *sqlx.Tx) error) error

// WaiverWriter inserts a waiver inside a transaction.
type WaiverWriter interface {
	InsertTx(ctx context.Context, tx *sqlx.Tx, w *data.WaiverSubmission) error
}

// OutboxWriter enqueues a side effect inside a transaction.
type OutboxWriter interface {
	EnqueueTx(ctx context.Context, tx *sqlx.Tx, e *data.OutboxEntry) error
}

// Kicker wakes the outbox dispatcher without waiting for it.
type Kicker interface {
	Kick()
}

// SubmissionService accepts the public forms. Each successful submission is
// exactly one insert; submitters can never update or delete.
type SubmissionService struct {
	contacts    Gateway[data.ContactSubmission]
	media       Gateway[data.MediaSubmission]
	waivers     WaiverWriter
	outbox      OutboxWriter
	tx          TxRunner
	kicker      Kicker
	maxAttempts int
	log         logger.Logger
	now         func() time.Time
}

// NewSubmissionService creates a SubmissionService. kicker may be nil.
func NewSubmissionService(contacts Gateway[data.ContactSubmission], media Gateway[data.MediaSubmission], waivers WaiverWriter, outbox OutboxWriter, tx TxRunner, kicker Kicker, maxAttempts int, log logger.Logger) *SubmissionService {
	return &SubmissionService{
		contacts:    contacts,
		media:       media,
		waivers:     waivers,
		outbox:      outbox,
		tx:          tx,
		kicker:      kicker,
		maxAttempts: maxAttempts,
		log:         log,
		now:         time.Now,
	}
}

// SubmitContact stores a contact message as unread.
func (s *SubmissionService) SubmitContact(ctx context.Context, f ContactForm) (Result, error) {
	trimAll(&f.Name, &f.Email, &f.Subject, &f.Message)
	res := Check(&f)
	if !res.Valid {
		return res, nil
	}
	row := &data.ContactSubmission{Name: f.Name, Email: f.Email, Subject: f.Subject, Message: f.Message}
	if err := s.contacts.Insert(ctx, row); err != nil {
		s.log.Error(err, "Failed to store contact submission")
		return res, err
	}
	return res, nil
}

// SubmitVideo stores a shared video link for review.
func (s *SubmissionService) SubmitVideo(ctx context.Context, f VideoForm) (Result, error) {
	trimAll(&f.Name, &f.Email, &f.URL)
	res := Check(&f)
	if !res.Valid {
		return res, nil
	}
	row := &data.MediaSubmission{Name: f.Name, Email: f.Email, URL: f.URL, Description: f.Description, MediaType: "video"}
	if err := s.media.Insert(ctx, row); err != nil {
		s.log.Error(err, "Failed to store media submission")
		return res, err
	}
	return res, nil
}

// SubmitWaiver stores a waiver and, in the same transaction, queues the staff
// notification. Delivery happens later; its failure never fails the submit.
func (s *SubmissionService) SubmitWaiver(ctx context.Context, f WaiverForm) (Result, error) {
	res := f.Validate()
	if !res.Valid {
		return res, nil
	}
	row := f.Row(s.now().UTC())

	err := s.tx(ctx, func(tx *sqlx.Tx) error {
		if err := s.waivers.InsertTx(ctx, tx, row); err != nil {
			return err
		}
		payload, err := json.Marshal(notify.PayloadFromWaiver(row))
		if err != nil {
			return fmt.Errorf("failed to encode waiver notification: %w", err)
		}
		return s.outbox.EnqueueTx(ctx, tx, &data.OutboxEntry{
			ActionType:  data.ActionWaiverNotification,
			Payload:     string(payload),
			MaxAttempts: s.maxAttempts,
		})
	})
	if err != nil {
		s.log.Error(err, "Failed to store waiver submission")
		return res, err
	}
	if s.kicker != nil {
		s.kicker.Kick()
	}
	return res, nil
}
