package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"valour-site/internal/data"
	"valour-site/internal/logger"
)

// PaymentStatuses lists the allowed waiver payment states.
var PaymentStatuses = []string{data.PaymentPending, data.PaymentPaid, data.PaymentCompleted}

// WaiverFilterAll shows every waiver regardless of payment state.
const WaiverFilterAll = "all"

// WaiverCounts are the per-status totals shown on the waiver tabs.
type WaiverCounts struct {
	All       int
	Pending   int
	Paid      int
	Completed int
}

// RegistrationRow pairs a registration with its event, when it still exists.
type RegistrationRow struct {
	data.Registration
	Event *data.Event
}

// ModerationService handles the admin side of public submissions. The
// submitted content itself is never edited; only review state and notes.
type ModerationService struct {
	contacts      Gateway[data.ContactSubmission]
	waivers       Gateway[data.WaiverSubmission]
	media         Gateway[data.MediaSubmission]
	registrations Gateway[data.Registration]
	events        Gateway[data.Event]
	log           logger.Logger
	now           func() time.Time
}

// NewModerationService creates a ModerationService.
func NewModerationService(contacts Gateway[data.ContactSubmission], waivers Gateway[data.WaiverSubmission], media Gateway[data.MediaSubmission], registrations Gateway[data.Registration], events Gateway[data.Event], log logger.Logger) *ModerationService {
	return &ModerationService{
		contacts:      contacts,
		waivers:       waivers,
		media:         media,
		registrations: registrations,
		events:        events,
		log:           log,
		now:           time.Now,
	}
}

var newestFirst = []data.Order{data.Desc("created_at"), data.Asc("id")}

// Contacts lists contact messages, newest first.
func (s *ModerationService) Contacts(ctx context.Context) ([]data.ContactSubmission, error) {
	return s.contacts.Select(ctx, nil, newestFirst...)
}

// ToggleContactRead flips the read flag.
func (s *ModerationService) ToggleContactRead(ctx context.Context, id string) error {
	c, err := s.contacts.First(ctx, data.ByID(id))
	if err != nil {
		return err
	}
	if c == nil {
		return ErrNotFound
	}
	_, err = s.contacts.Update(ctx, data.ByID(id), data.Patch{"is_read": !c.IsRead})
	return err
}

// DeleteContact removes a contact message.
func (s *ModerationService) DeleteContact(ctx context.Context, id string) error {
	_, err := s.contacts.Delete(ctx, data.ByID(id))
	return err
}

// Waivers lists waivers with the given payment status ("all" for every
// one), newest first, with totals for each status.
func (s *ModerationService) Waivers(ctx context.Context, status string) ([]data.WaiverSubmission, WaiverCounts, error) {
	all, err := s.waivers.Select(ctx, nil, newestFirst...)
	if err != nil {
		s.log.Error(err, "Failed to list waivers")
		return nil, WaiverCounts{}, err
	}
	counts := WaiverCounts{All: len(all)}
	var out []data.WaiverSubmission
	for _, w := range all {
		switch w.PaymentStatus {
		case data.PaymentPending:
			counts.Pending++
		case data.PaymentPaid:
			counts.Paid++
		case data.PaymentCompleted:
			counts.Completed++
		}
		if status == "" || status == WaiverFilterAll || w.PaymentStatus == status {
			out = append(out, w)
		}
	}
	return out, counts, nil
}

// Waiver returns one waiver, or ErrNotFound.
func (s *ModerationService) Waiver(ctx context.Context, id string) (*data.WaiverSubmission, error) {
	w, err := s.waivers.First(ctx, data.ByID(id))
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrNotFound
	}
	return w, nil
}

func (s *ModerationService) patchWaiver(ctx context.Context, id string, patch data.Patch) error {
	patch["updated_at"] = s.now().UTC()
	n, err := s.waivers.Update(ctx, data.ByID(id), patch)
	if err != nil {
		s.log.Error(err, "Failed to update waiver")
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetPaymentStatus moves a waiver between payment states.
func (s *ModerationService) SetPaymentStatus(ctx context.Context, id, status string) (Result, error) {
	res := OK()
	if err := validate.Var(status, "required,oneof="+strings.Join(PaymentStatuses, " ")); err != nil {
		res.Add("payment_status", varMessage(err))
		return res, nil
	}
	return res, s.patchWaiver(ctx, id, data.Patch{"payment_status": status})
}

// SetPacketIssued records whether the rider packet was handed out.
func (s *ModerationService) SetPacketIssued(ctx context.Context, id string, issued bool) error {
	return s.patchWaiver(ctx, id, data.Patch{"packet_issued": issued})
}

// SetWaiverNotes replaces the admin notes. Blank notes are stored as NULL.
func (s *ModerationService) SetWaiverNotes(ctx context.Context, id, notes string) error {
	return s.patchWaiver(ctx, id, data.Patch{"admin_notes": optional(strings.TrimSpace(notes))})
}

// DeleteWaiver removes a waiver.
func (s *ModerationService) DeleteWaiver(ctx context.Context, id string) error {
	_, err := s.waivers.Delete(ctx, data.ByID(id))
	return err
}

var waiverCSVHeader = []string{
	"submitted_at", "full_name", "email", "phone", "date_of_birth", "age",
	"address", "city_province_postal", "emergency_contact_name", "emergency_contact_phone",
	"motorcycle_make_model", "license_plate", "license_province", "is_minor", "parent_guardian_name",
	"has_passenger", "passenger_full_name", "passenger_age", "passenger_email", "passenger_phone",
	"payment_status", "registration_fee_amount", "passenger_fee_amount", "packet_issued", "admin_notes",
}

// ExportWaiversCSV writes the filtered waivers as CSV.
func (s *ModerationService) ExportWaiversCSV(ctx context.Context, w io.Writer, status string) error {
	rows, _, err := s.Waivers(ctx, status)
	if err != nil {
		return err
	}
	records := make([][]string, len(rows))
	for i, r := range rows {
		records[i] = []string{
			r.CreatedAt.UTC().Format(time.RFC3339), r.FullName, r.Email, r.Phone, r.DateOfBirth, strconv.Itoa(r.Age),
			r.Address, r.CityProvincePostal, r.EmergencyContactName, r.EmergencyContactPhone,
			r.MotorcycleMakeModel, r.LicensePlate, r.LicenseProvince, strconv.FormatBool(r.IsMinor), str(r.ParentGuardianName),
			strconv.FormatBool(r.HasPassenger), str(r.PassengerFullName), intStr(r.PassengerAge), str(r.PassengerEmail), str(r.PassengerPhone),
			r.PaymentStatus, amount(r.RegistrationFeeAmount), amount(r.PassengerFeeAmount), strconv.FormatBool(r.PacketIssued), str(r.AdminNotes),
		}
	}
	if err := writeCSV(w, waiverCSVHeader, records); err != nil {
		return fmt.Errorf("failed to write waiver csv: %w", err)
	}
	return nil
}

var registrationCSVHeader = []string{
	"submitted_at", "event", "first_name", "last_name", "email", "phone", "motorcycle_info", "emergency_contact",
}

// ExportRegistrationsCSV writes every registration as CSV, newest first.
// The event column is empty when the event has been deleted.
func (s *ModerationService) ExportRegistrationsCSV(ctx context.Context, w io.Writer) error {
	rows, err := s.Registrations(ctx)
	if err != nil {
		return err
	}
	records := make([][]string, len(rows))
	for i, r := range rows {
		event := ""
		if r.Event != nil {
			event = r.Event.Title
		}
		records[i] = []string{
			r.CreatedAt.UTC().Format(time.RFC3339), event, r.FirstName, r.LastName,
			r.Email, r.Phone, r.MotorcycleInfo, r.EmergencyContact,
		}
	}
	if err := writeCSV(w, registrationCSVHeader, records); err != nil {
		return fmt.Errorf("failed to write registration csv: %w", err)
	}
	return nil
}

func writeCSV(w io.Writer, header []string, records [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, rec := range records {
		for i := range rec {
			rec[i] = csvCell(rec[i])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// csvCell stops spreadsheets from reading a submitted value as a formula.
func csvCell(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}

func intStr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func amount(p *float64) string {
	if p == nil {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', 2, 64)
}

func str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// MediaSubmissions lists shared videos, newest first.
func (s *ModerationService) MediaSubmissions(ctx context.Context) ([]data.MediaSubmission, error) {
	return s.media.Select(ctx, nil, newestFirst...)
}

// ToggleMediaReviewed flips the reviewed flag.
func (s *ModerationService) ToggleMediaReviewed(ctx context.Context, id string) error {
	m, err := s.media.First(ctx, data.ByID(id))
	if err != nil {
		return err
	}
	if m == nil {
		return ErrNotFound
	}
	_, err = s.media.Update(ctx, data.ByID(id), data.Patch{"is_reviewed": !m.IsReviewed, "updated_at": s.now().UTC()})
	return err
}

// SetMediaNotes replaces the admin notes on a media submission.
func (s *ModerationService) SetMediaNotes(ctx context.Context, id, notes string) error {
	_, err := s.media.Update(ctx, data.ByID(id), data.Patch{"admin_notes": optional(strings.TrimSpace(notes)), "updated_at": s.now().UTC()})
	return err
}

// DeleteMedia removes a media submission.
func (s *ModerationService) DeleteMedia(ctx context.Context, id string) error {
	_, err := s.media.Delete(ctx, data.ByID(id))
	return err
}

// Registrations lists registrations newest first, each matched to its
// event in memory. Registrations whose event is gone keep a nil Event.
func (s *ModerationService) Registrations(ctx context.Context) ([]RegistrationRow, error) {
	regs, err := s.registrations.Select(ctx, nil, newestFirst...)
	if err != nil {
		return nil, err
	}
	events, err := s.events.Select(ctx, nil, data.Asc("start_date"), data.Asc("id"))
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*data.Event, len(events))
	for i := range events {
		byID[events[i].ID] = &events[i]
	}
	out := make([]RegistrationRow, len(regs))
	for i, r := range regs {
		out[i] = RegistrationRow{Registration: r}
		if r.EventID != nil {
			out[i].Event = byID[*r.EventID]
		}
	}
	return out, nil
}

// DeleteRegistration removes a registration.
func (s *ModerationService) DeleteRegistration(ctx context.Context, id string) error {
	_, err := s.registrations.Delete(ctx, data.ByID(id))
	return err
}

// UnreadCounts returns the dashboard badges.
func (s *ModerationService) UnreadCounts(ctx context.Context) (contacts, media, pendingWaivers int, err error) {
	cs, err := s.contacts.Select(ctx, data.Filter{data.Eq("is_read", false)})
	if err != nil {
		return 0, 0, 0, err
	}
	ms, err := s.media.Select(ctx, data.Filter{data.Eq("is_reviewed", false)})
	if err != nil {
		return 0, 0, 0, err
	}
	ws, err := s.waivers.Select(ctx, data.Filter{data.Eq("payment_status", data.PaymentPending)})
	if err != nil {
		return 0, 0, 0, err
	}
	return len(cs), len(ms), len(ws), nil
}
