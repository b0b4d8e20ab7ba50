package notify

import (
	"bytes"
	"errors"
	"html/template"
	"time"

	"valour-site/internal/data"
)

// PassengerInfo is the passenger block of a waiver notification.
type PassengerInfo struct {
	FullName         string `json:"fullName"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	DateOfBirth      string `json:"dateOfBirth"`
	Age              int    `json:"age"`
	EmergencyContact string `json:"emergencyContact"`
	EmergencyPhone   string `json:"emergencyPhone"`
	IsMinor          bool   `json:"isMinor"`
}

// WaiverPayload is the notification body for one waiver submission.
type WaiverPayload struct {
	FullName            string         `json:"fullName"`
	Email               string         `json:"email"`
	Phone               string         `json:"phone"`
	DateOfBirth         string         `json:"dateOfBirth"`
	Age                 int            `json:"age"`
	Address             string         `json:"address"`
	CityProvincePostal  string         `json:"cityProvincePostal"`
	EmergencyContact    string         `json:"emergencyContact"`
	EmergencyPhone      string         `json:"emergencyPhone"`
	MotorcycleMakeModel string         `json:"motorcycleMakeModel"`
	LicensePlate        string         `json:"licensePlate"`
	LicenseProvince     string         `json:"licenseProvince"`
	HasPassenger        bool           `json:"hasPassenger"`
	IsMinor             bool           `json:"isMinor"`
	ParentGuardianName  *string        `json:"parentGuardianName,omitempty"`
	PassengerInfo       *PassengerInfo `json:"passengerInfo,omitempty"`
}

// ErrMissingName is returned for a payload without a rider name.
var ErrMissingName = errors.New("waiverData.fullName is required")

// Validate checks the fields the email cannot do without.
func (p WaiverPayload) Validate() error {
	if p.FullName == "" {
		return ErrMissingName
	}
	return nil
}

// Subject is "New Waiver - <name>", with " + Passenger" when one rides along.
func (p WaiverPayload) Subject() string {
	s := "New Waiver - " + p.FullName
	if p.HasPassenger {
		s += " + Passenger"
	}
	return s
}

// PayloadFromWaiver builds the notification for a stored submission.
func PayloadFromWaiver(w *data.WaiverSubmission) WaiverPayload {
	p := WaiverPayload{
		FullName:            w.FullName,
		Email:               w.Email,
		Phone:               w.Phone,
		DateOfBirth:         w.DateOfBirth,
		Age:                 w.Age,
		Address:             w.Address,
		CityProvincePostal:  w.CityProvincePostal,
		EmergencyContact:    w.EmergencyContactName,
		EmergencyPhone:      w.EmergencyContactPhone,
		MotorcycleMakeModel: w.MotorcycleMakeModel,
		LicensePlate:        w.LicensePlate,
		LicenseProvince:     w.LicenseProvince,
		HasPassenger:        w.HasPassenger,
		IsMinor:             w.IsMinor,
		ParentGuardianName:  w.ParentGuardianName,
	}
	if w.HasPassenger {
		p.PassengerInfo = &PassengerInfo{
			FullName:         deref(w.PassengerFullName),
			Email:            deref(w.PassengerEmail),
			Phone:            deref(w.PassengerPhone),
			DateOfBirth:      deref(w.PassengerDateOfBirth),
			EmergencyContact: deref(w.PassengerEmergencyContactName),
			EmergencyPhone:   deref(w.PassengerEmergencyContactPhone),
			IsMinor:          w.PassengerIsMinor,
		}
		if w.PassengerAge != nil {
			p.PassengerInfo.Age = *w.PassengerAge
		}
	}
	return p
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var waiverEmail = template.Must(template.New("waiver").Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Arial, sans-serif; line-height: 1.6; color: #2d3748; margin: 0; padding: 0; background-color: #f7fafc; }
.container { max-width: 700px; margin: 20px auto; background-color: white; border-radius: 8px; overflow: hidden; }
.header { background: #991b1b; color: white; padding: 30px 20px; text-align: center; }
.content { padding: 30px; }
.alert { background-color: #fef3c7; border-left: 4px solid #f59e0b; padding: 15px; margin-bottom: 25px; }
.section h2 { color: #1a365d; font-size: 20px; border-bottom: 2px solid #e2e8f0; padding-bottom: 8px; }
.field { margin-bottom: 15px; padding: 12px; background-color: #f7fafc; border-radius: 6px; }
.label { font-weight: 700; font-size: 13px; text-transform: uppercase; }
.minor { color: #c53030; font-weight: bold; }
.footer { padding: 20px; text-align: center; color: #718096; font-size: 13px; border-top: 1px solid #e2e8f0; }
</style>
</head>
<body>
<div class="container">
<div class="header"><h1>New Waiver Submission</h1><p>Ride for Vision &amp; Valour</p></div>
<div class="content">
<div class="alert"><p>A new waiver has been submitted and requires review</p></div>
<div class="section">
<h2>Rider Information</h2>
<div class="field"><div class="label">Full Name:</div><div>{{.P.FullName}}</div></div>
<div class="field"><div class="label">Date of Birth:</div><div>{{.P.DateOfBirth}} (Age: {{.P.Age}})</div></div>
{{- if .P.IsMinor}}
<div class="field"><div class="label minor">Minor Status:</div><div class="minor">Rider is under 18 - Parent/Guardian: {{with .P.ParentGuardianName}}{{.}}{{end}}</div></div>
{{- end}}
<div class="field"><div class="label">Email:</div><div><a href="mailto:{{.P.Email}}">{{.P.Email}}</a></div></div>
<div class="field"><div class="label">Phone:</div><div>{{.P.Phone}}</div></div>
<div class="field"><div class="label">Address:</div><div>{{.P.Address}}<br>{{.P.CityProvincePostal}}</div></div>
</div>
<div class="section">
<h2>Emergency Contact</h2>
<div class="field"><div class="label">Emergency Contact Name:</div><div>{{.P.EmergencyContact}}</div></div>
<div class="field"><div class="label">Emergency Contact Phone:</div><div>{{.P.EmergencyPhone}}</div></div>
</div>
<div class="section">
<h2>Motorcycle Information</h2>
<div class="field"><div class="label">Make/Model:</div><div>{{.P.MotorcycleMakeModel}}</div></div>
<div class="field"><div class="label">License Plate:</div><div>{{.P.LicensePlate}} ({{.P.LicenseProvince}})</div></div>
</div>
{{- if and .P.HasPassenger .P.PassengerInfo}}{{with .P.PassengerInfo}}
<div class="section">
<h2>Passenger Information</h2>
<div class="field"><div class="label">Passenger Name:</div><div>{{.FullName}}</div></div>
<div class="field"><div class="label">Passenger Date of Birth:</div><div>{{.DateOfBirth}} (Age: {{.Age}})</div></div>
<div class="field"><div class="label">Passenger Email:</div><div>{{.Email}}</div></div>
<div class="field"><div class="label">Passenger Phone:</div><div>{{.Phone}}</div></div>
<div class="field"><div class="label">Passenger Emergency Contact:</div><div>{{.EmergencyContact}} - {{.EmergencyPhone}}</div></div>
{{- if .IsMinor}}
<div class="field"><div class="label minor">Minor Status:</div><div class="minor">Passenger is under 18 - Parent/Guardian consent required</div></div>
{{- end}}
</div>
{{- end}}{{end}}
<div class="field"><strong>Submission Time:</strong> {{.SubmittedAt}}</div>
</div>
<div class="footer"><p>This is an automated notification from the Vision &amp; Valour website</p><p>Please log in to the admin panel to view complete waiver details</p></div>
</div>
</body>
</html>
`))

// RenderWaiverEmail renders the staff email for p. Every submitted value is escaped.
func RenderWaiverEmail(p WaiverPayload, submittedAt time.Time) (string, error) {
	loc, err := time.LoadLocation("America/Edmonton")
	if err != nil {
		loc = time.UTC
	}
	var buf bytes.Buffer
	err = waiverEmail.Execute(&buf, struct {
		P           WaiverPayload
		SubmittedAt string
	}{p, submittedAt.In(loc).Format("Monday, January 2, 2006 at 3:04:05 PM MST")})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
