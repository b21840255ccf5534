// Package mail renders and delivers the transactional emails sent for
// competition submissions and website forms.
package mail

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/noah-isme/txnt-submissions-api/internal/models"
)

// Rendered is a subject and HTML body ready for sending.
type Rendered struct {
	Subject string
	HTML    string
}

// SubmissionView is everything the submission templates display.
type SubmissionView struct {
	Metadata     models.SubmissionMetadata
	SubmissionID string
	ReceivedAt   time.Time
	Attached     bool
	DownloadURL  string
	StorageKey   string
	// OrganizerAddress is shown to submitters as the point of contact.
	OrganizerAddress string
}

// Remote reports whether the file was uploaded to storage instead of attached.
func (v SubmissionView) Remote() bool { return v.DownloadURL != "" }

// Renderer executes the embedded email templates.
type Renderer struct {
	organizer    *template.Template
	confirmation *template.Template
	contact      *template.Template
	registration *template.Template
}

var funcs = template.FuncMap{
	"sizeMB":    FormatMB,
	"lines":     splitLines,
	"orNone":    orNone,
	"timestamp": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"readable":  func(t time.Time) string { return t.UTC().Format("Jan 2, 2006 at 3:04 PM MST") },
}

// NewRenderer parses the templates. It panics only on a programming error
// in the embedded template text.
func NewRenderer() *Renderer {
	parse := func(name, text string) *template.Template {
		return template.Must(template.New(name).Funcs(funcs).Parse(text))
	}
	return &Renderer{
		organizer:    parse("organizer", organizerHTML),
		confirmation: parse("confirmation", confirmationHTML),
		contact:      parse("contact", contactHTML),
		registration: parse("registration", registrationHTML),
	}
}

// Organizer renders the authoritative copy sent to the competition inbox.
func (r *Renderer) Organizer(v SubmissionView) (Rendered, error) {
	subject := fmt.Sprintf("🧠 TxNT Competition Submission: %s (%s)", v.Metadata.TeamName, v.Metadata.University)
	if v.Remote() {
		subject += " - Large File"
	}
	return execute(r.organizer, subject, v)
}

// Confirmation renders the acknowledgement sent to the submitter.
func (r *Renderer) Confirmation(v SubmissionView) (Rendered, error) {
	subject := fmt.Sprintf("✅ Competition Submission Received - %s", v.Metadata.TeamName)
	return execute(r.confirmation, subject, v)
}

// Contact renders a website contact form message.
func (r *Renderer) Contact(m models.ContactMessage) (Rendered, error) {
	subject := fmt.Sprintf("[TxNT] Contact from %s (%s)", m.Name, m.Organization)
	return execute(r.contact, subject, m)
}

// Registration renders a competition registration.
func (r *Renderer) Registration(m models.Registration) (Rendered, error) {
	subject := fmt.Sprintf("[TxNT Comp] Registration from %s (%s)", m.ClubName, m.University)
	return execute(r.registration, subject, m)
}

func execute(t *template.Template, subject string, data interface{}) (Rendered, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return Rendered{}, fmt.Errorf("render %s email: %w", t.Name(), err)
	}
	return Rendered{Subject: subject, HTML: buf.String()}, nil
}

// FormatMB renders a byte count in megabytes with two decimals.
func FormatMB(size int64) string {
	return fmt.Sprintf("%.2f", float64(size)/1024/1024)
}

func splitLines(s string) []string {
	raw := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "None"
	}
	return s
}

const organizerHTML = `<h1>🧠 Texas Neurotech Competition Submission</h1>
<div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
  <h2>Team Information</h2>
  <p><strong>Team Name:</strong> {{.Metadata.TeamName}}</p>
  <p><strong>University/Institution:</strong> {{.Metadata.University}}</p>
  <p><strong>Team Leader:</strong> {{.Metadata.TeamLeader}}</p>
  <p><strong>Contact Email:</strong> {{.Metadata.ContactEmail}}</p>
  {{- with lines .Metadata.TeamMembers}}
  <p><strong>Team Members:</strong>{{range .}}<br/>{{.}}{{end}}</p>
  {{- end}}
</div>
<div style="background-color: #e3f2fd; padding: 20px; border-radius: 8px; margin: 20px 0;">
  <h2>Project Details</h2>
  <p><strong>Project Title:</strong> {{.Metadata.ProjectTitle}}</p>
  <p><strong>Project Description:</strong></p>
  <p style="white-space: pre-wrap;">{{.Metadata.ProjectDescription}}</p>
</div>
{{- if .Remote}}
<div style="background-color: #fff3e0; padding: 20px; border-radius: 8px; margin: 20px 0;">
  <h2>📁 Large File Submission</h2>
  <p><strong>File Name:</strong> {{.Metadata.FileName}}</p>
  <p><strong>File Size:</strong> {{sizeMB .Metadata.FileSize}} MB</p>
  <p><strong>Upload Time:</strong> {{timestamp .ReceivedAt}}</p>
  <div style="margin: 20px 0; padding: 15px; background-color: #e8f5e8; border-radius: 5px; border-left: 4px solid #4caf50;">
    <p style="margin: 0;"><strong>📥 Download Link:</strong></p>
    <p style="margin: 5px 0 0 0;"><a href="{{.DownloadURL}}" style="color: #1976d2; word-break: break-all;" target="_blank">{{.DownloadURL}}</a></p>
  </div>
  {{- if .StorageKey}}
  <p style="font-size: 12px; color: #666;"><strong>Storage Location:</strong> {{.StorageKey}}</p>
  {{- end}}
</div>
{{- else}}
<div style="background-color: #f3e5f5; padding: 20px; border-radius: 8px; margin: 20px 0;">
  <h2>Submission Details</h2>
  <p><strong>Attached File:</strong> {{.Metadata.FileName}}</p>
  <p><strong>File Size:</strong> {{sizeMB .Metadata.FileSize}} MB</p>
  <p><strong>Submission Time:</strong> {{timestamp .ReceivedAt}}</p>
</div>
{{- end}}
<hr style="margin: 30px 0;" />
<p style="color: #666; font-size: 14px;">This submission was automatically generated from the Texas Neurotech Competition portal.</p>
`

const confirmationHTML = `<h1>Submission Confirmation</h1>
<p>Dear {{.Metadata.TeamLeader}},</p>
<p>Thank you for your submission to the Texas Neurotech Competition!</p>
<div style="background-color: #f8f9fa; padding: 20px; border-radius: 8px; margin: 20px 0;">
  <h3>Submission Details:</h3>
  <p><strong>Team Name:</strong> {{.Metadata.TeamName}}</p>
  <p><strong>Project Title:</strong> {{.Metadata.ProjectTitle}}</p>
  <p><strong>Submitted File:</strong> {{.Metadata.FileName}}</p>
  <p><strong>File Size:</strong> {{sizeMB .Metadata.FileSize}} MB</p>
  <p><strong>Submission Time:</strong> {{readable .ReceivedAt}}</p>
  {{- if .SubmissionID}}
  <p><strong>Reference:</strong> {{.SubmissionID}}</p>
  {{- end}}
</div>
<p>We have successfully received your submission and will review it shortly. You'll receive updates about the competition timeline and results via this email.</p>
{{- if .OrganizerAddress}}
<p>If you have any questions, please don't hesitate to contact us at {{.OrganizerAddress}}.</p>
{{- end}}
<p>Best regards,<br/>The Texas Neurotech Competition Team</p>
`

const contactHTML = `<h1>TxNT Contact Form</h1>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Organization:</strong> {{.Organization}}</p>
<p><strong>Message:</strong></p>
<p style="white-space: pre-wrap;">{{.Message}}</p>
`

const registrationHTML = `<h1>TxNT Competition Registration</h1>
<p><strong>Club Name:</strong> {{.ClubName}}</p>
<p><strong>University:</strong> {{.University}}</p>
<p><strong>Representative:</strong> {{.Representative}}</p>
<p><strong>Contact Email:</strong> {{.ContactEmail}}</p>
<p><strong>Project Description:</strong></p>
<p style="white-space: pre-wrap;">{{.ProjectDescription}}</p>
<p><strong>Questions:</strong></p>
<p style="white-space: pre-wrap;">{{orNone .Questions}}</p>
`
