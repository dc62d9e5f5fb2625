package notification

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// TemplateData contains all the fields available for email template rendering
type TemplateData struct {
	Greeting          string // Dynamic greeting based on recipient count
	Symbol            string
	StatusLine        string // "is ready" or "failed"
	URL               string
	Error             string
	Filename          string
	SceneCount        int
	FinishedFormatted string // e.g., "2025-12-28 10:06 UTC"
	JobID             string
}

// EmailTemplate contains the templates for rendering emails
type EmailTemplate struct {
	SubjectFormat string
	PlainText     string
	HTML          string
}

// DefaultTemplate is the standard email template for finished renders
var DefaultTemplate = EmailTemplate{
	SubjectFormat: "Render {{.StatusLine}}: {{.Symbol}}",
	PlainText: `{{.Greeting}}

The {{.Symbol}} video ({{.SceneCount}} scenes) {{.StatusLine}} as of {{.FinishedFormatted}}.
{{if .URL}}
Video: {{.URL}}
{{end}}{{if .Error}}
Error: {{.Error}}
{{end}}
Job: {{.JobID}}`,
	HTML: `<div dir="ltr">{{.Greeting}}<br><br>
The {{.Symbol}} video ({{.SceneCount}} scenes) {{.StatusLine}} as of {{.FinishedFormatted}}.<br><br>
{{if .URL}}<a href="{{.URL}}">{{.Filename}}</a><br><br>{{end}}
{{if .Error}}<pre>{{.Error}}</pre><br>{{end}}
Job: {{.JobID}}</div>`,
}

// NewTemplateData builds template data for an event
func NewTemplateData(to []Recipient, evt *CompletionEvent) TemplateData {
	status := "is ready"
	if !evt.Succeeded() {
		status = "failed"
	}
	return TemplateData{
		Greeting:          FormatGreeting(to),
		Symbol:            evt.Symbol,
		StatusLine:        status,
		URL:               evt.URL,
		Error:             evt.Error,
		Filename:          evt.Filename,
		SceneCount:        evt.SceneCount,
		FinishedFormatted: evt.FinishedAt.UTC().Format("2006-01-02 15:04 UTC"),
		JobID:             evt.JobID,
	}
}

// FormatGreeting creates an appropriate greeting based on number of recipients
// 1 recipient: "Hi John,"
// 2 recipients: "Hi John & Jane,"
// 3+ recipients: "Hi all,"
func FormatGreeting(recipients []Recipient) string {
	switch len(recipients) {
	case 0:
		return "Hello,"
	case 1:
		return fmt.Sprintf("Hi %s,", getFirstName(recipients[0].Name))
	case 2:
		return fmt.Sprintf("Hi %s & %s,", getFirstName(recipients[0].Name), getFirstName(recipients[1].Name))
	default:
		return "Hi all,"
	}
}

// getFirstName extracts the first name from a full name
func getFirstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "there"
	}
	return fields[0]
}

// RenderSubject renders the email subject using the template
func (t *EmailTemplate) RenderSubject(data TemplateData) (string, error) {
	return renderTemplate("subject", t.SubjectFormat, data)
}

// RenderPlainText renders the plain text email body
func (t *EmailTemplate) RenderPlainText(data TemplateData) (string, error) {
	return renderTemplate("plaintext", t.PlainText, data)
}

// RenderHTML renders the HTML email body
func (t *EmailTemplate) RenderHTML(data TemplateData) (string, error) {
	return renderTemplate("html", t.HTML, data)
}

func renderTemplate(name, tmplStr string, data TemplateData) (string, error) {
	tmpl, err := template.New(name).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}
