package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title    string
	Heading  string
	CTALabel string
	CTAURL   string
}

type followUpDueEmailData struct {
	baseEmailData
	LeadName     string
	LeadPhone    string
	AttemptsMade int
}

type leadSignedEmailData struct {
	baseEmailData
	LeadName      string
	FinancingType string
}

type placementRemediationEmailData struct {
	baseEmailData
	LeadName string
	Score    int
	Minimum  int
}

type complianceBillableEmailData struct {
	baseEmailData
	LeadName string
	Stage    string
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}
