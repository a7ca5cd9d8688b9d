package ai

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestParseClassificationCleanJSON(t *testing.T) {
	raw := `{"company_name": "Initech", "job_application_status": "Interview invitation", "job_title": "Staff Engineer"}`

	c, err := parseClassification(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if c.CompanyName != "Initech" {
		t.Errorf("company = %q, want Initech", c.CompanyName)
	}
	if c.ApplicationStatus != "Interview invitation" {
		t.Errorf("status = %q, want Interview invitation", c.ApplicationStatus)
	}
	if c.JobTitle != "Staff Engineer" {
		t.Errorf("title = %q, want Staff Engineer", c.JobTitle)
	}
}

func TestParseClassificationCodeFences(t *testing.T) {
	raw := "```json\n{\"company_name\": \"Globex\", \"job_application_status\": \"Applied\", \"job_title\": \"SRE\"}\n```"

	c, err := parseClassification(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.CompanyName != "Globex" || c.ApplicationStatus != "Applied" {
		t.Errorf("unexpected classification: %+v", c)
	}
}

func TestParseClassificationSurroundingProse(t *testing.T) {
	raw := `Here is the result: {"company_name": "Acme", "job_application_status": "Rejection", "job_title": "Developer"} Hope this helps!`

	c, err := parseClassification(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if c.ApplicationStatus != "Rejection" {
		t.Errorf("status = %q, want Rejection", c.ApplicationStatus)
	}
}

func TestParseClassificationFalsePositive(t *testing.T) {
	raw := `{"job_application_status": "False positive"}`

	c, err := parseClassification(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if c.ApplicationStatus != StatusFalsePositive {
		t.Errorf("status = %q, want %q", c.ApplicationStatus, StatusFalsePositive)
	}
	if c.CompanyName != StatusUnknown || c.JobTitle != StatusUnknown {
		t.Errorf("false positive should blank out company and title: %+v", c)
	}
}

func TestParseClassificationEmptyFieldsNormalize(t *testing.T) {
	raw := `{"company_name": "", "job_application_status": "Applied", "job_title": "  "}`

	c, err := parseClassification(raw)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if c.CompanyName != StatusUnknown {
		t.Errorf("empty company should normalize to %q, got %q", StatusUnknown, c.CompanyName)
	}
	if c.JobTitle != StatusUnknown {
		t.Errorf("blank title should normalize to %q, got %q", StatusUnknown, c.JobTitle)
	}
	if c.ApplicationStatus != "Applied" {
		t.Errorf("status = %q, want Applied", c.ApplicationStatus)
	}
}

func TestParseClassificationGarbage(t *testing.T) {
	for _, raw := range []string{"", "I could not classify this email.", "{broken"} {
		if _, err := parseClassification(raw); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestClassificationPromptTruncatesLongEmails(t *testing.T) {
	body := strings.Repeat("x", 2*maxEmailTextLen)

	p := classificationPrompt("subject", body)

	if len(p) > maxEmailTextLen+2000 {
		t.Errorf("prompt length %d suggests email text was not truncated", len(p))
	}
	if !strings.Contains(p, "False positive") {
		t.Error("prompt missing category vocabulary")
	}
}

func TestClassificationPromptTruncatesOnRuneBoundary(t *testing.T) {
	// Multi-byte runes make every byte offset a potential mid-rune cut.
	body := strings.Repeat("é", 2*maxEmailTextLen)

	p := classificationPrompt("Re: Bewerbung für München", body)

	if !utf8.ValidString(p) {
		t.Error("truncated prompt contains invalid UTF-8")
	}
}
