package ai

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxEmailTextLen = 8000

// classificationPrompt builds the prompt shared by all providers so that
// switching providers does not change the label vocabulary.
func classificationPrompt(subject, body string) string {
	emailText := fmt.Sprintf("Subject: %s\n\nBody: %s", subject, body)
	if len(emailText) > maxEmailTextLen {
		// Back up to a rune boundary so the cut never produces
		// invalid UTF-8.
		cut := maxEmailTextLen
		for cut > 0 && !utf8.RuneStart(emailText[cut]) {
			cut--
		}
		emailText = emailText[:cut]
	}

	return fmt.Sprintf(`Categorize the following email into one of the job application status categories and extract relevant details. Only the JSON is expected in the response, not a single word more. Do NOT use backticks, do NOT use the word json.

Job application status categories:
- Applied: Confirmation that an application was submitted
- Rejection: Company rejected the application
- Availability request: Company asking for availability
- Information request: Company asking for additional information
- Assessment sent: Company sent a test or assignment
- Interview invitation: Company invited to an interview
- Did not apply - inbound request: Recruiter reached out first
- Action required from company: Waiting for the company's response
- Hiring freeze notification: Position is on hold
- Withdrew application: Applicant withdrew the application
- Offer made: Company extended a job offer
- False positive: Not related to job applications

If the status is 'False positive', only return: {"job_application_status": "False positive"}
If the status is not 'False positive', return: {"company_name": "company_name", "job_application_status": "status", "job_title": "job_title"}

Email: %s`, emailText)
}

// parseClassification extracts a Classification from raw model output.
// Models sometimes wrap JSON in code fences or prose despite instructions,
// so parsing tolerates surrounding noise. Empty fields normalize to
// StatusUnknown and a 'False positive' verdict becomes StatusFalsePositive.
func parseClassification(raw string) (*Classification, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model output: %q", raw)
	}
	text = text[start : end+1]

	var c Classification
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, fmt.Errorf("invalid JSON in model output: %w", err)
	}

	if strings.EqualFold(strings.TrimSpace(c.ApplicationStatus), "false positive") {
		return &Classification{
			CompanyName:       StatusUnknown,
			ApplicationStatus: StatusFalsePositive,
			JobTitle:          StatusUnknown,
		}, nil
	}

	c.CompanyName = normalizeField(c.CompanyName)
	c.ApplicationStatus = normalizeField(c.ApplicationStatus)
	c.JobTitle = normalizeField(c.JobTitle)

	return &c, nil
}

func normalizeField(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return StatusUnknown
	}
	return v
}
