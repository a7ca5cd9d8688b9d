// Package gmail wraps the Gmail API for checkpoint-based mailbox syncing.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Sentinel errors for Gmail API failures callers need to branch on.
var (
	ErrRateLimited     = errors.New("gmail: rate limited")
	ErrUnauthenticated = errors.New("gmail: unauthenticated")
	ErrTransient       = errors.New("gmail: transient provider error")
)

// TokenUpdateFunc is a callback invoked when the access token is refreshed,
// so the caller can persist the new token.
type TokenUpdateFunc func(token *oauth2.Token) error

// Credentials carries the per-user OAuth tokens for mailbox access.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	OnRefresh    TokenUpdateFunc
}

// MessagePage is one page of message IDs from a mailbox listing.
type MessagePage struct {
	IDs           []string
	NextPageToken string
}

// Message is a fetched mail message reduced to the fields the pipeline needs.
type Message struct {
	ID         string
	Subject    string
	From       string
	Body       string
	ReceivedAt time.Time
}

type Service struct {
	clientID     string
	clientSecret string
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[Gmail] Failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

// getGmailService creates a Gmail client with the user's tokens, wrapping
// the token source so refreshes are persisted through OnRefresh.
func (s *Service) getGmailService(ctx context.Context, creds Credentials) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	tokenSource := config.TokenSource(ctx, token)

	wrappedSource := &notifyTokenSource{
		src:      tokenSource,
		current:  token,
		callback: creds.OnRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	return srv, nil
}

// jobSearchTerms narrows the mailbox listing to job-application traffic.
var jobSearchTerms = []string{
	"application", "interview", "offer", "recruiter", "hiring",
	"position", "applied", "candidacy",
}

// BuildQuery builds the Gmail search query for a sync run. A non-zero
// checkpoint bounds the query with after:, otherwise the query looks back
// lookbackDays from now.
func BuildQuery(checkpoint time.Time, lookbackDays int) string {
	var sb strings.Builder

	sb.WriteString("(")
	for i, term := range jobSearchTerms {
		if i > 0 {
			sb.WriteString(" OR ")
		}
		sb.WriteString(fmt.Sprintf("%q", term))
	}
	sb.WriteString(") -category:social -category:promotions")

	if checkpoint.IsZero() {
		checkpoint = time.Now().AddDate(0, 0, -lookbackDays)
	}
	sb.WriteString(fmt.Sprintf(" after:%d", checkpoint.Unix()))

	return sb.String()
}

// ListMessagePage returns one page of message IDs matching the query.
// Pass an empty pageToken for the first page; an empty NextPageToken in
// the result means the listing is exhausted.
func (s *Service) ListMessagePage(ctx context.Context, creds Credentials, query, pageToken string) (*MessagePage, error) {
	srv, err := s.getGmailService(ctx, creds)
	if err != nil {
		return nil, err
	}

	call := srv.Users.Messages.List("me").Q(query).MaxResults(500)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	resp, err := call.Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	page := &MessagePage{
		IDs:           make([]string, 0, len(resp.Messages)),
		NextPageToken: resp.NextPageToken,
	}
	for _, m := range resp.Messages {
		page.IDs = append(page.IDs, m.Id)
	}

	return page, nil
}

// GetMessage fetches a single message with its headers and body.
func (s *Service) GetMessage(ctx context.Context, creds Credentials, id string) (*Message, error) {
	srv, err := s.getGmailService(ctx, creds)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, mapError(err)
	}

	out := &Message{
		ID:         msg.Id,
		ReceivedAt: time.UnixMilli(msg.InternalDate),
	}

	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch h.Name {
			case "Subject":
				out.Subject = h.Value
			case "From":
				out.From = h.Value
			}
		}
		out.Body = extractBody(msg.Payload)
	}

	return out, nil
}

// extractBody walks the MIME tree preferring text/plain parts.
func extractBody(payload *gmail.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		if decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(decoded)
		}
	}

	var htmlBody string
	for _, part := range payload.Parts {
		if part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				return string(decoded)
			}
		}
		if part.MimeType == "text/html" && part.Body != nil && part.Body.Data != "" {
			if decoded, err := base64.URLEncoding.DecodeString(part.Body.Data); err == nil {
				htmlBody = string(decoded)
			}
		}
		if len(part.Parts) > 0 {
			if nested := extractBody(part); nested != "" {
				return nested
			}
		}
	}

	return htmlBody
}

// mapError translates googleapi errors into the package sentinels so the
// pipeline can retry rate limits and server hiccups and surface
// credential problems.
func mapError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.Code {
	case 429:
		return fmt.Errorf("%w: %v", ErrRateLimited, err)
	case 403:
		for _, e := range apiErr.Errors {
			if e.Reason == "rateLimitExceeded" || e.Reason == "userRateLimitExceeded" {
				return fmt.Errorf("%w: %v", ErrRateLimited, err)
			}
		}
		return err
	case 401:
		return fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	default:
		if apiErr.Code >= 500 {
			return fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return err
	}
}
