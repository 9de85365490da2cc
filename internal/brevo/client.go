// Package brevo is the HTTP client for the email provider's transactional
// send and contacts APIs. It implements the transport and CRM collaborator
// contracts consumed by the outreach services.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/staystra/outreach-backend/internal/service"
)

// lastOutreachAttr is the CRM attribute recording when an agent last
// received an outreach email. The resolver's cooldown check reads it.
const lastOutreachAttr = "LAST_STR_OUTREACH_DATE"

type Client struct {
	APIKey      string
	BaseURL     string
	SenderEmail string
	SenderName  string
	HTTP        *http.Client
}

func NewFromEnv() *Client {
	c := &Client{
		APIKey:      os.Getenv("BREVO_API_KEY"),
		BaseURL:     os.Getenv("BREVO_BASE_URL"),
		SenderEmail: os.Getenv("SMTP_FROM_ADDRESS"),
		SenderName:  os.Getenv("SMTP_FROM_NAME"),
		HTTP:        &http.Client{Timeout: 10 * time.Second},
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://api.brevo.com/v3"
	}
	if c.SenderEmail == "" {
		c.SenderEmail = "datacollection@staystra.com"
	}
	if c.SenderName == "" {
		c.SenderName = "StaySTRA Team"
	}
	return c
}

type emailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendEmail hands a rendered message to the transactional API and returns
// the provider message id.
func (c *Client) SendEmail(ctx context.Context, msg service.OutboundEmail) (string, error) {
	payload := map[string]interface{}{
		"sender":      emailAddress{Email: c.SenderEmail, Name: c.SenderName},
		"to":          []emailAddress{{Email: msg.To}},
		"subject":     msg.Subject,
		"htmlContent": msg.HTML,
		"textContent": msg.Text,
		"tags":        msg.Tags,
	}

	var resp struct {
		MessageID string `json:"messageId"`
	}
	if err := c.do(ctx, http.MethodPost, "/smtp/email", payload, &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

type contactResponse struct {
	Email      string                 `json:"email"`
	Attributes map[string]interface{} `json:"attributes"`
}

// FindByPhone tries each phone variant against the contacts API and returns
// the first hit, or (nil, nil) when no variant matches. A 404 on a variant
// just means that variant is unknown; any other failure is kept and returned
// after the remaining variants have been tried, so an API outage is not
// mistaken for a missing contact.
func (c *Client) FindByPhone(ctx context.Context, phoneVariants []string) (*service.DirectoryContact, error) {
	var lastErr error
	for _, variant := range phoneVariants {
		var resp contactResponse
		err := c.do(ctx, http.MethodGet,
			"/contacts/"+url.PathEscape(variant)+"?identifierType=phone_id", nil, &resp)
		if err != nil {
			if !isNotFound(err) {
				lastErr = err
			}
			continue
		}
		if resp.Email != "" {
			return toDirectoryContact(resp), nil
		}
	}
	return nil, lastErr
}

func (c *Client) FindByEmail(ctx context.Context, email string) (*service.DirectoryContact, error) {
	var resp contactResponse
	err := c.do(ctx, http.MethodGet, "/contacts/"+url.PathEscape(email), nil, &resp)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toDirectoryContact(resp), nil
}

// UpsertContact creates or updates a contact with the outreach attributes.
func (c *Client) UpsertContact(ctx context.Context, contact service.ContactUpsert) error {
	payload := map[string]interface{}{
		"email":         contact.Email,
		"updateEnabled": true,
		"attributes": map[string]interface{}{
			"FIRSTNAME":         contact.FirstName,
			"LASTNAME":          contact.LastName,
			"FULL_NAME":         contact.FullName,
			"SMS":               contact.Phone,
			"CITY":              contact.City,
			"STATE":             contact.State,
			"PROPERTY_ADDRESS":  contact.PropertyAddress,
			"PROPERTY_VALUE":    contact.PropertyValue,
			"ESTIMATED_REVENUE": contact.EstimatedRevenue,
			lastOutreachAttr:    contact.LastOutreachAt.Format(time.RFC3339),
		},
	}
	return c.do(ctx, http.MethodPost, "/contacts", payload, nil)
}

func toDirectoryContact(resp contactResponse) *service.DirectoryContact {
	contact := &service.DirectoryContact{Email: resp.Email}
	if raw, ok := resp.Attributes[lastOutreachAttr].(string); ok && raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			contact.LastOutreachAt = &t
		}
	}
	return contact
}

type apiError struct {
	Status int
	Body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("brevo API returned %d: %s", e.Status, e.Body)
}

func isNotFound(err error) bool {
	apiErr, ok := err.(*apiError)
	return ok && apiErr.Status == http.StatusNotFound
}

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	if c.APIKey == "" {
		return fmt.Errorf("brevo API key not configured")
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("api-key", c.APIKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &apiError{Status: resp.StatusCode, Body: string(b)}
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

var (
	_ service.EmailTransport   = (*Client)(nil)
	_ service.ContactDirectory = (*Client)(nil)
)
