// Package enformion is the HTTP client for the identity-enrichment provider.
package enformion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/staystra/outreach-backend/internal/service"
)

type Client struct {
	BaseURL   string
	APIName   string
	APISecret string
	HTTP      *http.Client
}

func NewFromEnv() *Client {
	c := &Client{
		BaseURL:   os.Getenv("ENFORMION_BASE_URL"),
		APIName:   os.Getenv("ENFORMION_AP_NAME"),
		APISecret: os.Getenv("ENFORMION_AP_PASSWORD"),
		HTTP:      &http.Client{Timeout: 10 * time.Second},
	}
	if c.BaseURL == "" {
		c.BaseURL = "https://devapi.enformion.com"
	}
	return c
}

type enrichRequest struct {
	FirstName string        `json:"FirstName"`
	LastName  string        `json:"LastName"`
	Address   enrichAddress `json:"Address"`
}

type enrichAddress struct {
	AddressLine1 string `json:"AddressLine1"`
	AddressLine2 string `json:"AddressLine2"`
}

type enrichResponse struct {
	Message string         `json:"message"`
	Results []enrichResult `json:"results"`
	Person  *enrichPerson  `json:"person"`
}

type enrichResult struct {
	Person        *enrichPerson `json:"person"`
	IdentityScore float64       `json:"identityScore"`
}

type enrichPerson struct {
	Emails []struct {
		Email       string `json:"email"`
		IsValidated bool   `json:"isValidated"`
	} `json:"emails"`
	Phones []struct {
		Number string `json:"number"`
	} `json:"phones"`
	Addresses []struct {
		City string `json:"city"`
	} `json:"addresses"`
}

// Enrich queries the provider by name and state and maps the candidate
// identities into the resolver's scoring shape. "No strong matches" comes
// back as an empty slice, not an error.
func (c *Client) Enrich(ctx context.Context, firstName, lastName, state string) ([]service.EnrichedPerson, error) {
	reqBody, err := json.Marshal(enrichRequest{
		FirstName: firstName,
		LastName:  lastName,
		Address:   enrichAddress{AddressLine2: state},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/Contact/Enrich", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("galaxy-ap-name", c.APIName)
	req.Header.Set("galaxy-ap-password", c.APISecret)
	req.Header.Set("galaxy-client-type", "RestAPI")
	req.Header.Set("galaxy-search-type", "DevAPIContactEnrich")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("enrichment API returned %d", resp.StatusCode)
	}

	var body enrichResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}

	if body.Message == "No strong matches" {
		return nil, nil
	}

	results := body.Results
	if len(results) == 0 && body.Person != nil {
		results = []enrichResult{{Person: body.Person}}
	}

	persons := make([]service.EnrichedPerson, 0, len(results))
	for _, res := range results {
		if res.Person == nil {
			continue
		}
		p := service.EnrichedPerson{IdentityScore: res.IdentityScore}
		for _, e := range res.Person.Emails {
			p.Emails = append(p.Emails, service.EnrichedEmail{Address: e.Email, Validated: e.IsValidated})
		}
		for _, ph := range res.Person.Phones {
			p.Phones = append(p.Phones, ph.Number)
		}
		for _, addr := range res.Person.Addresses {
			p.Cities = append(p.Cities, addr.City)
		}
		persons = append(persons, p)
	}
	return persons, nil
}

var _ service.Enricher = (*Client)(nil)
