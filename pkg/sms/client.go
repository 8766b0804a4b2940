// Package sms provides a client for sending SMS messages through a
// Twilio-compatible REST gateway.
package sms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Client represents an SMS gateway client.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	client     *http.Client
}

// NewClient creates an SMS Client for the given gateway base URL
// (e.g. https://api.twilio.com/2010-04-01) and account credentials.
func NewClient(baseURL, accountSID, authToken, from string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		client:     &http.Client{},
	}
}

// Send delivers one text message to an E.164 phone number. The subject is
// folded into the body since SMS has no subject line.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", c.baseURL, c.accountSID)

	text := body
	if subject != "" {
		text = subject + "\n" + body
	}

	form := url.Values{}
	form.Set("To", to)
	form.Set("From", c.from)
	form.Set("Body", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("sms API error: %s", resp.Status)
	}

	return nil
}
