// Package push provides a client for delivering push notifications to
// device tokens through the FCM HTTP API.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

const defaultEndpoint = "https://fcm.googleapis.com/fcm/send"

// Client represents an FCM client used to send push notifications.
type Client struct {
	endpoint  string
	serverKey string
	client    *http.Client
}

// NewClient creates a push Client. An empty endpoint selects the FCM
// production endpoint; tests point it at a local server.
func NewClient(endpoint, serverKey string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	return &Client{
		endpoint:  endpoint,
		serverKey: serverKey,
		client:    &http.Client{},
	}
}

// sendRequest is the payload for one device token.
type sendRequest struct {
	To           string           `json:"to"`
	Notification notificationBody `json:"notification"`
}

type notificationBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type sendResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
}

// Send pushes one message to one device token.
func (c *Client) Send(ctx context.Context, to, subject, body string) error {
	reqBody := sendRequest{
		To: to,
		Notification: notificationBody{
			Title: subject,
			Body:  body,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+c.serverKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push API error: %s", resp.Status)
	}

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Some gateways reply with an empty body on success.
		return nil
	}

	if result.Success == 0 && result.Failure > 0 {
		return fmt.Errorf("push rejected by gateway")
	}

	return nil
}
