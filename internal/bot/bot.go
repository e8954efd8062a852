package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Sender delivers one text message to one phone number.
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// CloudClient talks to the WhatsApp Business Cloud API.
type CloudClient struct {
	token   string
	phoneID string
	apiURL  string
	httpc   *http.Client
}

func NewCloudClient(apiURL, phoneID, token string) *CloudClient {
	return &CloudClient{
		token:   token,
		phoneID: phoneID,
		apiURL:  strings.TrimRight(apiURL, "/"),
		httpc:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *CloudClient) post(ctx context.Context, path string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp %s: %s", path, resp.Status)
	}
	return nil
}

// Send posts a plain text message. phone must be in +<country><number> form.
func (c *CloudClient) Send(ctx context.Context, phone, text string) error {
	data := map[string]any{
		"messaging_product": "whatsapp",
		"to":                strings.TrimPrefix(phone, "+"),
		"type":              "text",
		"text":              map[string]any{"body": text},
	}
	return c.post(ctx, c.phoneID+"/messages", data)
}

// ConsoleSender only logs; used when no API token is configured.
type ConsoleSender struct{}

func (ConsoleSender) Send(_ context.Context, phone, text string) error {
	log.Printf("[whatsapp] to %s:\n%s", phone, text)
	return nil
}

// NewSender picks the Cloud API when a token and phone id are set.
func NewSender(apiURL, phoneID, token string) Sender {
	if token == "" || phoneID == "" {
		return ConsoleSender{}
	}
	return NewCloudClient(apiURL, phoneID, token)
}
