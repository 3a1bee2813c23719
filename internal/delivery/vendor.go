// Package delivery implements the external senders used to deliver
// personalized messages to audience members. All senders satisfy
// audience.Sender; a send error counts as a delivery failure for that one
// recipient.
package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/ignite/crm-engine/internal/pkg/httpretry"
	"github.com/ignite/crm-engine/internal/service/audience"
)

// VendorSender posts messages to the external message vendor's HTTP API.
type VendorSender struct {
	url    string
	client httpretry.HTTPDoer
}

// NewVendorSender creates a sender for the vendor endpoint at url. If
// client is nil, a retrying HTTP client is used.
func NewVendorSender(url string, client httpretry.HTTPDoer) *VendorSender {
	if client == nil {
		client = httpretry.NewRetryClient(nil, 2)
	}
	return &VendorSender{url: url, client: client}
}

// Send posts one message. Any transport fault or non-2xx response is a
// delivery failure.
func (v *VendorSender) Send(ctx context.Context, msg audience.Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal vendor payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build vendor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("vendor call: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("vendor returned status %d", resp.StatusCode)
	}

	log.Printf("[delivery] vendor accepted message for customer %s", msg.CustomerID)
	return nil
}
