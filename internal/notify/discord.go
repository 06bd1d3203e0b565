package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/jkowalik/billwatch/internal/common"
	"github.com/jkowalik/billwatch/internal/model"
	"github.com/jkowalik/billwatch/internal/tomojdom"
)

const notifierUserAgent = "billwatch/1.0 (+https://github.com/jkowalik/billwatch)"

// DiscordNotifier posts one webhook message per new item: all charges
// first, each with its document fetched and attached, then all payments.
// Messages go out strictly in order, one blocking call each; the first
// non-success response fails the whole notification step, which blocks
// snapshot persistence upstream.
type DiscordNotifier struct {
	webhookURL string
	accountID  int64
	docs       DocumentFetcher
	httpClient *http.Client
}

// webhookPayload is the payload_json field of a Discord webhook request.
type webhookPayload struct {
	Content         string          `json:"content"`
	AllowedMentions allowedMentions `json:"allowed_mentions"`
}

type allowedMentions struct {
	Parse []string `json:"parse"`
}

// NewDiscordNotifier creates a webhook notifier. The notifier owns a
// separate HTTP session from the portal client, scoped to the
// notification phase.
func NewDiscordNotifier(webhookURL string, accountID int64, docs DocumentFetcher) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: webhookURL,
		accountID:  accountID,
		docs:       docs,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Close releases the notifier's network resources.
func (n *DiscordNotifier) Close() {
	n.httpClient.CloseIdleConnections()
}

// Notify dispatches one message per item, charges before payments.
func (n *DiscordNotifier) Notify(ctx context.Context, charges []model.Charge, payments []model.Payment) error {
	for _, charge := range charges {
		doc, err := n.docs.DownloadDocument(ctx, n.accountID, charge)
		if err != nil {
			return err
		}
		content := fmt.Sprintf("📢 You have a new settlement: **%s**\nAmount: **%.2f PLN**\nDue date: **%s**",
			charge.Title, charge.Value, charge.DueDate.Format("02 Jan 2006"))
		if err := n.send(ctx, content, doc); err != nil {
			return fmt.Errorf("notify charge %q: %w", charge.Title, err)
		}
	}

	for _, payment := range payments {
		content := fmt.Sprintf("💸 New payment recorded!\nAmount: **%.2f PLN**\nDate: **%s**",
			payment.Value, payment.Date.Format("02 Jan 2006"))
		if err := n.send(ctx, content, nil); err != nil {
			return fmt.Errorf("notify payment of %s: %w", payment.Date, err)
		}
	}

	return nil
}

// send posts one multipart webhook request: a payload_json field and an
// optional file part.
func (n *DiscordNotifier) send(ctx context.Context, content string, doc *tomojdom.Document) error {
	payload, err := json.Marshal(webhookPayload{
		Content:         "@everyone " + content,
		AllowedMentions: allowedMentions{Parse: []string{"everyone"}},
	})
	if err != nil {
		return fmt.Errorf("failed to encode webhook payload: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("payload_json", string(payload)); err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	if doc != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, doc.Filename))
		header.Set("Content-Type", doc.ContentType)
		part, partErr := writer.CreatePart(header)
		if partErr != nil {
			return fmt.Errorf("failed to build webhook request: %w", partErr)
		}
		if _, writeErr := part.Write(doc.Data); writeErr != nil {
			return fmt.Errorf("failed to build webhook request: %w", writeErr)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, &body)
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("User-Agent", notifierUserAgent)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return fmt.Errorf("%w: webhook returned %d - %s", common.ErrTransport, resp.StatusCode, respBody)
	}

	return nil
}
