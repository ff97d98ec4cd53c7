package freeagent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/flairlondon/freeagent-bridge/internal/errors"
)

// Attachment is the base64-encoded file payload embedded in an
// explanation.
type Attachment struct {
	Data        string `json:"data"`
	ContentType string `json:"content_type"`
	FileName    string `json:"file_name"`
}

// Explanation links a bank transaction to a category, description and
// attachment. URL-valued fields are passed through as supplied by the
// caller.
type Explanation struct {
	BankTransaction   string      `json:"bank_transaction"`
	DatedOn           string      `json:"dated_on,omitempty"`
	Description       string      `json:"description,omitempty"`
	GrossValue        string      `json:"gross_value,omitempty"`
	ExplanationAmount string      `json:"explanation_amount,omitempty"`
	Category          string      `json:"category"`
	Attachment        *Attachment `json:"attachment,omitempty"`
}

// FetchAndEncode downloads a file from the given URL and base64-encodes
// it, preserving the served content type. The filename falls back to
// the last URL path segment with any query string stripped.
func (c *Client) FetchAndEncode(ctx context.Context, attachmentURL string) (*Attachment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, attachmentURL, nil)
	if err != nil {
		return nil, fmt.Errorf("attachment fetch %s: %w", attachmentURL, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUpstream, "attachment fetch %s: %v", attachmentURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(errors.ErrUpstream, "attachment fetch %s status %d", attachmentURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrUpstream, "attachment read %s: %v", attachmentURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	attachment := &Attachment{
		Data:        base64.StdEncoding.EncodeToString(data),
		ContentType: contentType,
		FileName:    fileNameFromURL(attachmentURL),
	}

	log.Info().
		Str("event", "attachment_encoded").
		Str("content_type", attachment.ContentType).
		Str("file_name", attachment.FileName).
		Int("size_bytes", len(data)).
		Msg("file encoded to base64")

	return attachment, nil
}

// EncodeHTML wraps inline HTML content as an attachment with a fixed
// content type and filename.
func EncodeHTML(htmlBody string) *Attachment {
	return &Attachment{
		Data:        base64.StdEncoding.EncodeToString([]byte(htmlBody)),
		ContentType: "text/html",
		FileName:    "attachment.html",
	}
}

func fileNameFromURL(attachmentURL string) string {
	name := attachmentURL
	if i := strings.IndexByte(name, '?'); i >= 0 {
		name = name[:i]
	}
	return path.Base(name)
}

// AttachmentURL extracts the nested attachment object from an
// attachment metadata response body.
func AttachmentURL(body json.RawMessage) (json.RawMessage, error) {
	var metadata struct {
		Attachment json.RawMessage `json:"attachment"`
	}
	if err := json.Unmarshal(body, &metadata); err != nil {
		return nil, errors.Wrapf(errors.ErrUpstream, "attachment metadata decode")
	}
	return metadata.Attachment, nil
}
