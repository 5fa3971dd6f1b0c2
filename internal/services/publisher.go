package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/afterposten/backend/internal/models"
	"github.com/afterposten/backend/pkg/logger"
)

const (
	logTextTruncation = 100
	redactedValue     = "[REDACTED]"
	maxResponseBody   = 1 << 20
)

// PublishTarget is a resolved webhook profile. Secret values are ciphertext.
type PublishTarget struct {
	ID                   string
	Name                 string
	WebhookURL           string
	AuthType             string
	AuthHeaderName       string
	EncryptedAuthValue   string
	EncryptedBearerToken string
	BinaryFieldName      string
	ExtraPayloadJSON     string
}

// PublishPayload is the content of one delivery.
type PublishPayload struct {
	Text            string
	Hashtags        []string
	PostID          string
	ScheduledAt     string
	ProfileName     string
	ExtraFields     map[string]string
	ImagePath       string // relative to the public dir, empty for none
	ImageFormat     string // png, jpeg
	BinaryFieldName string
}

type RequestMeta struct {
	URL        string            `json:"url"`
	Method     string            `json:"method"`
	Headers    map[string]string `json:"headers"`
	TextFields map[string]string `json:"textFields"`
	HasImage   bool              `json:"hasImage"`
}

type ResponseMeta struct {
	StatusCode int         `json:"statusCode,omitempty"`
	StatusText string      `json:"statusText,omitempty"`
	Body       interface{} `json:"body,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// PublishResult is always returned, also for network and auth failures.
type PublishResult struct {
	Success      bool          `json:"success"`
	StatusCode   int           `json:"statusCode"`
	RequestMeta  *RequestMeta  `json:"requestMeta"`
	ResponseMeta *ResponseMeta `json:"responseMeta"`
}

type PingResult struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// WebhookPublisher delivers posts to webhook targets as multipart requests.
type WebhookPublisher struct {
	client    *http.Client
	decrypter interface{ Decrypt(string) (string, error) }
	publicDir string
	now       func() time.Time
}

func NewWebhookPublisher(decrypter interface{ Decrypt(string) (string, error) }, publicDir string, timeout time.Duration) *WebhookPublisher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookPublisher{
		client:    &http.Client{Timeout: timeout},
		decrypter: decrypter,
		publicDir: publicDir,
		now:       time.Now,
	}
}

func (p *WebhookPublisher) authHeaders(target *PublishTarget) (map[string]string, error) {
	switch target.AuthType {
	case models.AuthTypeHeader:
		if target.AuthHeaderName == "" || target.EncryptedAuthValue == "" {
			return map[string]string{}, nil
		}
		value, err := p.decrypter.Decrypt(target.EncryptedAuthValue)
		if err != nil {
			return nil, fmt.Errorf("decrypt auth header: %w", err)
		}
		return map[string]string{target.AuthHeaderName: value}, nil
	case models.AuthTypeBearer:
		if target.EncryptedBearerToken == "" {
			return map[string]string{}, nil
		}
		token, err := p.decrypter.Decrypt(target.EncryptedBearerToken)
		if err != nil {
			return nil, fmt.Errorf("decrypt bearer token: %w", err)
		}
		return map[string]string{"Authorization": "Bearer " + token}, nil
	default:
		return map[string]string{}, nil
	}
}

// sanitizeHeaders redacts every header that may carry a credential.
func sanitizeHeaders(headers map[string]string) map[string]string {
	safe := make(map[string]string, len(headers))
	for name, value := range headers {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "auth") || strings.Contains(lower, "token") ||
			strings.Contains(lower, "bearer") || http.CanonicalHeaderKey(name) == "Authorization" {
			value = redactedValue
		}
		safe[name] = value
	}
	return safe
}

func truncateText(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

type formField struct{ name, value string }

func (payload *PublishPayload) formFields() []formField {
	hashtags := payload.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}
	tags, _ := json.Marshal(hashtags)

	fields := []formField{
		{"text", payload.Text},
		{"hashtags", string(tags)},
		{"postId", payload.PostID},
		{"scheduledAt", payload.ScheduledAt},
		{"environment", payload.ProfileName},
		{"profileName", payload.ProfileName},
	}

	keys := make([]string, 0, len(payload.ExtraFields))
	for k := range payload.ExtraFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, formField{k, payload.ExtraFields[k]})
	}
	return fields
}

// Publish performs one delivery attempt. It never returns an error; every
// failure is reported through the result.
func (p *WebhookPublisher) Publish(ctx context.Context, target *PublishTarget, payload *PublishPayload) *PublishResult {
	log := logger.Component("publisher")
	fields := payload.formFields()

	textFields := make(map[string]string, len(fields))
	for _, f := range fields {
		if f.name == "environment" {
			continue
		}
		textFields[f.name] = f.value
	}
	textFields["text"] = truncateText(payload.Text, logTextTruncation)

	meta := &RequestMeta{
		URL:        target.WebhookURL,
		Method:     http.MethodPost,
		Headers:    map[string]string{"Content-Type": "multipart/form-data"},
		TextFields: textFields,
	}
	fail := func(err error) *PublishResult {
		log.Warn().Err(err).Str("post_id", payload.PostID).Str("profile", target.Name).Msg("[Publisher] Delivery failed")
		return &PublishResult{StatusCode: 0, RequestMeta: meta, ResponseMeta: &ResponseMeta{Error: err.Error()}}
	}

	auth, err := p.authHeaders(target)
	if err != nil {
		return fail(err)
	}
	// credential headers are redacted whatever their name
	for name := range auth {
		meta.Headers[name] = redactedValue
	}
	meta.Headers = sanitizeHeaders(meta.Headers)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, f := range fields {
		if err := mw.WriteField(f.name, f.value); err != nil {
			return fail(err)
		}
	}

	if payload.ImagePath != "" {
		data, err := os.ReadFile(filepath.Join(p.publicDir, filepath.FromSlash(payload.ImagePath)))
		if err == nil {
			ext, contentType := "png", "image/png"
			if payload.ImageFormat == "jpeg" {
				ext, contentType = "jpg", "image/jpeg"
			}
			fieldName := payload.BinaryFieldName
			if fieldName == "" {
				fieldName = models.DefaultBinaryFieldName
			}
			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="post-%s.%s"`, fieldName, payload.PostID, ext))
			h.Set("Content-Type", contentType)
			part, err := mw.CreatePart(h)
			if err != nil {
				return fail(err)
			}
			if _, err := part.Write(data); err != nil {
				return fail(err)
			}
			meta.HasImage = true
		} else {
			log.Debug().Err(err).Str("path", payload.ImagePath).Msg("[Publisher] Image not readable, sending without it")
		}
	}
	if err := mw.Close(); err != nil {
		return fail(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.WebhookURL, &body)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	for name, value := range auth {
		req.Header.Set(name, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	respMeta := &ResponseMeta{
		StatusCode: resp.StatusCode,
		StatusText: strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))),
		Body:       decodeBody(raw),
	}
	success := resp.StatusCode >= 200 && resp.StatusCode < 300

	log.Info().
		Str("post_id", payload.PostID).
		Str("profile", target.Name).
		Int("status", resp.StatusCode).
		Bool("has_image", meta.HasImage).
		Msg("[Publisher] Webhook responded")

	return &PublishResult{
		Success:      success,
		StatusCode:   resp.StatusCode,
		RequestMeta:  meta,
		ResponseMeta: respMeta,
	}
}

// decodeBody returns parsed JSON when possible, else the raw text.
func decodeBody(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	var parsed interface{}
	if err := json.Unmarshal(raw, &parsed); err == nil {
		return parsed
	}
	return string(raw)
}

// TestPing sends a small JSON ping to check connectivity and auth.
func (p *WebhookPublisher) TestPing(ctx context.Context, target *PublishTarget) *PingResult {
	auth, err := p.authHeaders(target)
	if err != nil {
		return &PingResult{Message: err.Error()}
	}

	ping, _ := json.Marshal(map[string]interface{}{
		"test":        true,
		"profileName": target.Name,
		"timestamp":   p.now().UTC().Format(time.RFC3339Nano),
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.WebhookURL, bytes.NewReader(ping))
	if err != nil {
		return &PingResult{Message: err.Error()}
	}
	for name, value := range auth {
		req.Header.Set(name, value)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return &PingResult{Message: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBody))

	result := &PingResult{
		Success:    resp.StatusCode >= 200 && resp.StatusCode < 300,
		StatusCode: resp.StatusCode,
		Message:    "Ping successful",
	}
	if !result.Success {
		result.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	return result
}
