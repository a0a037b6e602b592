package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/config"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

const tracerName = "github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/services"

// maxErrorBodySize bounds how much of an error response is read
const maxErrorBodySize = 64 << 10

// MessageService defines the message service interface
type MessageService interface {
	FetchMessages(ctx context.Context, remoteJID string) ([]models.RawMessageRecord, error)
}

// MessageClient queries the messaging backend for the records of a conversation
type MessageClient struct {
	endpoint   string
	apiKey     string
	logger     *slog.Logger
	httpClient *http.Client
}

// Check interface implementation at compile-time
var _ MessageService = &MessageClient{}

// NewMessageClient creates a new message client from the backend configuration
func NewMessageClient(cfg config.BackendConfig, logger *slog.Logger) *MessageClient {
	return &MessageClient{
		endpoint: cfg.FindMessagesURL(),
		apiKey:   cfg.APIKey,
		logger:   logger,

		// A zero timeout leaves the deadline to the caller's context
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// FetchMessages sends one query for the conversation identified by remoteJID and returns its records.
// Fails with a *FetchError: NotFound when the list is absent or empty,
// Backend on error statuses or unreadable bodies, Network when the request fails.
func (c *MessageClient) FetchMessages(ctx context.Context, remoteJID string) ([]models.RawMessageRecord, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "MessageClient.FetchMessages")
	defer span.End()

	span.SetAttributes(attribute.String("whatsapp.remote_jid", remoteJID))

	records, err := c.fetchMessages(ctx, remoteJID)
	if err != nil {
		var fetchErr *FetchError
		if errors.As(err, &fetchErr) {
			span.SetAttributes(attribute.String("fetch.error_kind", fetchErr.Kind.String()))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("fetch.records", len(records)))

	return records, nil
}

func (c *MessageClient) fetchMessages(ctx context.Context, remoteJID string) ([]models.RawMessageRecord, error) {
	resp, err := c.postQuery(ctx, remoteJID)
	if err != nil {
		c.logger.ErrorContext(ctx, "Message backend unreachable", "err", err.Error())
		return nil, newNetworkError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		message := readBackendMessage(resp.Body)
		c.logger.ErrorContext(ctx, "Message backend returned an error", "status", resp.StatusCode, "message", message)
		return nil, newBackendError(resp.StatusCode, message, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	var envelope models.FindMessagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode message backend response", "err", err.Error())
		return nil, newBackendError(resp.StatusCode, "", fmt.Errorf("failed to decode response: %w", err))
	}

	raws := envelope.GetRecords()
	if len(raws) == 0 {
		c.logger.InfoContext(ctx, "No messages found")
		return nil, newNotFoundError()
	}

	records, skipped := models.DecodeRecords(raws)
	if skipped > 0 {
		c.logger.WarnContext(ctx, "Skipped undecodable message records", "skipped", skipped)
	}

	c.logger.InfoContext(ctx, "Messages fetched", "records", len(records))

	return records, nil
}

// postQuery sends the message query to the backend
func (c *MessageClient) postQuery(ctx context.Context, remoteJID string) (*http.Response, error) {
	body, err := json.Marshal(models.NewFindMessagesRequest(remoteJID))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create message query request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message query: %w", err)
	}

	return resp, nil
}

// readBackendMessage extracts the backend's own error message from an error response.
// Returns "" when the body carries none.
func readBackendMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil || len(data) == 0 {
		return ""
	}

	var body models.BackendErrorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}

	if message := decodeMessage(body.Message); message != "" {
		return message
	}
	if body.Response != nil {
		return decodeMessage(body.Response.Message)
	}

	return ""
}

// decodeMessage accepts a JSON string or a list of strings
func decodeMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var message string
	if err := json.Unmarshal(raw, &message); err == nil {
		return strings.TrimSpace(message)
	}

	var messages []string
	if err := json.Unmarshal(raw, &messages); err == nil {
		parts := make([]string, 0, len(messages))
		for _, m := range messages {
			if m = strings.TrimSpace(m); m != "" {
				parts = append(parts, m)
			}
		}
		return strings.Join(parts, "; ")
	}

	return ""
}

