package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

// mockMessageService is a mock implementation of the Message Service for testing
type mockMessageService struct {
	fetchMessagesFn func(ctx context.Context, remoteJID string) ([]models.RawMessageRecord, error)
	calls           int
}

func (m *mockMessageService) FetchMessages(ctx context.Context, remoteJID string) ([]models.RawMessageRecord, error) {
	m.calls++
	if m.fetchMessagesFn != nil {
		return m.fetchMessagesFn(ctx, remoteJID)
	}
	return nil, newNotFoundError()
}

// testLogger creates a logger that discards output for testing
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAnalyzer(client MessageService, filterByDate bool) *ConversationAnalyzer {
	return NewConversationAnalyzer(client, NewAggregator(time.UTC, 0), filterByDate, testLogger())
}

func TestConversationAnalyzer_AnalyzeConversation_NormalizesPhone(t *testing.T) {
	var gotJID string

	client := &mockMessageService{
		fetchMessagesFn: func(ctx context.Context, remoteJID string) ([]models.RawMessageRecord, error) {
			gotJID = remoteJID
			return []models.RawMessageRecord{
				conversation("Ana", "oi", 1000),
				conversation("Ana", "tudo bem", 500),
			}, nil
		},
	}

	result, err := newTestAnalyzer(client, false).AnalyzeConversation(context.Background(), models.ConversationQuery{
		Phone: "(11) 99999-9999",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotJID != "5511999999999@s.whatsapp.net" {
		t.Errorf("expected normalized JID, got %s", gotJID)
	}
	if client.calls != 1 {
		t.Errorf("expected exactly one fetch, got %d", client.calls)
	}
	if result.MessageCount != 2 {
		t.Errorf("expected 2 messages, got %d", result.MessageCount)
	}

	stat, _ := result.UserStats.Get("Ana")
	if stat.WordCount != 3 {
		t.Errorf("expected word count 3, got %d", stat.WordCount)
	}
}

func TestConversationAnalyzer_AnalyzeConversation_InvalidDateRange(t *testing.T) {
	client := &mockMessageService{}

	result, err := newTestAnalyzer(client, false).AnalyzeConversation(context.Background(), models.ConversationQuery{
		Phone: "11999999999",
		Window: models.DateWindow{
			Start: time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
			End:   time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		},
	})

	if !errors.Is(err, models.ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}
	if result != nil {
		t.Errorf("expected nil result on error, got %v", result)
	}

	// Rejected before any network call
	if client.calls != 0 {
		t.Errorf("expected no fetch, got %d", client.calls)
	}
}

func TestConversationAnalyzer_AnalyzeConversation_FetchErrors(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedKind    FetchErrorKind
		expectedMessage string
	}{
		{"not found", newNotFoundError(), FetchErrorNotFound, "no messages found for this number"},
		{"backend with message", newBackendError(401, "Unauthorized", errors.New("unexpected status code: 401")), FetchErrorBackend, "Unauthorized"},
		{"backend without message", newBackendError(500, "", errors.New("unexpected status code: 500")), FetchErrorBackend, GenericFetchErrorMessage},
		{"network", newNetworkError(errors.New("connection refused")), FetchErrorNetwork, GenericFetchErrorMessage},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := &mockMessageService{
				fetchMessagesFn: func(ctx context.Context, remoteJID string) ([]models.RawMessageRecord, error) {
					return nil, tc.err
				},
			}

			result, err := newTestAnalyzer(client, false).AnalyzeConversation(context.Background(), models.ConversationQuery{
				Phone: "11999999999",
			})

			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if result != nil {
				t.Errorf("expected nil result on error, got %v", result)
			}

			var fetchErr *FetchError
			if !errors.As(err, &fetchErr) {
				t.Fatalf("expected error to wrap *FetchError, got %v", err)
			}
			if fetchErr.Kind != tc.expectedKind {
				t.Errorf("expected kind %s, got %s", tc.expectedKind, fetchErr.Kind)
			}
			if msg := UserMessage(err); msg != tc.expectedMessage {
				t.Errorf("expected user message %q, got %q", tc.expectedMessage, msg)
			}
		})
	}
}

func TestConversationAnalyzer_AnalyzeConversation_DateFilter(t *testing.T) {
	records := []models.RawMessageRecord{
		conversation("Ana", "antes", time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC).Unix()),
		conversation("Ana", "dentro", time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC).Unix()),
	}
	query := models.ConversationQuery{
		Phone:  "11999999999",
		Window: models.DateWindow{Start: time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC)},
	}

	tests := []struct {
		name         string
		filterByDate bool
		expected     int
	}{
		{"window ignored when disabled", false, 2},
		{"window applied when enabled", true, 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := &mockMessageService{
				fetchMessagesFn: func(ctx context.Context, remoteJID string) ([]models.RawMessageRecord, error) {
					return records, nil
				},
			}

			result, err := newTestAnalyzer(client, tc.filterByDate).AnalyzeConversation(context.Background(), query)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.MessageCount != tc.expected {
				t.Errorf("expected %d messages, got %d", tc.expected, result.MessageCount)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"invalid date range", models.ErrInvalidDateRange, "start date cannot be after end date"},
		{"unknown error", errors.New("boom"), GenericFetchErrorMessage},
		{"wrapped not found", errors.Join(errors.New("context"), newNotFoundError()), "no messages found for this number"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := UserMessage(tc.err); got != tc.expected {
				t.Errorf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestFetchErrorKind_String(t *testing.T) {
	tests := map[FetchErrorKind]string{
		FetchErrorNotFound: "not_found",
		FetchErrorBackend:  "backend",
		FetchErrorNetwork:  "network",
		FetchErrorKind(42): "unknown(42)",
	}

	for kind, expected := range tests {
		if got := kind.String(); got != expected {
			t.Errorf("expected %q, got %q", expected, got)
		}
	}
}
