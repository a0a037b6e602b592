package services

import (
	"slices"
	"strings"
	"time"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

// DefaultMaxMessages caps the number of conversation messages analyzed per query
const DefaultMaxMessages = 500

// DateTimeLayout is the pt-BR date and time layout used for date ranges
const DateTimeLayout = "02/01/2006, 15:04"

// Aggregator turns raw message records into conversation statistics.
// It holds no per-query state and is safe for concurrent use.
type Aggregator struct {
	location    *time.Location
	maxMessages int
}

// NewAggregator creates a new aggregator.
// Dates are rendered in location; a non-positive maxMessages falls back to DefaultMaxMessages.
func NewAggregator(location *time.Location, maxMessages int) *Aggregator {
	if location == nil {
		location = time.Local
	}
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}

	return &Aggregator{
		location:    location,
		maxMessages: maxMessages,
	}
}

// Aggregate computes the analysis of a conversation.
// Records are filtered to conversation messages, capped in their original order,
// sorted chronologically and folded into per-user stats.
func (a *Aggregator) Aggregate(records []models.RawMessageRecord) *models.AnalysisResult {
	return a.aggregate(records, models.DateWindow{})
}

// AggregateWithin is Aggregate with an extra date filter applied before the cap
func (a *Aggregator) AggregateWithin(records []models.RawMessageRecord, window models.DateWindow) *models.AnalysisResult {
	return a.aggregate(records, window)
}

func (a *Aggregator) aggregate(records []models.RawMessageRecord, window models.DateWindow) *models.AnalysisResult {
	messages := make([]models.NormalizedMessage, 0, min(len(records), a.maxMessages))

	for i := range records {
		record := &records[i]

		if !record.IsConversation() {
			continue
		}
		if !window.IsZero() && !window.Contains(int64(record.Timestamp)) {
			continue
		}

		// The cap keeps the first records in backend order, not the most recent ones
		if len(messages) == a.maxMessages {
			break
		}

		messages = append(messages, models.NormalizedMessage{
			UserName:  record.SenderName(),
			Text:      record.Text(),
			Timestamp: int64(record.Timestamp),
		})
	}

	slices.SortStableFunc(messages, func(x, y models.NormalizedMessage) int {
		switch {
		case x.Timestamp < y.Timestamp:
			return -1
		case x.Timestamp > y.Timestamp:
			return 1
		default:
			return 0
		}
	})

	stats := newUserStatsAggregator()
	for _, msg := range messages {
		stats.processMessage(msg)
	}

	return &models.AnalysisResult{
		MessageCount:     len(messages),
		DateRange:        a.dateRange(messages),
		UserStats:        stats.getResult(),
		RawConversations: messages,
	}
}

// dateRange renders the span between the first and last messages, or "" without messages
func (a *Aggregator) dateRange(messages []models.NormalizedMessage) string {
	if len(messages) == 0 {
		return ""
	}

	first := messages[0].Timestamp
	last := messages[len(messages)-1].Timestamp

	return FormatDateTime(first, a.location) + " - " + FormatDateTime(last, a.location)
}

// FormatDateTime renders a Unix timestamp with DateTimeLayout in location
func FormatDateTime(timestamp int64, location *time.Location) string {
	return time.Unix(timestamp, 0).In(location).Format(DateTimeLayout)
}

// WordCount counts the tokens of a text split on single spaces.
// Consecutive spaces yield empty tokens and an empty text counts as one word.
func WordCount(text string) int {
	return strings.Count(text, " ") + 1
}

// userStatsAggregator folds chronologically sorted messages into per-user stats
type userStatsAggregator struct {
	stats *models.UserStats
}

func newUserStatsAggregator() *userStatsAggregator {
	return &userStatsAggregator{
		stats: models.NewUserStats(),
	}
}

// processMessage updates the stats of the message's sender (incremental computation)
func (agg *userStatsAggregator) processMessage(msg models.NormalizedMessage) {
	stat := agg.stats.Track(msg.UserName, msg.Timestamp)

	stat.MessageCount++
	stat.WordCount += WordCount(msg.Text)
	stat.LastMessage = msg.Timestamp
}

func (agg *userStatsAggregator) getResult() *models.UserStats {
	return agg.stats
}
