package services

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/logger"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

// AnalyzerService defines the analyzer service interface
type AnalyzerService interface {
	AnalyzeConversation(ctx context.Context, query models.ConversationQuery) (*models.AnalysisResult, error)
}

// ConversationAnalyzer computes statistics on the messages of one WhatsApp conversation
type ConversationAnalyzer struct {
	messageClient MessageService
	aggregator    *Aggregator
	filterByDate  bool
	logger        *slog.Logger
}

// Check interface implementation at compile-time
var _ AnalyzerService = &ConversationAnalyzer{}

// NewConversationAnalyzer creates a new conversation analyzer.
// When filterByDate is false the query's date window is validated but not applied.
func NewConversationAnalyzer(messageClient MessageService, aggregator *Aggregator, filterByDate bool, logger *slog.Logger) *ConversationAnalyzer {
	return &ConversationAnalyzer{
		messageClient: messageClient,
		aggregator:    aggregator,
		filterByDate:  filterByDate,
		logger:        logger,
	}
}

// AnalyzeConversation orchestrates the complete analysis workflow.
// The date window is checked before any network call; the phone is normalized,
// the conversation fetched once and its records aggregated.
func (a *ConversationAnalyzer) AnalyzeConversation(ctx context.Context, query models.ConversationQuery) (*models.AnalysisResult, error) {
	if err := query.Window.Validate(); err != nil {
		return nil, err
	}

	remoteJID := NormalizePhone(query.Phone)
	ctx = logger.WithLogFields(ctx, logger.LogFields{RemoteJID: logger.Ptr(remoteJID)})

	ctx, span := otel.Tracer(tracerName).Start(ctx, "ConversationAnalyzer.AnalyzeConversation")
	defer span.End()

	span.SetAttributes(
		attribute.String("whatsapp.remote_jid", remoteJID),
		attribute.Bool("analysis.filter_by_date", a.filterByDate && !query.Window.IsZero()),
	)

	records, err := a.messageClient.FetchMessages(ctx, remoteJID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}

	var result *models.AnalysisResult
	if a.filterByDate {
		result = a.aggregator.AggregateWithin(records, query.Window)
	} else {
		result = a.aggregator.Aggregate(records)
	}

	span.SetAttributes(
		attribute.Int("analysis.records", len(records)),
		attribute.Int("analysis.messages", result.MessageCount),
		attribute.Int("analysis.users", result.UserStats.Len()),
	)

	a.logger.InfoContext(ctx, "Conversation analyzed",
		"records", len(records),
		"messages", result.MessageCount,
		"users", result.UserStats.Len(),
	)

	return result, nil
}
