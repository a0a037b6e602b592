package handlers_test

import (
	"context"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/services"
)

// mockAnalyzerService is a mock implementation of the Analyzer Service for testing
type mockAnalyzerService struct {
	analyzeConversationFn func(ctx context.Context, query models.ConversationQuery) (*models.AnalysisResult, error)
	calls                 int
}

// Check interface implementation at compile-time
var _ services.AnalyzerService = &mockAnalyzerService{}

func (m *mockAnalyzerService) AnalyzeConversation(ctx context.Context, query models.ConversationQuery) (*models.AnalysisResult, error) {
	m.calls++
	if m.analyzeConversationFn != nil {
		return m.analyzeConversationFn(ctx, query)
	}
	return &models.AnalysisResult{UserStats: models.NewUserStats(), RawConversations: []models.NormalizedMessage{}}, nil
}

// sampleResult is a two-message conversation between Ana and Bruno
func sampleResult() *models.AnalysisResult {
	stats := models.NewUserStats()

	ana := stats.Track("Ana", 1700000000)
	ana.MessageCount = 1
	ana.WordCount = 1

	bruno := stats.Track("Bruno", 1700000060)
	bruno.MessageCount = 1
	bruno.WordCount = 2

	return &models.AnalysisResult{
		MessageCount: 2,
		DateRange:    "14/11/2023, 22:13 - 14/11/2023, 22:14",
		UserStats:    stats,
		RawConversations: []models.NormalizedMessage{
			{UserName: "Ana", Text: "oi", Timestamp: 1700000000},
			{UserName: "Bruno", Text: "tudo bem", Timestamp: 1700000060},
		},
	}
}
