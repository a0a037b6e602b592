package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/export"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/services"
)

// QueryDateLayout is the layout of the start and end query parameters
const QueryDateLayout = "2006-01-02"

// Output formats of an analysis
const (
	FormatJSON    = "json"
	FormatSummary = "summary"
	FormatCSV     = "csv"
	FormatText    = "text"
	FormatPNG     = "png"
)

// ValidFormats lists all supported output formats
var ValidFormats = map[string]bool{
	FormatJSON:    true,
	FormatSummary: true,
	FormatCSV:     true,
	FormatText:    true,
	FormatPNG:     true,
}

// ConversationAnalysisHandler handles HTTP requests for conversation analysis
type ConversationAnalysisHandler struct {
	analyzer services.AnalyzerService
	exporter *export.Exporter
	location *time.Location
	logger   *slog.Logger
}

// NewConversationAnalysisHandler creates a new analysis request handler.
// Query dates are read in location.
func NewConversationAnalysisHandler(analyzer services.AnalyzerService, exporter *export.Exporter, location *time.Location, logger *slog.Logger) *ConversationAnalysisHandler {
	return &ConversationAnalysisHandler{
		analyzer: analyzer,
		exporter: exporter,
		location: location,
		logger:   logger,
	}
}

// HandleAnalysis processes GET requests to the analysis endpoint
func (h *ConversationAnalysisHandler) HandleAnalysis(c *gin.Context) {
	// Parse and validate query parameters
	query, format, err := h.parseParams(c)
	if err != nil {
		h.sendError(c, http.StatusBadRequest, err.Error())
		return
	}

	ctx := c.Request.Context()

	h.logger.InfoContext(ctx, "Analysis request started", "format", format)

	result, err := h.analyzer.AnalyzeConversation(ctx, query)
	if err != nil {
		status := statusFor(err)
		h.logger.ErrorContext(ctx, "Failed to analyze conversation", "err", err.Error(), "status", status)
		h.sendError(c, status, services.UserMessage(err))
		return
	}

	h.logger.InfoContext(ctx, "Analysis completed successfully", "messages", result.MessageCount, "format", format)

	h.sendResponse(c, format, result)
}

// parseParams extracts and validates query parameters
func (h *ConversationAnalysisHandler) parseParams(c *gin.Context) (models.ConversationQuery, string, error) {
	var query models.ConversationQuery

	// Parse phone parameter
	query.Phone = c.Query("phone")
	if query.Phone == "" {
		return query, "", fmt.Errorf("missing required parameter: phone")
	}
	if !services.HasDigits(query.Phone) {
		return query, "", fmt.Errorf("invalid phone: %s (must contain digits)", query.Phone)
	}

	// Parse optional date range
	var err error
	if query.Window.Start, err = h.parseDate(c.Query("start")); err != nil {
		return query, "", fmt.Errorf("invalid start date: %w", err)
	}
	if query.Window.End, err = h.parseDate(c.Query("end")); err != nil {
		return query, "", fmt.Errorf("invalid end date: %w", err)
	}
	if err := query.Window.Validate(); err != nil {
		return query, "", err
	}

	// Parse format parameter
	format := c.DefaultQuery("format", FormatJSON)
	if !ValidFormats[format] {
		return query, "", fmt.Errorf("invalid format: %s (must be one of: json, summary, csv, text, png)", format)
	}

	return query, format, nil
}

// parseDate reads a YYYY-MM-DD date in the handler's location; "" yields the zero time
func (h *ConversationAnalysisHandler) parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	t, err := time.ParseInLocation(QueryDateLayout, value, h.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s (expected format: YYYY-MM-DD)", value)
	}

	return t, nil
}

// sendResponse renders the result in the requested format
func (h *ConversationAnalysisHandler) sendResponse(c *gin.Context, format string, result *models.AnalysisResult) {
	ctx := c.Request.Context()

	var err error
	switch format {
	case FormatSummary:
		c.JSON(http.StatusOK, h.exporter.BuildReport(result))
		return

	case FormatCSV:
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", export.CSVFilename(time.Now())))
		c.Status(http.StatusOK)
		err = h.exporter.WriteCSV(c.Writer, result)

	case FormatText:
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		err = h.exporter.WriteText(c.Writer, result)

	case FormatPNG:
		c.Header("Content-Type", "image/png")
		c.Status(http.StatusOK)
		err = h.exporter.WriteActivityChart(c.Writer, result)

	default:
		c.JSON(http.StatusOK, result)
		return
	}

	if err != nil {
		h.logger.ErrorContext(ctx, "Failed to write result response", "format", format, "err", err.Error())
	}
}

// sendError sends an error response with appropriate status code
func (h *ConversationAnalysisHandler) sendError(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{"error": message})
}

// statusFor maps analysis failures to HTTP status codes
func statusFor(err error) int {
	if errors.Is(err, models.ErrInvalidDateRange) {
		return http.StatusBadRequest
	}

	var fetchErr *services.FetchError
	if errors.As(err, &fetchErr) {
		switch fetchErr.Kind {
		case services.FetchErrorNotFound:
			return http.StatusNotFound
		case services.FetchErrorBackend, services.FetchErrorNetwork:
			return http.StatusBadGateway
		}
	}

	return http.StatusInternalServerError
}
