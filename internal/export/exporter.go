package export

import (
	"time"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

const (
	// DateLayout is the pt-BR calendar date layout used for daily activity
	DateLayout = "02/01/2006"

	// TimestampLayout is the pt-BR date and time layout used in exports
	TimestampLayout = "02/01/2006, 15:04:05"
)

// Exporter renders analysis results for operators.
// All dates are shown in its location.
type Exporter struct {
	location *time.Location
}

// NewExporter creates a new exporter rendering dates in location
func NewExporter(location *time.Location) *Exporter {
	if location == nil {
		location = time.Local
	}
	return &Exporter{location: location}
}

// FormatTimestamp renders a Unix timestamp with TimestampLayout
func (e *Exporter) FormatTimestamp(timestamp int64) string {
	return e.localTime(timestamp).Format(TimestampLayout)
}

func (e *Exporter) localTime(timestamp int64) time.Time {
	return time.Unix(timestamp, 0).In(e.location)
}

// messagesOf returns the conversation of a result, tolerating a nil result
func messagesOf(result *models.AnalysisResult) []models.NormalizedMessage {
	if result == nil {
		return nil
	}
	return result.RawConversations
}
