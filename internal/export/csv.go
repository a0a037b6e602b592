package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

// CSVHeader is the header row of conversation exports
var CSVHeader = []string{"Data", "Usuário", "Mensagem"}

// WriteCSV writes the conversation as CSV: one row per message with its date, sender and text.
// Fields are quoted when needed and embedded quotes are doubled.
func (e *Exporter) WriteCSV(w io.Writer, result *models.AnalysisResult) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(CSVHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, msg := range messagesOf(result) {
		row := []string{
			e.FormatTimestamp(msg.Timestamp),
			msg.UserName,
			msg.Text,
		}
		if err := csvWriter.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}

	return nil
}

// CSVFilename returns the download name of a conversation export made on day
func CSVFilename(day time.Time) string {
	return fmt.Sprintf("conversas_whatsapp_%s.csv", day.Format("2006-01-02"))
}
