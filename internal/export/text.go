package export

import (
	"bufio"
	"fmt"
	"io"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

// WriteText writes the conversation as plain text, one "[time] user: text" line per message.
// Lines are separated by "\n" with no trailing newline.
func (e *Exporter) WriteText(w io.Writer, result *models.AnalysisResult) error {
	bw := bufio.NewWriter(w)

	for i, msg := range messagesOf(result) {
		if i > 0 {
			if err := bw.WriteByte('\n'); err != nil {
				return fmt.Errorf("failed to write text: %w", err)
			}
		}
		if _, err := fmt.Fprintf(bw, "[%s] %s: %s", e.FormatTimestamp(msg.Timestamp), msg.UserName, msg.Text); err != nil {
			return fmt.Errorf("failed to write text: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to flush text: %w", err)
	}

	return nil
}
