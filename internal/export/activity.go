package export

import (
	"slices"
	"time"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

// DailyCount is the number of messages sent on one calendar day
type DailyCount struct {
	Date  string  `json:"date"`
	Count int     `json:"count"`
	Share float64 `json:"share"` // Percentage of all messages
}

// DailyActivity groups messages by calendar day, oldest day first.
// When limit is positive only the last limit days are kept.
// Shares are computed against all messages, not only the kept days.
func (e *Exporter) DailyActivity(messages []models.NormalizedMessage, limit int) []DailyCount {
	counts := make(map[time.Time]int)
	days := make([]time.Time, 0)

	for _, msg := range messages {
		t := e.localTime(msg.Timestamp)
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.location)

		if _, seen := counts[day]; !seen {
			days = append(days, day)
		}
		counts[day]++
	}

	slices.SortFunc(days, time.Time.Compare)

	if limit > 0 && len(days) > limit {
		days = days[len(days)-limit:]
	}

	activity := make([]DailyCount, 0, len(days))
	for _, day := range days {
		activity = append(activity, DailyCount{
			Date:  day.Format(DateLayout),
			Count: counts[day],
			Share: share(counts[day], len(messages)),
		})
	}

	return activity
}

func share(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
