package export

import (
	"math"

	"github.com/hasanbasricaglayan/whatsapp-conversation-analyzer/internal/models"
)

const (
	// ReportActivityDays is the number of most recent active days shown in a report
	ReportActivityDays = 7

	// ReportRecentMessages is the number of latest messages shown in a report
	ReportRecentMessages = 5
)

// Report is the operator summary of an analysis
type Report struct {
	MessageCount   int             `json:"messageCount"`
	Participants   int             `json:"participants"`
	DateRange      string          `json:"dateRange"`
	DailyActivity  []DailyCount    `json:"dailyActivity"`
	Users          []UserSummary   `json:"users"`
	RecentMessages []RecentMessage `json:"recentMessages"`
}

// UserSummary is the participation of one user
type UserSummary struct {
	Name         string `json:"name"`
	MessageCount int    `json:"messageCount"`
	AverageWords int    `json:"averageWords"`
}

// RecentMessage is a message as listed in the report
type RecentMessage struct {
	UserName string `json:"name_user"`
	Text     string `json:"text"`
	Time     string `json:"time"`
}

// BuildReport summarizes an analysis: totals, last active days, per-user participation and latest messages
func (e *Exporter) BuildReport(result *models.AnalysisResult) *Report {
	report := &Report{
		DailyActivity:  []DailyCount{},
		Users:          []UserSummary{},
		RecentMessages: []RecentMessage{},
	}
	if result == nil {
		return report
	}

	report.MessageCount = result.MessageCount
	report.Participants = result.UserStats.Len()
	report.DateRange = result.DateRange
	report.DailyActivity = e.DailyActivity(result.RawConversations, ReportActivityDays)

	for _, name := range result.UserStats.Names() {
		stat, _ := result.UserStats.Get(name)
		report.Users = append(report.Users, UserSummary{
			Name:         name,
			MessageCount: stat.MessageCount,
			AverageWords: AverageWords(stat),
		})
	}

	messages := result.RawConversations
	if len(messages) > ReportRecentMessages {
		messages = messages[len(messages)-ReportRecentMessages:]
	}
	for _, msg := range messages {
		report.RecentMessages = append(report.RecentMessages, RecentMessage{
			UserName: msg.UserName,
			Text:     msg.Text,
			Time:     e.FormatTimestamp(msg.Timestamp),
		})
	}

	return report
}

// AverageWords returns the average word count per message of a user, rounded to the nearest integer
func AverageWords(stat models.UserStat) int {
	if stat.MessageCount == 0 {
		return 0
	}
	return int(math.Round(float64(stat.WordCount) / float64(stat.MessageCount)))
}
