package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AnalysisResult represents the output of a conversation analysis
type AnalysisResult struct {
	MessageCount     int                 `json:"messageCount"`
	DateRange        string              `json:"dateRange"`
	UserStats        *UserStats          `json:"userStats"`
	RawConversations []NormalizedMessage `json:"rawConversations"`
}

// UserStat holds the accumulated activity of one participant
type UserStat struct {
	MessageCount int   `json:"messageCount"`
	WordCount    int   `json:"wordCount"`
	FirstMessage int64 `json:"firstMessage"`
	LastMessage  int64 `json:"lastMessage"`
}

// UserStats maps user names to their stats, keeping first-appearance order.
// The zero value is ready to use.
type UserStats struct {
	names []string
	stats map[string]*UserStat
}

// NewUserStats creates an empty UserStats
func NewUserStats() *UserStats {
	return &UserStats{
		names: []string{},
		stats: make(map[string]*UserStat),
	}
}

// Track returns the stat of a user, creating it on first appearance
func (s *UserStats) Track(name string, timestamp int64) *UserStat {
	if s.stats == nil {
		s.stats = make(map[string]*UserStat)
	}

	stat, ok := s.stats[name]
	if !ok {
		stat = &UserStat{
			FirstMessage: timestamp,
			LastMessage:  timestamp,
		}
		s.stats[name] = stat
		s.names = append(s.names, name)
	}

	return stat
}

// Get returns a copy of the stat of a user
func (s *UserStats) Get(name string) (UserStat, bool) {
	if s == nil {
		return UserStat{}, false
	}
	stat, ok := s.stats[name]
	if !ok {
		return UserStat{}, false
	}
	return *stat, true
}

// Names returns the user names in first-appearance order
func (s *UserStats) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// Len returns the number of distinct users
func (s *UserStats) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// MarshalJSON encodes the stats as a JSON object whose keys follow first-appearance order
func (s *UserStats) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, name := range s.Names() {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal user name: %w", err)
		}

		val, err := json.Marshal(s.stats[name])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats of %s: %w", name, err)
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of user stats, keeping the key order of the document
func (s *UserStats) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("failed to read user stats: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected user stats object, got %v", tok)
	}

	*s = *NewUserStats()

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("failed to read user name: %w", err)
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected user name, got %v", tok)
		}

		var stat UserStat
		if err := dec.Decode(&stat); err != nil {
			return fmt.Errorf("failed to unmarshal stats of %s: %w", name, err)
		}

		if _, exists := s.stats[name]; !exists {
			s.names = append(s.names, name)
		}
		s.stats[name] = &stat
	}

	return nil
}

// DateWindow is an optional calendar date range.
// A zero Start or End leaves that side open. End is inclusive.
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set
func (w DateWindow) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Validate rejects windows whose start is after their end
func (w DateWindow) Validate() error {
	if !w.Start.IsZero() && !w.End.IsZero() && w.Start.After(w.End) {
		return ErrInvalidDateRange
	}
	return nil
}

// Contains reports whether a timestamp falls inside the window.
// The end bound covers the whole day it names.
func (w DateWindow) Contains(timestamp int64) bool {
	t := time.Unix(timestamp, 0)

	if !w.Start.IsZero() && t.Before(w.Start) {
		return false
	}
	if !w.End.IsZero() && !t.Before(w.End.AddDate(0, 0, 1)) {
		return false
	}

	return true
}

// ConversationQuery is an operator request for the analysis of one conversation
type ConversationQuery struct {
	Phone  string
	Window DateWindow
}
