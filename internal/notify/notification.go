// Package notify models the transient, auto-dismissing messages shown to the
// shopper after a cart action.
package notify

import (
	"time"

	"github.com/google/uuid"
)

// DefaultDuration is how long a notification stays visible unless overridden.
const DefaultDuration = 3000 * time.Millisecond

// Level is the notification kind. It selects the color.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

var levelColors = map[Level]string{
	LevelSuccess: "#4CAF50",
	LevelError:   "#F44336",
	LevelWarning: "#FF9800",
	LevelInfo:    "#2196F3",
}

// Color returns the hex background color for the level; unknown levels use info.
func (l Level) Color() string {
	if c, ok := levelColors[l]; ok {
		return c
	}
	return levelColors[LevelInfo]
}

// Notification is a single transient message.
type Notification struct {
	ID        string
	Level     Level
	Message   string
	Duration  time.Duration
	CreatedAt time.Time
}

// New builds a notification with a fresh ID and the default duration.
func New(level Level, message string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		Duration:  DefaultDuration,
		CreatedAt: time.Now(),
	}
}

// Success is shorthand for New(LevelSuccess, message).
func Success(message string) Notification { return New(LevelSuccess, message) }

// Error is shorthand for New(LevelError, message).
func Error(message string) Notification { return New(LevelError, message) }

// Info is shorthand for New(LevelInfo, message).
func Info(message string) Notification { return New(LevelInfo, message) }

// WithDuration returns a copy with the given display duration.
// Non-positive durations fall back to DefaultDuration.
func (n Notification) WithDuration(d time.Duration) Notification {
	if d <= 0 {
		d = DefaultDuration
	}
	n.Duration = d
	return n
}

// Expired reports whether the notification should no longer be shown at now.
func (n Notification) Expired(now time.Time) bool {
	d := n.Duration
	if d <= 0 {
		d = DefaultDuration
	}
	return !now.Before(n.CreatedAt.Add(d))
}
