package Execution

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Warden/Models"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestNextDueDate(t *testing.T) {
	tests := []struct {
		name      string
		last      time.Time
		frequency Models.Frequency
		interval  int
		want      time.Time
	}{
		{"daily", date(2025, 1, 15), Models.FrequencyDaily, 1, date(2025, 1, 16)},
		{"every third day", date(2025, 1, 30), Models.FrequencyDaily, 3, date(2025, 2, 2)},
		{"weekly", date(2025, 1, 15), Models.FrequencyWeekly, 1, date(2025, 1, 22)},
		{"biweekly", date(2025, 1, 15), Models.FrequencyWeekly, 2, date(2025, 1, 29)},
		{"monthly", date(2025, 1, 15), Models.FrequencyMonthly, 1, date(2025, 2, 15)},
		{"monthly clamps to end of february", date(2025, 1, 31), Models.FrequencyMonthly, 1, date(2025, 2, 28)},
		{"monthly clamps in leap year", date(2024, 1, 31), Models.FrequencyMonthly, 1, date(2024, 2, 29)},
		{"quarterly twice", date(2025, 1, 1), Models.FrequencyQuarterly, 2, date(2025, 7, 1)},
		{"quarterly clamps", date(2025, 11, 30), Models.FrequencyQuarterly, 1, date(2026, 2, 28)},
		{"yearly", date(2025, 3, 10), Models.FrequencyYearly, 1, date(2026, 3, 10)},
		{"yearly from leap day clamps", date(2024, 2, 29), Models.FrequencyYearly, 1, date(2025, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDueDate(tt.last, tt.frequency, tt.interval)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNextDueDateUnknownFrequency(t *testing.T) {
	// One-off maintenance rows carry an empty frequency; no next occurrence.
	assert.Nil(t, NextDueDate(date(2025, 1, 15), "", 1))
	assert.Nil(t, NextDueDate(date(2025, 1, 15), "FORTNIGHTLY", 1))
}

func TestNextDueDateKeepsTimeOfDay(t *testing.T) {
	last := time.Date(2025, 1, 31, 14, 30, 0, 0, time.UTC)
	got := NextDueDate(last, Models.FrequencyMonthly, 1)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 2, 28, 14, 30, 0, 0, time.UTC), *got)
}
