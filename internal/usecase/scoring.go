package usecase

import (
	"strings"
	"time"

	"github.com/xavierca1/leadcapture/internal/entity"
)

const (
	MinScore = 1
	MaxScore = 5
)

// ScoreInput carries the signals the deterministic score is computed from.
type ScoreInput struct {
	Budget      float64
	EventDate   *time.Time
	Email       string
	Phone       string
	Company     string
	ProjectType string
}

// ScoreLead computes the 1-5 lead score. The same rule set is given to the
// extraction model so self-reported scores stay in the same range.
func ScoreLead(in ScoreInput, now time.Time) int {
	score := MinScore

	switch {
	case in.Budget > 10000:
		score += 2
	case in.Budget >= 3000:
		score++
	}

	if in.EventDate != nil && withinNextDays(*in.EventDate, now, 30) {
		score++
	}

	if hasText(in.Email) && hasText(in.Phone) && hasText(in.Company) {
		score++
	}

	pt := strings.ToLower(strings.TrimSpace(in.ProjectType))
	if pt != "" && pt != entity.ProjectTypeUnknown {
		score++
	}

	return ClampScore(score)
}

// ClampScore bounds any score, including model-reported ones, to 1-5.
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

func withinNextDays(date, now time.Time, days int) bool {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	limit := today.AddDate(0, 0, days+1)
	return !date.Before(today) && date.Before(limit)
}

func hasText(s string) bool {
	return strings.TrimSpace(s) != ""
}
