// Package engagement maintains the per-user engagement score: a 0-100 gauge
// of recent activity intensity that decays with inactivity and jumps on
// conversions.
//
// Scoring is best-effort by contract. Two concurrent events for the same user
// race on the read-modify-write cycle and one update can be lost; the score is
// a signal, not a ledger, so no locking or conditional update is used. Every
// failure here is logged and swallowed so that event ingestion never fails on
// account of scoring.
package engagement

import (
	"context"
	"log"
	"math"
	"strconv"
	"time"
)

// UserEngagementStore is the slice of the user directory the scorer needs.
type UserEngagementStore interface {
	GetEngagement(ctx context.Context, id int64) (score float64, lastActivity *time.Time, err error)
	UpdateEngagement(ctx context.Context, id int64, score float64, lastActivity time.Time) error
}

// activityScores maps activity types to base score increments. Types not
// listed are worth 1.
var activityScores = map[string]float64{
	"page_view":       1,
	"product_view":    2,
	"add_to_cart":     5,
	"checkout_start":  10,
	"payment_success": 20,
	"download":        3,
	"search":          2,
	"login":           1,
	"register":        5,
}

type Scorer struct {
	users UserEngagementStore
	now   func() time.Time
}

func NewScorer(users UserEngagementStore) *Scorer {
	return &Scorer{
		users: users,
		now:   time.Now,
	}
}

// BaseIncrement returns the score increment for one activity of the given type.
func BaseIncrement(activityType string) float64 {
	if score, ok := activityScores[activityType]; ok {
		return score
	}
	return 1
}

// ConversionBonus returns the extra increment for a monetary conversion,
// capped at 50.
func ConversionBonus(conversionValue float64) float64 {
	if conversionValue <= 0 {
		return 0
	}
	return math.Min(conversionValue/10, 50)
}

// DecayFactor returns how much of the prior score is retained after
// elapsedDays of inactivity: 10% lost per day, floored at 90% retention.
// The floor means a single update never removes more than 10% of the prior
// score, however long the gap was.
func DecayFactor(elapsedDays float64) float64 {
	return math.Max(0.9, 1-elapsedDays*0.1)
}

// ComputeScore applies one event to a prior score and returns the new score,
// clamped to [0, 100].
func ComputeScore(priorScore, elapsedDays float64, activityType string, conversionValue float64) float64 {
	increment := BaseIncrement(activityType) + ConversionBonus(conversionValue)
	newScore := priorScore*DecayFactor(elapsedDays) + increment
	return math.Max(0, math.Min(100, newScore))
}

// ApplyEvent updates the owning user's engagement score for one ingested
// event. userID is the event's user reference; events without one should not
// reach here. Errors never propagate: an unknown or since-deleted user, or a
// failed persistence of the new score, is logged and skipped.
func (s *Scorer) ApplyEvent(ctx context.Context, userID, activityType string, conversionValue float64) {
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		log.Printf("Engagement scorer: unparseable userId %q, skipping: %v", userID, err)
		return
	}

	priorScore, lastActivity, err := s.users.GetEngagement(ctx, id)
	if err != nil {
		log.Printf("Engagement scorer: lookup failed for user %d, skipping: %v", id, err)
		return
	}

	now := s.now().UTC()
	elapsedDays := 0.0
	if lastActivity != nil {
		elapsedDays = now.Sub(*lastActivity).Hours() / 24
		if elapsedDays < 0 {
			elapsedDays = 0
		}
	}

	newScore := ComputeScore(priorScore, elapsedDays, activityType, conversionValue)

	if err := s.users.UpdateEngagement(ctx, id, newScore, now); err != nil {
		log.Printf("Engagement scorer: failed to persist score %.2f for user %d: %v", newScore, id, err)
	}
}
