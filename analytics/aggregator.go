// Package analytics computes read-only derived views over the activity event
// log: summaries, conversion funnels, per-session journeys, real-time feeds
// and engagement metrics. Nothing in this package mutates events or users.
//
// All time bucketing (hour-of-day, calendar day) is done in UTC.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"shelfwise/api/models"
	"shelfwise/api/store"
)

// EventSource is the slice of the activity store the aggregator reads from.
type EventSource interface {
	QueryEvents(ctx context.Context, filter store.ActivityFilter) ([]models.ActivityEvent, error)
	GetFunnelStages(ctx context.Context, start time.Time) ([]store.FunnelStageRow, error)
	GetUserEngagementRows(ctx context.Context, start time.Time) ([]store.UserEngagementRow, error)
}

// UserDirectory resolves user ids to display names for enrichment.
type UserDirectory interface {
	GetDisplayNamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)
}

// ProductCatalog resolves product ids to titles for enrichment.
type ProductCatalog interface {
	GetTitlesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)
}

type Aggregator struct {
	events   EventSource
	users    UserDirectory
	products ProductCatalog
	now      func() time.Time
}

func NewAggregator(events EventSource, users UserDirectory, products ProductCatalog) *Aggregator {
	return &Aggregator{
		events:   events,
		users:    users,
		products: products,
		now:      time.Now,
	}
}

const recentActivityLimit = 100

// SummaryFilter narrows the activity summary. Days is the lookback window.
type SummaryFilter struct {
	UserID       string
	ActivityType string
	FunnelStage  string
	Days         int
}

type ConversionMetrics struct {
	TotalValue     float64 `json:"totalValue"`
	Conversions    uint64  `json:"conversions"`
	ConversionRate float64 `json:"conversionRate"` // percent; 0 when no activities
}

type ActivitySummary struct {
	TotalActivities    uint64                 `json:"totalActivities"`
	UniqueUsers        uint64                 `json:"uniqueUsers"`
	UniqueSessions     uint64                 `json:"uniqueSessions"`
	ActivityTypes      map[string]uint64      `json:"activityTypes"`
	FunnelStages       map[string]uint64      `json:"funnelStages"`
	ConversionMetrics  ConversionMetrics      `json:"conversionMetrics"`
	TopPages           map[string]uint64      `json:"topPages"`
	TopProducts        map[string]uint64      `json:"topProducts"` // keyed by resolved title
	HourlyDistribution map[int]uint64         `json:"hourlyDistribution"`
	DailyDistribution  map[string]uint64      `json:"dailyDistribution"`
	RecentActivities   []models.ActivityEvent `json:"recentActivities"` // newest first, at most 100
}

// Summary scans the window and produces counts, histograms and conversion
// metrics, plus the 100 most recent matching events.
func (a *Aggregator) Summary(ctx context.Context, filter SummaryFilter) (*ActivitySummary, error) {
	start := a.windowStart(filter.Days)

	events, err := a.events.QueryEvents(ctx, store.ActivityFilter{
		UserID:       filter.UserID,
		ActivityType: filter.ActivityType,
		FunnelStage:  filter.FunnelStage,
		Start:        start,
		Ascending:    false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load events for summary: %w", err)
	}

	titles, err := a.resolveProductTitles(ctx, events)
	if err != nil {
		return nil, err
	}

	return summarize(events, titles), nil
}

// summarize computes the summary over an already-fetched, time-descending
// window of events.
func summarize(events []models.ActivityEvent, productTitles map[int64]string) *ActivitySummary {
	summary := &ActivitySummary{
		TotalActivities:    uint64(len(events)),
		ActivityTypes:      make(map[string]uint64),
		FunnelStages:       make(map[string]uint64),
		TopPages:           make(map[string]uint64),
		TopProducts:        make(map[string]uint64),
		HourlyDistribution: make(map[int]uint64),
		DailyDistribution:  make(map[string]uint64),
	}

	users := make(map[string]struct{})
	sessions := make(map[string]struct{})

	for _, event := range events {
		if event.UserID != "" {
			users[event.UserID] = struct{}{}
		}
		sessions[event.SessionID] = struct{}{}

		summary.ActivityTypes[event.ActivityType]++
		if event.FunnelStage != "" {
			summary.FunnelStages[event.FunnelStage]++
		}

		summary.ConversionMetrics.TotalValue += event.ConversionValue
		if event.ConversionValue > 0 {
			summary.ConversionMetrics.Conversions++
		}

		if event.ActivityData.Page != "" {
			summary.TopPages[event.ActivityData.Page]++
		}
		if event.ActivityData.ProductID != "" {
			title := "Unknown Product"
			if id, err := strconv.ParseInt(event.ActivityData.ProductID, 10, 64); err == nil {
				if t, ok := productTitles[id]; ok {
					title = t
				}
			}
			summary.TopProducts[title]++
		}

		ts := event.Timestamp.UTC()
		summary.HourlyDistribution[ts.Hour()]++
		summary.DailyDistribution[ts.Format("2006-01-02")]++
	}

	summary.UniqueUsers = uint64(len(users))
	summary.UniqueSessions = uint64(len(sessions))

	if summary.TotalActivities > 0 {
		summary.ConversionMetrics.ConversionRate =
			float64(summary.ConversionMetrics.Conversions) / float64(summary.TotalActivities) * 100
	}

	summary.RecentActivities = events
	if len(summary.RecentActivities) > recentActivityLimit {
		summary.RecentActivities = summary.RecentActivities[:recentActivityLimit]
	}

	return summary
}

// FunnelStage is one stage of the conversion funnel, in canonical order.
type FunnelStage struct {
	Stage                   string  `json:"stage"`
	Count                   uint64  `json:"count"`
	UniqueUsers             uint64  `json:"uniqueUsers"`
	TotalConversionValue    float64 `json:"totalConversionValue"`
	NextStageConversionRate float64 `json:"nextStageConversionRate"` // percent into the next canonical stage
}

// Funnel groups in-window events by funnel stage. Stages are returned in
// canonical funnel order (awareness first) and the transition rate of each
// stage is computed against the next canonical stage; the last stage's rate
// is 0. Stages with no events in the window are omitted.
func (a *Aggregator) Funnel(ctx context.Context, days int) ([]FunnelStage, error) {
	rows, err := a.events.GetFunnelStages(ctx, a.windowStart(days))
	if err != nil {
		return nil, fmt.Errorf("failed to load funnel stages: %w", err)
	}
	return orderFunnel(rows), nil
}

func orderFunnel(rows []store.FunnelStageRow) []FunnelStage {
	byStage := make(map[string]store.FunnelStageRow, len(rows))
	for _, row := range rows {
		byStage[row.Stage] = row
	}

	var funnel []FunnelStage
	for _, stage := range models.FunnelStages {
		row, ok := byStage[stage]
		if !ok {
			continue
		}
		funnel = append(funnel, FunnelStage{
			Stage:                stage,
			Count:                row.Count,
			UniqueUsers:          row.UniqueUsers,
			TotalConversionValue: row.ConversionValue,
		})
	}

	for i := range funnel {
		if i+1 < len(funnel) && funnel[i].Count > 0 {
			rate := float64(funnel[i+1].Count) / float64(funnel[i].Count) * 100
			funnel[i].NextStageConversionRate = math.Round(rate*100) / 100
		}
	}

	return funnel
}

// Session is one browsing session reconstructed from the event log.
type Session struct {
	SessionID        string                 `json:"sessionId"`
	UserID           string                 `json:"userId,omitempty"`
	StartTime        time.Time              `json:"startTime"`
	EndTime          time.Time              `json:"endTime"`
	Activities       []models.ActivityEvent `json:"activities"`
	TotalTimeSeconds int64                  `json:"totalTime"` // endTime - startTime
	ConversionValue  float64                `json:"conversionValue"`
}

type JourneyResult struct {
	Sessions      []Session `json:"sessions"`
	TotalSessions int       `json:"totalSessions"`
}

// Journey reconstructs the sessions of one user or one browsing session.
// Exactly one of userID/sessionID must be set; the handler validates that.
func (a *Aggregator) Journey(ctx context.Context, userID, sessionID string, days int) (*JourneyResult, error) {
	events, err := a.events.QueryEvents(ctx, store.ActivityFilter{
		UserID:    userID,
		SessionID: sessionID,
		Start:     a.windowStart(days),
		Ascending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load events for journey: %w", err)
	}

	sessions := buildSessions(events)
	return &JourneyResult{
		Sessions:      sessions,
		TotalSessions: len(sessions),
	}, nil
}

// buildSessions groups chronologically ordered events by sessionId. Every
// event lands in exactly one session; sessions keep first-seen order.
func buildSessions(events []models.ActivityEvent) []Session {
	index := make(map[string]int)
	var sessions []Session

	for _, event := range events {
		i, ok := index[event.SessionID]
		if !ok {
			i = len(sessions)
			index[event.SessionID] = i
			sessions = append(sessions, Session{
				SessionID: event.SessionID,
				UserID:    event.UserID,
				StartTime: event.Timestamp,
				EndTime:   event.Timestamp,
			})
		}

		s := &sessions[i]
		s.Activities = append(s.Activities, event)
		s.EndTime = event.Timestamp
		s.ConversionValue += event.ConversionValue
		if s.UserID == "" {
			s.UserID = event.UserID // a visitor may log in mid-session
		}
	}

	for i := range sessions {
		sessions[i].TotalTimeSeconds = int64(math.Round(sessions[i].EndTime.Sub(sessions[i].StartTime).Seconds()))
	}

	return sessions
}

// EnrichedEvent is an activity event with display fields resolved for feeds.
type EnrichedEvent struct {
	models.ActivityEvent
	UserName     string `json:"userName,omitempty"`
	ProductTitle string `json:"productTitle,omitempty"`
}

// RealTimeFeed returns the limit most recent events, newest first, enriched
// with user display names and product titles.
func (a *Aggregator) RealTimeFeed(ctx context.Context, limit uint64) ([]EnrichedEvent, error) {
	events, err := a.events.QueryEvents(ctx, store.ActivityFilter{
		Ascending: false,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load events for real-time feed: %w", err)
	}

	titles, err := a.resolveProductTitles(ctx, events)
	if err != nil {
		return nil, err
	}

	var userIDs []int64
	seen := make(map[int64]struct{})
	for _, event := range events {
		if event.UserID == "" {
			continue
		}
		if id, err := strconv.ParseInt(event.UserID, 10, 64); err == nil {
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				userIDs = append(userIDs, id)
			}
		}
	}
	names, err := a.users.GetDisplayNamesByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user names for real-time feed: %w", err)
	}

	feed := make([]EnrichedEvent, 0, len(events))
	for _, event := range events {
		enriched := EnrichedEvent{ActivityEvent: event}
		if id, err := strconv.ParseInt(event.UserID, 10, 64); event.UserID != "" && err == nil {
			enriched.UserName = names[id]
		}
		if id, err := strconv.ParseInt(event.ActivityData.ProductID, 10, 64); event.ActivityData.ProductID != "" && err == nil {
			enriched.ProductTitle = titles[id]
		}
		feed = append(feed, enriched)
	}

	return feed, nil
}

// UserEngagement is one user's windowed engagement report. Score here is the
// windowed formula (activities + 0.1*conversion value, doubled) and is
// deliberately distinct from the persisted decaying score the scorer
// maintains: this one is a non-decaying report over the query window, the
// persisted one is a current-state gauge. They do not reconcile.
type UserEngagement struct {
	UserID          string    `json:"userId"`
	TotalActivities uint64    `json:"totalActivities"`
	UniqueSessions  uint64    `json:"uniqueSessions"`
	ConversionValue float64   `json:"conversionValue"`
	LastActivity    time.Time `json:"lastActivity"`
	EngagementScore float64   `json:"engagementScore"`
}

type EngagementMetrics struct {
	TotalUsers           uint64           `json:"totalUsers"`
	AvgActivitiesPerUser float64          `json:"avgActivitiesPerUser"`
	AvgSessionsPerUser   float64          `json:"avgSessionsPerUser"`
	TotalConversionValue float64          `json:"totalConversionValue"`
	AvgEngagementScore   float64          `json:"avgEngagementScore"`
	HighlyEngagedUsers   uint64           `json:"highlyEngagedUsers"` // windowed score >= 50
	Users                []UserEngagement `json:"users"`
}

// Engagement groups in-window events by user and rolls the per-user results
// into site-wide engagement metrics.
func (a *Aggregator) Engagement(ctx context.Context, days int) (*EngagementMetrics, error) {
	rows, err := a.events.GetUserEngagementRows(ctx, a.windowStart(days))
	if err != nil {
		return nil, fmt.Errorf("failed to load engagement rows: %w", err)
	}
	return rollupEngagement(rows), nil
}

// windowedScore is the report-only engagement formula.
func windowedScore(row store.UserEngagementRow) float64 {
	return (float64(row.TotalActivities) + row.ConversionValue*0.1) * 2
}

func rollupEngagement(rows []store.UserEngagementRow) *EngagementMetrics {
	metrics := &EngagementMetrics{
		TotalUsers: uint64(len(rows)),
		Users:      make([]UserEngagement, 0, len(rows)),
	}

	var totalActivities, totalSessions uint64
	var totalScore float64

	for _, row := range rows {
		score := windowedScore(row)
		metrics.Users = append(metrics.Users, UserEngagement{
			UserID:          row.UserID,
			TotalActivities: row.TotalActivities,
			UniqueSessions:  row.UniqueSessions,
			ConversionValue: row.ConversionValue,
			LastActivity:    row.LastActivity,
			EngagementScore: score,
		})

		totalActivities += row.TotalActivities
		totalSessions += row.UniqueSessions
		metrics.TotalConversionValue += row.ConversionValue
		totalScore += score
		if score >= 50 {
			metrics.HighlyEngagedUsers++
		}
	}

	if metrics.TotalUsers > 0 {
		metrics.AvgActivitiesPerUser = float64(totalActivities) / float64(metrics.TotalUsers)
		metrics.AvgSessionsPerUser = float64(totalSessions) / float64(metrics.TotalUsers)
		metrics.AvgEngagementScore = totalScore / float64(metrics.TotalUsers)
	}

	sort.Slice(metrics.Users, func(i, j int) bool {
		return metrics.Users[i].EngagementScore > metrics.Users[j].EngagementScore
	})

	return metrics
}

func (a *Aggregator) windowStart(days int) time.Time {
	return a.now().UTC().AddDate(0, 0, -days)
}

func (a *Aggregator) resolveProductTitles(ctx context.Context, events []models.ActivityEvent) (map[int64]string, error) {
	var ids []int64
	seen := make(map[int64]struct{})
	for _, event := range events {
		if event.ActivityData.ProductID == "" {
			continue
		}
		id, err := strconv.ParseInt(event.ActivityData.ProductID, 10, 64)
		if err != nil {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	titles, err := a.products.GetTitlesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve product titles: %w", err)
	}
	return titles, nil
}
