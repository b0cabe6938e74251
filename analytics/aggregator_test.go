package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shelfwise/api/models"
	"shelfwise/api/store"
)

type fakeEventSource struct {
	events     []models.ActivityEvent
	funnelRows []store.FunnelStageRow
	userRows   []store.UserEngagementRow

	lastFilter store.ActivityFilter
}

func (f *fakeEventSource) QueryEvents(ctx context.Context, filter store.ActivityFilter) ([]models.ActivityEvent, error) {
	f.lastFilter = filter
	events := f.events
	if filter.Limit > 0 && uint64(len(events)) > filter.Limit {
		events = events[:filter.Limit]
	}
	return events, nil
}

func (f *fakeEventSource) GetFunnelStages(ctx context.Context, start time.Time) ([]store.FunnelStageRow, error) {
	return f.funnelRows, nil
}

func (f *fakeEventSource) GetUserEngagementRows(ctx context.Context, start time.Time) ([]store.UserEngagementRow, error) {
	return f.userRows, nil
}

type fakeUserDirectory struct {
	names map[int64]string
}

func (f *fakeUserDirectory) GetDisplayNamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	return f.names, nil
}

type fakeProductCatalog struct {
	titles map[int64]string
}

func (f *fakeProductCatalog) GetTitlesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	return f.titles, nil
}

func newTestAggregator(events *fakeEventSource) *Aggregator {
	return NewAggregator(
		events,
		&fakeUserDirectory{names: map[int64]string{1: "Ada Lovelace", 2: "Alan Turing"}},
		&fakeProductCatalog{titles: map[int64]string{10: "Atomic Habits Summary", 11: "Deep Work Workbook"}},
	)
}

func eventAt(ts time.Time, sessionID, userID, activityType string, conversionValue float64) models.ActivityEvent {
	return models.ActivityEvent{
		EventID:         fmt.Sprintf("ev-%d", ts.UnixNano()),
		UserID:          userID,
		SessionID:       sessionID,
		ActivityType:    activityType,
		Timestamp:       ts,
		ConversionValue: conversionValue,
	}
}

func TestSummarize_ConversionRate(t *testing.T) {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	// 10 events, 3 carrying a conversion value.
	var events []models.ActivityEvent
	for i := 0; i < 10; i++ {
		value := 0.0
		if i < 3 {
			value = 25
		}
		events = append(events, eventAt(base.Add(time.Duration(i)*time.Minute), "s1", "1", "page_view", value))
	}

	summary := summarize(events, nil)

	assert.Equal(t, uint64(10), summary.TotalActivities)
	assert.Equal(t, uint64(3), summary.ConversionMetrics.Conversions)
	assert.Equal(t, 75.0, summary.ConversionMetrics.TotalValue)
	assert.InDelta(t, 30.0, summary.ConversionMetrics.ConversionRate, 1e-9)
}

func TestSummarize_EmptyWindow(t *testing.T) {
	summary := summarize(nil, nil)

	assert.Equal(t, uint64(0), summary.TotalActivities)
	// No division by zero: an empty window has a conversion rate of 0.
	assert.Equal(t, 0.0, summary.ConversionMetrics.ConversionRate)
	assert.Empty(t, summary.RecentActivities)
}

func TestSummarize_Histograms(t *testing.T) {
	events := []models.ActivityEvent{
		{
			SessionID:    "s1",
			UserID:       "1",
			ActivityType: "page_view",
			ActivityData: models.ActivityData{Page: "/home"},
			Timestamp:    time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC),
		},
		{
			SessionID:    "s1",
			UserID:       "1",
			ActivityType: "product_view",
			ActivityData: models.ActivityData{Page: "/products/10", ProductID: "10"},
			Timestamp:    time.Date(2026, 3, 1, 9, 40, 0, 0, time.UTC),
			FunnelStage:  "interest",
		},
		{
			SessionID:    "s2",
			ActivityType: "product_view",
			ActivityData: models.ActivityData{ProductID: "99"}, // unknown product
			Timestamp:    time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
			FunnelStage:  "interest",
		},
	}

	summary := summarize(events, map[int64]string{10: "Atomic Habits Summary"})

	assert.Equal(t, uint64(2), summary.ActivityTypes["product_view"])
	assert.Equal(t, uint64(1), summary.ActivityTypes["page_view"])
	assert.Equal(t, uint64(2), summary.FunnelStages["interest"])

	assert.Equal(t, uint64(1), summary.UniqueUsers) // anonymous event does not count
	assert.Equal(t, uint64(2), summary.UniqueSessions)

	assert.Equal(t, uint64(1), summary.TopPages["/home"])
	assert.Equal(t, uint64(1), summary.TopProducts["Atomic Habits Summary"])
	assert.Equal(t, uint64(1), summary.TopProducts["Unknown Product"])

	// Hour-of-day bucketing is UTC.
	assert.Equal(t, uint64(2), summary.HourlyDistribution[9])
	assert.Equal(t, uint64(1), summary.HourlyDistribution[18])
	assert.Equal(t, uint64(2), summary.DailyDistribution["2026-03-01"])
	assert.Equal(t, uint64(1), summary.DailyDistribution["2026-03-02"])
}

func TestSummarize_RecentActivitiesCapped(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var events []models.ActivityEvent
	for i := 0; i < 150; i++ {
		events = append(events, eventAt(base.Add(time.Duration(i)*time.Second), "s1", "", "page_view", 0))
	}

	summary := summarize(events, nil)

	assert.Equal(t, uint64(150), summary.TotalActivities)
	assert.Len(t, summary.RecentActivities, 100)
}

func TestOrderFunnel_CanonicalOrderAndRates(t *testing.T) {
	// Rows arrive unordered and with popularity that does not match funnel
	// order; the output must still be awareness -> ... -> purchase.
	rows := []store.FunnelStageRow{
		{Stage: "purchase", Count: 50, UniqueUsers: 40},
		{Stage: "awareness", Count: 1000, UniqueUsers: 800},
		{Stage: "intent", Count: 100, UniqueUsers: 90},
		{Stage: "interest", Count: 500, UniqueUsers: 400},
	}

	funnel := orderFunnel(rows)

	require.Len(t, funnel, 4)
	assert.Equal(t, []string{"awareness", "interest", "intent", "purchase"},
		[]string{funnel[0].Stage, funnel[1].Stage, funnel[2].Stage, funnel[3].Stage})

	assert.Equal(t, 50.0, funnel[0].NextStageConversionRate)  // 500/1000
	assert.Equal(t, 20.0, funnel[1].NextStageConversionRate)  // 100/500
	assert.Equal(t, 50.0, funnel[2].NextStageConversionRate)  // 50/100
	assert.Equal(t, 0.0, funnel[3].NextStageConversionRate)   // last stage
}

func TestOrderFunnel_Empty(t *testing.T) {
	assert.Empty(t, orderFunnel(nil))
}

func TestBuildSessions_SingleSessionDuration(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityEvent{
		eventAt(base, "s1", "1", "session_start", 0),
		eventAt(base.Add(45*time.Second), "s1", "1", "product_view", 0),
		eventAt(base.Add(120*time.Second), "s1", "1", "add_to_cart", 0),
	}

	sessions := buildSessions(events)

	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].SessionID)
	assert.Equal(t, int64(120), sessions[0].TotalTimeSeconds)
	assert.Len(t, sessions[0].Activities, 3)
}

func TestBuildSessions_EventsLandInExactlyOneSession(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityEvent{
		eventAt(base, "s1", "1", "page_view", 0),
		eventAt(base.Add(1*time.Minute), "s2", "1", "page_view", 10),
		eventAt(base.Add(2*time.Minute), "s1", "1", "page_view", 5),
		eventAt(base.Add(3*time.Minute), "s2", "1", "page_view", 0),
	}

	sessions := buildSessions(events)

	require.Len(t, sessions, 2)
	// First-seen order.
	assert.Equal(t, "s1", sessions[0].SessionID)
	assert.Equal(t, "s2", sessions[1].SessionID)

	total := 0
	for _, s := range sessions {
		total += len(s.Activities)
	}
	assert.Equal(t, len(events), total)

	assert.Equal(t, 5.0, sessions[0].ConversionValue)
	assert.Equal(t, 10.0, sessions[1].ConversionValue)
}

func TestBuildSessions_VisitorLogsInMidSession(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityEvent{
		eventAt(base, "s1", "", "page_view", 0),
		eventAt(base.Add(time.Minute), "s1", "42", "login", 0),
	}

	sessions := buildSessions(events)

	require.Len(t, sessions, 1)
	assert.Equal(t, "42", sessions[0].UserID)
}

func TestJourney_FilterPassthrough(t *testing.T) {
	source := &fakeEventSource{}
	agg := newTestAggregator(source)

	_, err := agg.Journey(context.Background(), "", "s1", 7)
	require.NoError(t, err)

	assert.Equal(t, "s1", source.lastFilter.SessionID)
	assert.True(t, source.lastFilter.Ascending)
	assert.False(t, source.lastFilter.Start.IsZero())
}

func TestRealTimeFeed_OrderingAndEnrichment(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.ActivityEvent{ // newest first, as the store returns them
		{
			EventID:      "e3",
			UserID:       "1",
			SessionID:    "s1",
			ActivityType: "product_view",
			ActivityData: models.ActivityData{ProductID: "10"},
			Timestamp:    base.Add(2 * time.Minute),
		},
		{
			EventID:      "e2",
			UserID:       "2",
			SessionID:    "s2",
			ActivityType: "page_view",
			Timestamp:    base.Add(1 * time.Minute),
		},
		{
			EventID:      "e1",
			SessionID:    "s3",
			ActivityType: "page_view",
			Timestamp:    base,
		},
	}
	source := &fakeEventSource{events: events}
	agg := newTestAggregator(source)

	feed, err := agg.RealTimeFeed(context.Background(), 50)
	require.NoError(t, err)
	require.Len(t, feed, 3)

	assert.Equal(t, uint64(50), source.lastFilter.Limit)
	assert.False(t, source.lastFilter.Ascending)

	// Ordering is non-increasing by timestamp.
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i].Timestamp.After(feed[i-1].Timestamp))
	}

	assert.Equal(t, "Ada Lovelace", feed[0].UserName)
	assert.Equal(t, "Atomic Habits Summary", feed[0].ProductTitle)
	assert.Equal(t, "Alan Turing", feed[1].UserName)
	assert.Empty(t, feed[2].UserName) // anonymous
}

func TestRealTimeFeed_LimitApplied(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var events []models.ActivityEvent
	for i := 1001; i > 0; i-- {
		events = append(events, eventAt(base.Add(time.Duration(i)*time.Second), "s1", "", "page_view", 0))
	}
	source := &fakeEventSource{events: events}
	agg := newTestAggregator(source)

	feed, err := agg.RealTimeFeed(context.Background(), 1000)
	require.NoError(t, err)
	assert.Len(t, feed, 1000)
}

func TestWindowedScore(t *testing.T) {
	// (activities + conversionValue * 0.1) * 2, the report-only formula,
	// distinct from the persisted decaying score.
	row := store.UserEngagementRow{TotalActivities: 20, ConversionValue: 50}
	assert.Equal(t, 50.0, windowedScore(row))

	assert.Equal(t, 2.0, windowedScore(store.UserEngagementRow{TotalActivities: 1}))
}

func TestRollupEngagement(t *testing.T) {
	rows := []store.UserEngagementRow{
		{UserID: "1", TotalActivities: 30, UniqueSessions: 4, ConversionValue: 100}, // score (30+10)*2 = 80
		{UserID: "2", TotalActivities: 10, UniqueSessions: 2, ConversionValue: 0},   // score 20*... = 20
	}

	metrics := rollupEngagement(rows)

	assert.Equal(t, uint64(2), metrics.TotalUsers)
	assert.Equal(t, 20.0, metrics.AvgActivitiesPerUser)
	assert.Equal(t, 3.0, metrics.AvgSessionsPerUser)
	assert.Equal(t, 100.0, metrics.TotalConversionValue)
	assert.Equal(t, 50.0, metrics.AvgEngagementScore)
	assert.Equal(t, uint64(1), metrics.HighlyEngagedUsers)

	// Users come back highest score first.
	require.Len(t, metrics.Users, 2)
	assert.Equal(t, "1", metrics.Users[0].UserID)
	assert.Equal(t, 80.0, metrics.Users[0].EngagementScore)
}

func TestRollupEngagement_Empty(t *testing.T) {
	metrics := rollupEngagement(nil)

	assert.Equal(t, uint64(0), metrics.TotalUsers)
	assert.Equal(t, 0.0, metrics.AvgActivitiesPerUser)
	assert.Equal(t, 0.0, metrics.AvgEngagementScore)
}

func TestSummary_FilterPassthrough(t *testing.T) {
	source := &fakeEventSource{}
	agg := newTestAggregator(source)
	agg.now = func() time.Time { return time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC) }

	_, err := agg.Summary(context.Background(), SummaryFilter{
		UserID:       "1",
		ActivityType: "page_view",
		FunnelStage:  "awareness",
		Days:         30,
	})
	require.NoError(t, err)

	assert.Equal(t, "1", source.lastFilter.UserID)
	assert.Equal(t, "page_view", source.lastFilter.ActivityType)
	assert.Equal(t, "awareness", source.lastFilter.FunnelStage)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), source.lastFilter.Start)
	assert.False(t, source.lastFilter.Ascending)
}
