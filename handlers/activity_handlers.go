package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shelfwise/api/analytics"
	"shelfwise/api/models"
	"shelfwise/api/utils"
)

// EventRecorder appends events to the activity log.
type EventRecorder interface {
	InsertEvent(ctx context.Context, event *models.ActivityEvent) error
}

// EngagementScorer applies one ingested event to the owning user's score.
// The call is best-effort and must never return an error to the caller.
type EngagementScorer interface {
	ApplyEvent(ctx context.Context, userID, activityType string, conversionValue float64)
}

// ActivityAnalytics is the read side: the five derived views.
type ActivityAnalytics interface {
	Summary(ctx context.Context, filter analytics.SummaryFilter) (*analytics.ActivitySummary, error)
	Funnel(ctx context.Context, days int) ([]analytics.FunnelStage, error)
	Journey(ctx context.Context, userID, sessionID string, days int) (*analytics.JourneyResult, error)
	RealTimeFeed(ctx context.Context, limit uint64) ([]analytics.EnrichedEvent, error)
	Engagement(ctx context.Context, days int) (*analytics.EngagementMetrics, error)
}

type ActivityHandlers struct {
	Recorder  EventRecorder
	Scorer    EngagementScorer
	Analytics ActivityAnalytics
}

func NewActivityHandlers(recorder EventRecorder, scorer EngagementScorer, analytics ActivityAnalytics) *ActivityHandlers {
	return &ActivityHandlers{
		Recorder:  recorder,
		Scorer:    scorer,
		Analytics: analytics,
	}
}

// TrackActivity records one activity event. The event id and timestamp are
// assigned here, server-side; a client-supplied timestamp is ignored. When the
// event carries a userId the engagement scorer runs afterwards, best-effort:
// a scoring failure never fails the recorded event.
func (h *ActivityHandlers) TrackActivity(c *gin.Context) {
	var req models.TrackEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Printf("Error binding track activity JSON: %v", err)
		utils.RespondValidationError(c, "Invalid request body", nil)
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		utils.RespondValidationError(c, "Validation failed", errs)
		return
	}

	event := &models.ActivityEvent{
		EventID:         uuid.New().String(),
		UserID:          req.UserID,
		SessionID:       req.SessionID,
		ActivityType:    req.ActivityType,
		ActivityData:    req.ActivityData,
		DeviceInfo:      req.DeviceInfo,
		Location:        req.Location,
		Timestamp:       time.Now().UTC(),
		ConversionValue: req.ConversionValue,
		ConversionType:  req.ConversionType,
		FunnelStage:     req.FunnelStage,
	}
	if event.DeviceInfo.IPAddress == "" {
		event.DeviceInfo.IPAddress = c.ClientIP()
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
	defer cancel()

	if err := h.Recorder.InsertEvent(ctx, event); err != nil {
		log.Printf("Error inserting activity event: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to record activity")
		return
	}

	if event.UserID != "" {
		h.Scorer.ApplyEvent(ctx, event.UserID, event.ActivityType, event.ConversionValue)
	}

	utils.RespondCreated(c, "Activity tracked successfully", gin.H{"activity": event})
}

// GetActivityAnalytics is the activity summary view.
func (h *ActivityHandlers) GetActivityAnalytics(c *gin.Context) {
	days, ok := parseDaysParam(c, 30)
	if !ok {
		return
	}

	activityType := c.Query("activityType")
	if activityType != "" && !models.IsValidActivityType(activityType) {
		utils.RespondValidationError(c, "Validation failed", map[string]string{"activityType": "unrecognized activityType: " + activityType})
		return
	}
	funnelStage := c.Query("funnelStage")
	if funnelStage != "" && !models.IsValidFunnelStage(funnelStage) {
		utils.RespondValidationError(c, "Validation failed", map[string]string{"funnelStage": "unrecognized funnelStage: " + funnelStage})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	summary, err := h.Analytics.Summary(ctx, analytics.SummaryFilter{
		UserID:       c.Query("userId"),
		ActivityType: activityType,
		FunnelStage:  funnelStage,
		Days:         days,
	})
	if err != nil {
		log.Printf("Error getting activity summary: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to retrieve activity analytics")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"analytics": summary})
}

// GetConversionFunnel is the conversion funnel view, stages in canonical
// funnel order.
func (h *ActivityHandlers) GetConversionFunnel(c *gin.Context) {
	days, ok := parseDaysParam(c, 30)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	funnel, err := h.Analytics.Funnel(ctx, days)
	if err != nil {
		log.Printf("Error getting conversion funnel: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to retrieve conversion funnel")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"funnel": funnel})
}

// GetUserJourney reconstructs sessions for one user or one browsing session;
// exactly one of the two identifiers must be supplied.
func (h *ActivityHandlers) GetUserJourney(c *gin.Context) {
	userID := c.Query("userId")
	sessionID := c.Query("sessionId")
	if (userID == "") == (sessionID == "") {
		utils.RespondValidationError(c, "Exactly one of userId or sessionId is required", nil)
		return
	}

	days, ok := parseDaysParam(c, 7)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	journey, err := h.Analytics.Journey(ctx, userID, sessionID, days)
	if err != nil {
		log.Printf("Error getting user journey: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to retrieve user journey")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{
		"sessions":      journey.Sessions,
		"totalSessions": journey.TotalSessions,
	})
}

// GetRealTimeActivity is the latest-events feed.
func (h *ActivityHandlers) GetRealTimeActivity(c *gin.Context) {
	limit, ok := parseLimitParam(c, 50)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	activities, err := h.Analytics.RealTimeFeed(ctx, limit)
	if err != nil {
		log.Printf("Error getting real-time activity: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to retrieve real-time activity")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"activities": activities})
}

// GetEngagementMetrics is the windowed engagement report.
func (h *ActivityHandlers) GetEngagementMetrics(c *gin.Context) {
	days, ok := parseDaysParam(c, 30)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	metrics, err := h.Analytics.Engagement(ctx, days)
	if err != nil {
		log.Printf("Error getting engagement metrics: %v", err)
		utils.RespondError(c, http.StatusInternalServerError, "Failed to retrieve engagement metrics")
		return
	}

	utils.RespondSuccess(c, http.StatusOK, gin.H{"metrics": metrics})
}

// parseDaysParam reads the days query parameter (1-365). It writes the 400
// response itself and returns ok=false when the value is out of range.
func parseDaysParam(c *gin.Context, defaultDays int) (int, bool) {
	daysParam := c.Query("days")
	if daysParam == "" {
		return defaultDays, true
	}
	days, err := strconv.Atoi(daysParam)
	if err != nil || days < 1 || days > 365 {
		utils.RespondValidationError(c, "Validation failed", map[string]string{"days": "days must be between 1 and 365"})
		return 0, false
	}
	return days, true
}

// parseLimitParam reads the limit query parameter (1-1000), same contract as
// parseDaysParam.
func parseLimitParam(c *gin.Context, defaultLimit uint64) (uint64, bool) {
	limitParam := c.Query("limit")
	if limitParam == "" {
		return defaultLimit, true
	}
	limit, err := strconv.ParseUint(limitParam, 10, 64)
	if err != nil || limit < 1 || limit > 1000 {
		utils.RespondValidationError(c, "Validation failed", map[string]string{"limit": "limit must be between 1 and 1000"})
		return 0, false
	}
	return limit, true
}
