package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"shelfwise/api/database"
	"shelfwise/api/models"
)

// ActivityStore persists activity events in the ClickHouse user_activities
// table. The table is an append-only log: there are no update or delete paths.
//
// Expected schema:
//
//	CREATE TABLE user_activities (
//	    event_id         String,
//	    user_id          String,
//	    session_id       String,
//	    activity_type    LowCardinality(String),
//	    funnel_stage     LowCardinality(String),
//	    conversion_type  LowCardinality(String),
//	    conversion_value Float64,
//	    activity_data    String,
//	    device_info      String,
//	    location         String,
//	    timestamp        DateTime64(3, 'UTC')
//	) ENGINE = MergeTree ORDER BY (timestamp)
type ActivityStore struct {
	DB *database.ClickHouseClient
}

func NewActivityStore(chClient *database.ClickHouseClient) *ActivityStore {
	return &ActivityStore{
		DB: chClient,
	}
}

// ActivityFilter selects events for QueryEvents. Zero values mean "no filter"
// on that dimension. Ascending selects chronological order (journeys);
// descending is used for recent-activity feeds.
type ActivityFilter struct {
	UserID       string
	SessionID    string
	ActivityType string
	FunnelStage  string
	Start        time.Time
	End          time.Time
	Ascending    bool
	Limit        uint64
}

// FunnelStageRow is one funnel_stage group within the query window.
type FunnelStageRow struct {
	Stage           string  `json:"stage"`
	Count           uint64  `json:"count"`
	UniqueUsers     uint64  `json:"uniqueUsers"`
	ConversionValue float64 `json:"totalConversionValue"`
}

// UserEngagementRow is one user's activity rollup within the query window.
type UserEngagementRow struct {
	UserID          string    `json:"userId"`
	TotalActivities uint64    `json:"totalActivities"`
	UniqueSessions  uint64    `json:"uniqueSessions"`
	ConversionValue float64   `json:"conversionValue"`
	LastActivity    time.Time `json:"lastActivity"`
}

// InsertEvent appends one event to the log. The caller must have assigned
// event_id and timestamp already.
func (s *ActivityStore) InsertEvent(ctx context.Context, event *models.ActivityEvent) error {
	batch, err := s.DB.Conn.PrepareBatch(ctx, `
		INSERT INTO user_activities (
			event_id, user_id, session_id, activity_type, funnel_stage,
			conversion_type, conversion_value, activity_data, device_info, location, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare event insert: %w", err)
	}

	activityData, err := json.Marshal(event.ActivityData)
	if err != nil {
		return fmt.Errorf("failed to marshal activityData: %w", err)
	}
	deviceInfo, err := json.Marshal(event.DeviceInfo)
	if err != nil {
		return fmt.Errorf("failed to marshal deviceInfo: %w", err)
	}
	location, err := json.Marshal(event.Location)
	if err != nil {
		return fmt.Errorf("failed to marshal location: %w", err)
	}

	err = batch.Append(
		event.EventID,
		event.UserID,
		event.SessionID,
		event.ActivityType,
		event.FunnelStage,
		event.ConversionType,
		event.ConversionValue,
		string(activityData),
		string(deviceInfo),
		string(location),
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to append event to batch (EventID: %s): %w", event.EventID, err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send event batch: %w", err)
	}

	return nil
}

// QueryEvents returns events matching the filter, ordered by timestamp.
func (s *ActivityStore) QueryEvents(ctx context.Context, filter ActivityFilter) ([]models.ActivityEvent, error) {
	whereClause := "WHERE 1 = 1"
	var args []interface{}

	if !filter.Start.IsZero() {
		whereClause += " AND timestamp >= ?"
		args = append(args, filter.Start)
	}
	if !filter.End.IsZero() {
		whereClause += " AND timestamp <= ?"
		args = append(args, filter.End)
	}
	if filter.UserID != "" {
		whereClause += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.SessionID != "" {
		whereClause += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}
	if filter.ActivityType != "" {
		whereClause += " AND activity_type = ?"
		args = append(args, filter.ActivityType)
	}
	if filter.FunnelStage != "" {
		whereClause += " AND funnel_stage = ?"
		args = append(args, filter.FunnelStage)
	}

	order := "DESC"
	if filter.Ascending {
		order = "ASC"
	}

	limitClause := ""
	if filter.Limit > 0 {
		limitClause = "LIMIT ?"
		args = append(args, filter.Limit)
	}

	query := fmt.Sprintf(`
		SELECT event_id, user_id, session_id, activity_type, funnel_stage,
		       conversion_type, conversion_value, activity_data, device_info, location, timestamp
		FROM user_activities
		%s
		ORDER BY timestamp %s
		%s
	`, whereClause, order, limitClause)

	rows, err := s.DB.Conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity events: %w", err)
	}
	defer rows.Close()

	var results []models.ActivityEvent
	for rows.Next() {
		var (
			event        models.ActivityEvent
			activityData string
			deviceInfo   string
			location     string
		)
		if err := rows.Scan(
			&event.EventID,
			&event.UserID,
			&event.SessionID,
			&event.ActivityType,
			&event.FunnelStage,
			&event.ConversionType,
			&event.ConversionValue,
			&activityData,
			&deviceInfo,
			&location,
			&event.Timestamp,
		); err != nil {
			log.Printf("Error scanning activity event row: %v", err)
			continue
		}

		if err := json.Unmarshal([]byte(activityData), &event.ActivityData); err != nil {
			log.Printf("Error unmarshalling activityData for event %s: %v", event.EventID, err)
		}
		if err := json.Unmarshal([]byte(deviceInfo), &event.DeviceInfo); err != nil {
			log.Printf("Error unmarshalling deviceInfo for event %s: %v", event.EventID, err)
		}
		if err := json.Unmarshal([]byte(location), &event.Location); err != nil {
			log.Printf("Error unmarshalling location for event %s: %v", event.EventID, err)
		}

		results = append(results, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during activity event query: %w", err)
	}

	return results, nil
}

// GetFunnelStages groups in-window events that carry a funnel stage. Distinct
// user counts exclude anonymous events (empty user_id).
func (s *ActivityStore) GetFunnelStages(ctx context.Context, start time.Time) ([]FunnelStageRow, error) {
	query := `
		SELECT funnel_stage,
		       count() AS stage_count,
		       uniqExactIf(user_id, user_id != '') AS unique_users,
		       sum(conversion_value) AS total_conversion_value
		FROM user_activities
		WHERE timestamp >= ? AND funnel_stage != ''
		GROUP BY funnel_stage
	`

	rows, err := s.DB.Conn.Query(ctx, query, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query funnel stages: %w", err)
	}
	defer rows.Close()

	var results []FunnelStageRow
	for rows.Next() {
		var row FunnelStageRow
		if err := rows.Scan(&row.Stage, &row.Count, &row.UniqueUsers, &row.ConversionValue); err != nil {
			log.Printf("Error scanning funnel stage row: %v", err)
			continue
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during funnel stage query: %w", err)
	}

	return results, nil
}

// GetUserEngagementRows groups in-window events by user. Anonymous events are
// excluded since there is no user to attribute them to.
func (s *ActivityStore) GetUserEngagementRows(ctx context.Context, start time.Time) ([]UserEngagementRow, error) {
	query := `
		SELECT user_id,
		       count() AS total_activities,
		       uniqExact(session_id) AS unique_sessions,
		       sum(conversion_value) AS conversion_value,
		       max(timestamp) AS last_activity
		FROM user_activities
		WHERE timestamp >= ? AND user_id != ''
		GROUP BY user_id
	`

	rows, err := s.DB.Conn.Query(ctx, query, start)
	if err != nil {
		return nil, fmt.Errorf("failed to query user engagement rows: %w", err)
	}
	defer rows.Close()

	var results []UserEngagementRow
	for rows.Next() {
		var row UserEngagementRow
		if err := rows.Scan(&row.UserID, &row.TotalActivities, &row.UniqueSessions, &row.ConversionValue, &row.LastActivity); err != nil {
			log.Printf("Error scanning user engagement row: %v", err)
			continue
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error during user engagement query: %w", err)
	}

	return results, nil
}
