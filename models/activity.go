package models

import (
	"encoding/json"
	"time"
)

// ActivityEvent is one immutable record of a tracked user/visitor action.
// Events are append-only: once written they are never updated or deleted.
type ActivityEvent struct {
	EventID         string       `json:"eventId"`
	UserID          string       `json:"userId,omitempty"` // empty for unauthenticated visitors
	SessionID       string       `json:"sessionId"`
	ActivityType    string       `json:"activityType"`
	ActivityData    ActivityData `json:"activityData"`
	DeviceInfo      DeviceInfo   `json:"deviceInfo"`
	Location        Location     `json:"location"`
	Timestamp       time.Time    `json:"timestamp"` // assigned by the server at ingestion
	ConversionValue float64      `json:"conversionValue"`
	ConversionType  string       `json:"conversionType,omitempty"`
	FunnelStage     string       `json:"funnelStage,omitempty"`
}

// ActivityData is the per-type contextual payload. Which fields are set depends
// on the activityType (a product_view carries productId, a search carries
// searchQuery, and so on). Unrecognized extras go into Metadata.
type ActivityData struct {
	// Page / product
	Page        string `json:"page,omitempty"`
	ProductID   string `json:"productId,omitempty"`
	Category    string `json:"category,omitempty"`
	SearchQuery string `json:"searchQuery,omitempty"`

	// Cart
	CartItemID string  `json:"cartItemId,omitempty"`
	Quantity   int     `json:"quantity,omitempty"`
	Price      float64 `json:"price,omitempty"`

	// Checkout
	CheckoutStep  string  `json:"checkoutStep,omitempty"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
	OrderID       string  `json:"orderId,omitempty"`
	TotalAmount   float64 `json:"totalAmount,omitempty"`

	// Engagement
	TimeSpent   int `json:"timeSpent,omitempty"`   // seconds
	ScrollDepth int `json:"scrollDepth,omitempty"` // percentage
	Clicks      int `json:"clicks,omitempty"`

	Referrer string          `json:"referrer,omitempty"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

// DeviceInfo is best-effort, client-reported device context.
type DeviceInfo struct {
	DeviceType       string `json:"deviceType,omitempty"` // mobile, tablet, desktop
	Browser          string `json:"browser,omitempty"`
	OS               string `json:"os,omitempty"`
	ScreenResolution string `json:"screenResolution,omitempty"`
	UserAgent        string `json:"userAgent,omitempty"`
	IPAddress        string `json:"ipAddress,omitempty"`
}

type Location struct {
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	City     string `json:"city,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// TrackEventRequest is the /track request body. EventID and Timestamp are
// always assigned server-side and cannot be supplied by the client.
type TrackEventRequest struct {
	UserID          string       `json:"userId"`
	SessionID       string       `json:"sessionId"`
	ActivityType    string       `json:"activityType"`
	ActivityData    ActivityData `json:"activityData"`
	DeviceInfo      DeviceInfo   `json:"deviceInfo"`
	Location        Location     `json:"location"`
	ConversionValue float64      `json:"conversionValue"`
	ConversionType  string       `json:"conversionType"`
	FunnelStage     string       `json:"funnelStage"`
}

// Validate checks required fields and closed enumerations. It returns a map of
// field name to problem, empty when the request is well-formed.
func (r *TrackEventRequest) Validate() map[string]string {
	errs := make(map[string]string)

	if r.SessionID == "" {
		errs["sessionId"] = "sessionId is required"
	}
	if r.ActivityType == "" {
		errs["activityType"] = "activityType is required"
	} else if !IsValidActivityType(r.ActivityType) {
		errs["activityType"] = "unrecognized activityType: " + r.ActivityType
	}
	if r.ConversionValue < 0 {
		errs["conversionValue"] = "conversionValue must be >= 0"
	}
	if r.ConversionType != "" && !IsValidConversionType(r.ConversionType) {
		errs["conversionType"] = "unrecognized conversionType: " + r.ConversionType
	}
	if r.FunnelStage != "" && !IsValidFunnelStage(r.FunnelStage) {
		errs["funnelStage"] = "unrecognized funnelStage: " + r.FunnelStage
	}

	return errs
}

// FunnelStages is the canonical funnel order, awareness first. Stage-to-stage
// transition rates are only meaningful in this order.
var FunnelStages = []string{"awareness", "interest", "consideration", "intent", "purchase", "retention"}

func IsValidActivityType(activityType string) bool {
	switch activityType {
	// Page visits
	case "page_view", "product_view", "category_view":
		return true
	// Cart
	case "add_to_cart", "remove_from_cart", "update_cart", "view_cart":
		return true
	// Checkout
	case "checkout_start", "checkout_step", "payment_attempt", "payment_success", "payment_failed":
		return true
	// Account
	case "login", "logout", "register", "profile_update", "password_change":
		return true
	// Engagement
	case "search", "filter", "sort", "download", "share", "bookmark":
		return true
	// Lead generation
	case "lead_magnet_view", "lead_magnet_download", "newsletter_signup":
		return true
	// Support
	case "contact_form", "faq_view", "support_ticket":
		return true
	// Session boundaries
	case "session_start", "session_end", "bounce", "return_visit":
		return true
	default:
		return false
	}
}

func IsValidFunnelStage(stage string) bool {
	switch stage {
	case "awareness", "interest", "consideration", "intent", "purchase", "retention":
		return true
	default:
		return false
	}
}

func IsValidConversionType(conversionType string) bool {
	switch conversionType {
	case "purchase", "lead", "download", "signup", "engagement":
		return true
	default:
		return false
	}
}
