package models

import "time"

// PollType determines which vote-payload fields are meaningful for a poll.
// Fixed at creation.
type PollType string

const (
	PollTypeSingle   PollType = "SINGLE"
	PollTypeMultiple PollType = "MULTIPLE"
	PollTypeRating   PollType = "RATING"
	PollTypeOpen     PollType = "OPEN"
)

// Valid reports whether t is one of the known poll types
func (t PollType) Valid() bool {
	switch t {
	case PollTypeSingle, PollTypeMultiple, PollTypeRating, PollTypeOpen:
		return true
	}
	return false
}

// PollStatus is the lifecycle state of a poll. Transitions are forward-only:
// ACTIVE -> CLOSED -> ARCHIVED.
type PollStatus string

const (
	PollStatusActive   PollStatus = "ACTIVE"
	PollStatusClosed   PollStatus = "CLOSED"
	PollStatusArchived PollStatus = "ARCHIVED"
)

// ValidationStatus is the tri-state verdict attached to an IoT vote.
// Informational, not a hard filter: REJECTED votes are still stored.
type ValidationStatus string

const (
	ValidationApproved   ValidationStatus = "APPROVED"
	ValidationSuspicious ValidationStatus = "SUSPICIOUS"
	ValidationRejected   ValidationStatus = "REJECTED"
)

// Poll represents a poll with its ordered option list
type Poll struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Question        string       `json:"question"`
	Type            PollType     `json:"type"`
	Status          PollStatus   `json:"status"`
	MultipleAnswers bool         `json:"multiple_answers"`
	ShowResults     bool         `json:"show_results"`
	OrganizerID     string       `json:"organizer_id"`
	CreatedAt       time.Time    `json:"created_at"`
	ClosedAt        *time.Time   `json:"closed_at,omitempty"`
	Options         []PollOption `json:"options,omitempty"`
}

// PollOption is a single answer option. OrderNum is unique within a poll.
type PollOption struct {
	ID       string `json:"id"`
	PollID   string `json:"poll_id"`
	Text     string `json:"text"`
	OrderNum int    `json:"order_num"`
}

// DeviceFingerprint is a derived pseudo-identity for a voting client.
// The hash is unique and never recomputed for an existing record.
type DeviceFingerprint struct {
	ID          string     `json:"id"`
	Hash        string     `json:"hash"`
	IP          string     `json:"ip"`
	UserAgent   string     `json:"user_agent"`
	FirstSeen   time.Time  `json:"first_seen"`
	LastSeen    time.Time  `json:"last_seen"`
	Blocked     bool       `json:"blocked"`
	BlockReason string     `json:"block_reason,omitempty"`
	BlockedBy   string     `json:"blocked_by,omitempty"`
	BlockedAt   *time.Time `json:"blocked_at,omitempty"`
}

// Vote is a human/web vote. OptionID is nil only for OPEN-type free-text answers.
type Vote struct {
	ID            string    `json:"id"`
	PollID        string    `json:"poll_id"`
	OptionID      *string   `json:"option_id,omitempty"`
	FingerprintID string    `json:"fingerprint_id"`
	TextAnswer    string    `json:"text_answer,omitempty"`
	VotedAt       time.Time `json:"voted_at"`
}

// IotDevice is a physical voting kiosk
type IotDevice struct {
	ID         string     `json:"id"`
	KioskID    string     `json:"kiosk_id"`
	Location   string     `json:"location"`
	DeviceType string     `json:"device_type"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastSync   *time.Time `json:"last_sync,omitempty"`
}

// IotDeviceConfig is the per-kiosk tunable configuration. ConfigVersion
// increments on every update so kiosks can detect stale cached config.
type IotDeviceConfig struct {
	ID                  string    `json:"id"`
	DeviceID            string    `json:"device_id"`
	PollIntervalMs      int       `json:"poll_interval_ms"`
	DisplayTimeoutMs    int       `json:"display_timeout_ms"`
	ConfidenceThreshold float64   `json:"confidence_threshold"`
	AnomalyThreshold    float64   `json:"anomaly_threshold"`
	SmoothingAlpha      float64   `json:"smoothing_alpha"`
	Enabled             bool      `json:"enabled"`
	ConfigVersion       int       `json:"config_version"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// IotVote is a kiosk-submitted vote with timing-derived scores.
// Created atomically with its scores and never mutated afterward.
type IotVote struct {
	ID               string           `json:"id"`
	DeviceID         string           `json:"device_id"`
	PollID           string           `json:"poll_id"`
	OptionID         *string          `json:"option_id,omitempty"`
	OptionIDs        string           `json:"option_ids,omitempty"` // JSON array, MULTIPLE polls
	Rating           *int             `json:"rating,omitempty"`
	TextAnswer       string           `json:"text_answer,omitempty"`
	VotingTimeMs     int              `json:"voting_time_ms"`
	Confidence       float64          `json:"confidence"`
	AnomalyScore     float64          `json:"anomaly_score"`
	Entropy          float64          `json:"entropy"`
	Suspicious       bool             `json:"suspicious"`
	ValidationStatus ValidationStatus `json:"validation_status"`
	Analysis         string           `json:"analysis,omitempty"`        // serialized scoring breakdown
	DeviceMetadata   string           `json:"device_metadata,omitempty"` // serialized kiosk snapshot
	VotedAt          time.Time        `json:"voted_at"`
}

// Admin is a human administrator account
type Admin struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// AdminLog is one audit record of an admin action
type AdminLog struct {
	ID          string    `json:"id"`
	AdminID     string    `json:"admin_id"`
	Action      string    `json:"action"`
	TargetType  string    `json:"target_type"`
	TargetID    string    `json:"target_id"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ClientMessage is an inbound WebSocket message from a subscriber session
type ClientMessage struct {
	Action string `json:"action"` // subscribe | unsubscribe | ping
	Topic  string `json:"topic,omitempty"`
}

// TopicMessage is the envelope pushed to sessions subscribed to a topic
type TopicMessage struct {
	Type      string      `json:"type"`
	Topic     string      `json:"topic"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}
