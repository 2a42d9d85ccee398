package services

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"time"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/repository"
)

// Scoring constants. Timing is measured against an expected deliberation of
// 15 seconds with a 5 second spread; 30 seconds saturates the entropy scale.
const (
	confidenceSteepness = 0.1
	confidenceMidpointS = 15.0
	expectedVoteTimeMs  = 15000.0
	voteTimeSpreadMs    = 5000.0
	entropyScaleMs      = 30000.0

	lowConfidenceCutoff = 0.3
)

// Default per-device config values applied at first sync
const (
	defaultPollIntervalMs      = 5000
	defaultDisplayTimeoutMs    = 30000
	defaultConfidenceThreshold = 0.6
	defaultAnomalyThreshold    = 2.5
	defaultSmoothingAlpha      = 0.1
)

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Confidence maps the reported voting duration onto a logistic curve. A
// near-instant vote scores low (bot-like), ~15s scores 0.5, long
// deliberation approaches 1.
func Confidence(votingTimeMs int) float64 {
	tSec := float64(votingTimeMs) / 1000.0
	return round2(1.0 / (1.0 + math.Exp(-confidenceSteepness*(tSec-confidenceMidpointS))))
}

// TimeAnomalyScore measures deviation from the expected voting duration in
// units of the spread. Deviation in either direction counts.
func TimeAnomalyScore(votingTimeMs int) float64 {
	return round2(math.Abs(float64(votingTimeMs)-expectedVoteTimeMs) / voteTimeSpreadMs)
}

// TimingEntropy computes the binary entropy of the duration normalized to
// the 30 second scale. At the degenerate points p=0 and p=1 the entropy
// expression is undefined and the normalized value itself is returned.
func TimingEntropy(votingTimeMs int) float64 {
	p := math.Min(float64(votingTimeMs)/entropyScaleMs, 1.0)
	h := -p*math.Log2(p) - (1.0-p)*math.Log2(1.0-p)
	if math.IsNaN(h) {
		return round2(p)
	}
	return round2(h)
}

// IsSuspicious flags a vote whose confidence is low or whose timing deviates
// beyond the device's anomaly threshold.
func IsSuspicious(confidence, anomalyScore, anomalyThreshold float64) bool {
	return confidence < lowConfidenceCutoff || anomalyScore > anomalyThreshold
}

// Verdict derives the validation status from the computed scores. Rejection
// is a label, not a filter; rejected votes are still stored for audit.
func Verdict(confidence, anomalyScore, anomalyThreshold float64) models.ValidationStatus {
	if anomalyScore > 2*anomalyThreshold {
		return models.ValidationRejected
	}
	if IsSuspicious(confidence, anomalyScore, anomalyThreshold) {
		return models.ValidationSuspicious
	}
	return models.ValidationApproved
}

// IotServiceRepository defines the repository methods needed by IotService
type IotServiceRepository interface {
	repository.IotRepository
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	ListPollsByStatus(ctx context.Context, status models.PollStatus) ([]models.Poll, error)
	InsertAdminLog(ctx context.Context, entry *models.AdminLog) error
}

// IotService handles kiosk device registration, sync and vote scoring
type IotService struct {
	log  logger.Logger
	repo IotServiceRepository
}

// NewIotService creates a new IotService
func NewIotService(log logger.Logger, repo IotServiceRepository) *IotService {
	return &IotService{log: log, repo: repo}
}

// SyncResponse is returned to a kiosk on sync: its current config plus the
// polls it should display.
type SyncResponse struct {
	Device      *models.IotDevice       `json:"device"`
	Config      *models.IotDeviceConfig `json:"config"`
	ActivePolls []models.Poll           `json:"active_polls"`
	SyncedAt    time.Time               `json:"synced_at"`
}

// ConfigUpdate carries the tunable per-device config fields. Nil fields keep
// their current value.
type ConfigUpdate struct {
	PollIntervalMs      *int     `json:"poll_interval_ms,omitempty"`
	DisplayTimeoutMs    *int     `json:"display_timeout_ms,omitempty"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty"`
	AnomalyThreshold    *float64 `json:"anomaly_threshold,omitempty"`
	SmoothingAlpha      *float64 `json:"smoothing_alpha,omitempty"`
	Enabled             *bool    `json:"enabled,omitempty"`
}

// IotVoteInput carries a kiosk-submitted vote payload
type IotVoteInput struct {
	DeviceID     string          `json:"device_id"`
	PollID       string          `json:"poll_id"`
	OptionID     *string         `json:"option_id,omitempty"`
	OptionIDs    []string        `json:"option_ids,omitempty"`
	Rating       *int            `json:"rating,omitempty"`
	TextAnswer   string          `json:"text_answer,omitempty"`
	VotingTimeMs int             `json:"voting_time_ms"`
	Metadata     json.RawMessage `json:"metadata,omitempty"`
}

// IotDeviceStats summarizes a kiosk's submission history
type IotDeviceStats struct {
	DeviceID        string     `json:"device_id"`
	KioskID         string     `json:"kiosk_id"`
	TotalVotes      int        `json:"total_votes"`
	SuspiciousVotes int        `json:"suspicious_votes"`
	RejectedVotes   int        `json:"rejected_votes"`
	AvgConfidence   float64    `json:"avg_confidence"`
	AvgVotingTimeMs float64    `json:"avg_voting_time_ms"`
	LastSync        *time.Time `json:"last_sync,omitempty"`
}

// RegisterDevice creates a new kiosk device record
func (s *IotService) RegisterDevice(ctx context.Context, kioskID, location, deviceType string) (*models.IotDevice, error) {
	if kioskID == "" {
		return nil, &ServiceError{Message: "kiosk id must not be empty"}
	}
	if deviceType == "" {
		deviceType = "KIOSK"
	}
	device := &models.IotDevice{
		KioskID:    kioskID,
		Location:   location,
		DeviceType: deviceType,
		Active:     true,
		CreatedAt:  time.Now(),
	}
	if err := s.repo.CreateIotDevice(ctx, device); err != nil {
		return nil, err
	}
	s.log.Info("iot device registered", "device_id", device.ID, "kiosk_id", kioskID)
	return device, nil
}

// ListDevices returns all kiosk devices
func (s *IotService) ListDevices(ctx context.Context) ([]models.IotDevice, error) {
	return s.repo.ListIotDevices(ctx)
}

// SyncDevice handles a kiosk check-in: refreshes last_sync, materializes a
// default config on first contact, and returns the config plus the active
// polls. Kiosks compare the returned config_version to their cached copy.
func (s *IotService) SyncDevice(ctx context.Context, kioskID string) (*SyncResponse, error) {
	device, err := s.repo.GetIotDeviceByKioskID(ctx, kioskID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.repo.TouchIotDeviceSync(ctx, device.ID, now); err != nil {
		return nil, err
	}
	device.LastSync = &now

	cfg, err := s.repo.GetDeviceConfig(ctx, device.ID)
	if stderrors.Is(err, repository.ErrNotFound) {
		cfg = defaultDeviceConfig(device.ID, now)
		if err := s.repo.CreateDeviceConfig(ctx, cfg); err != nil {
			return nil, err
		}
		s.log.Info("created default device config", "device_id", device.ID)
	} else if err != nil {
		return nil, err
	}

	polls, err := s.repo.ListPollsByStatus(ctx, models.PollStatusActive)
	if err != nil {
		return nil, err
	}

	return &SyncResponse{
		Device:      device,
		Config:      cfg,
		ActivePolls: polls,
		SyncedAt:    now,
	}, nil
}

func defaultDeviceConfig(deviceID string, now time.Time) *models.IotDeviceConfig {
	return &models.IotDeviceConfig{
		DeviceID:            deviceID,
		PollIntervalMs:      defaultPollIntervalMs,
		DisplayTimeoutMs:    defaultDisplayTimeoutMs,
		ConfidenceThreshold: defaultConfidenceThreshold,
		AnomalyThreshold:    defaultAnomalyThreshold,
		SmoothingAlpha:      defaultSmoothingAlpha,
		Enabled:             true,
		ConfigVersion:       1,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// UpdateDeviceConfig applies a partial config update and bumps the config
// version so syncing kiosks notice the change. The acting admin is recorded.
func (s *IotService) UpdateDeviceConfig(ctx context.Context, deviceID string, input ConfigUpdate, adminID string) (*models.IotDeviceConfig, error) {
	cfg, err := s.repo.GetDeviceConfig(ctx, deviceID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}

	if input.PollIntervalMs != nil {
		cfg.PollIntervalMs = *input.PollIntervalMs
	}
	if input.DisplayTimeoutMs != nil {
		cfg.DisplayTimeoutMs = *input.DisplayTimeoutMs
	}
	if input.ConfidenceThreshold != nil {
		cfg.ConfidenceThreshold = *input.ConfidenceThreshold
	}
	if input.AnomalyThreshold != nil {
		cfg.AnomalyThreshold = *input.AnomalyThreshold
	}
	if input.SmoothingAlpha != nil {
		cfg.SmoothingAlpha = *input.SmoothingAlpha
	}
	if input.Enabled != nil {
		cfg.Enabled = *input.Enabled
	}
	cfg.UpdatedAt = time.Now()

	if err := s.repo.UpdateDeviceConfig(ctx, cfg); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}

	recordAdminAction(ctx, s.log, s.repo, adminID, ActionUpdateDeviceConfig, "iot_device", deviceID, "")
	s.log.Info("device config updated", "device_id", deviceID, "config_version", cfg.ConfigVersion, "admin_id", adminID)
	return cfg, nil
}

// iotAnalysis is the serialized scoring breakdown stored with each vote
type iotAnalysis struct {
	Confidence       float64 `json:"confidence"`
	AnomalyScore     float64 `json:"anomaly_score"`
	Entropy          float64 `json:"entropy"`
	AnomalyThreshold float64 `json:"anomaly_threshold"`
	VotingTimeMs     int     `json:"voting_time_ms"`
}

// RegisterIotVote scores and persists a kiosk vote. The device, its config
// and the poll must all exist. The vote is stored no matter the verdict;
// REJECTED is an audit label, not a discard.
func (s *IotService) RegisterIotVote(ctx context.Context, input IotVoteInput) (*models.IotVote, error) {
	if input.VotingTimeMs < 0 {
		return nil, &ServiceError{Message: "voting time must not be negative"}
	}

	device, err := s.repo.GetIotDevice(ctx, input.DeviceID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}

	cfg, err := s.repo.GetDeviceConfig(ctx, device.ID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}

	poll, err := s.repo.GetPoll(ctx, input.PollID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}

	confidence := Confidence(input.VotingTimeMs)
	anomaly := TimeAnomalyScore(input.VotingTimeMs)
	entropy := TimingEntropy(input.VotingTimeMs)
	suspicious := IsSuspicious(confidence, anomaly, cfg.AnomalyThreshold)
	status := Verdict(confidence, anomaly, cfg.AnomalyThreshold)

	vote := &models.IotVote{
		DeviceID:         device.ID,
		PollID:           poll.ID,
		VotingTimeMs:     input.VotingTimeMs,
		Confidence:       confidence,
		AnomalyScore:     anomaly,
		Entropy:          entropy,
		Suspicious:       suspicious,
		ValidationStatus: status,
		VotedAt:          time.Now(),
	}

	// The poll type picks which payload field is meaningful; the rest are
	// ignored rather than rejected.
	switch poll.Type {
	case models.PollTypeSingle:
		vote.OptionID = input.OptionID
	case models.PollTypeMultiple:
		if len(input.OptionIDs) > 0 {
			ids, err := json.Marshal(input.OptionIDs)
			if err != nil {
				return nil, err
			}
			vote.OptionIDs = string(ids)
		}
	case models.PollTypeRating:
		vote.Rating = input.Rating
	case models.PollTypeOpen:
		vote.TextAnswer = input.TextAnswer
	}

	analysis, err := json.Marshal(iotAnalysis{
		Confidence:       confidence,
		AnomalyScore:     anomaly,
		Entropy:          entropy,
		AnomalyThreshold: cfg.AnomalyThreshold,
		VotingTimeMs:     input.VotingTimeMs,
	})
	if err != nil {
		return nil, err
	}
	vote.Analysis = string(analysis)
	if len(input.Metadata) > 0 {
		vote.DeviceMetadata = string(input.Metadata)
	}

	if err := s.repo.InsertIotVote(ctx, vote); err != nil {
		return nil, err
	}

	s.log.Info("iot vote registered",
		"device_id", device.ID, "poll_id", poll.ID,
		"status", string(status), "confidence", confidence, "anomaly", anomaly)
	return vote, nil
}

// DeviceStatistics summarizes a kiosk's submission history
func (s *IotService) DeviceStatistics(ctx context.Context, deviceID string) (*IotDeviceStats, error) {
	device, err := s.repo.GetIotDevice(ctx, deviceID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}

	votes, err := s.repo.ListIotVotesForDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	stats := &IotDeviceStats{
		DeviceID: device.ID,
		KioskID:  device.KioskID,
		LastSync: device.LastSync,
	}
	if len(votes) == 0 {
		return stats, nil
	}

	var confSum, timeSum float64
	for _, v := range votes {
		stats.TotalVotes++
		if v.Suspicious {
			stats.SuspiciousVotes++
		}
		if v.ValidationStatus == models.ValidationRejected {
			stats.RejectedVotes++
		}
		confSum += v.Confidence
		timeSum += float64(v.VotingTimeMs)
	}
	stats.AvgConfidence = round2(confSum / float64(stats.TotalVotes))
	stats.AvgVotingTimeMs = round2(timeSum / float64(stats.TotalVotes))
	return stats, nil
}
