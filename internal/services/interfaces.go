package services

import (
	"context"

	"github.com/pollwave/pollwave/internal/models"
)

// FingerprintServicer defines the interface for device identity operations
type FingerprintServicer interface {
	Identify(ctx context.Context, ip, userAgent, knownHash string) (*models.DeviceFingerprint, error)
	GetFingerprint(ctx context.Context, id string) (*models.DeviceFingerprint, error)
	ListFingerprints(ctx context.Context) ([]models.DeviceFingerprint, error)
	ListBlocked(ctx context.Context) ([]models.DeviceFingerprint, error)
	Block(ctx context.Context, id, reason, adminID string) error
	Unblock(ctx context.Context, id, adminID string) error
	DeviceStatistics(ctx context.Context, id string) (*DeviceStats, error)
	Delete(ctx context.Context, id string) error
}

// PollServicer defines the interface for poll lifecycle operations
type PollServicer interface {
	CreatePoll(ctx context.Context, input PollInput) (*models.Poll, error)
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	ListPolls(ctx context.Context) ([]models.Poll, error)
	ListPollsByStatus(ctx context.Context, status models.PollStatus) ([]models.Poll, error)
	UpdatePoll(ctx context.Context, id string, input PollUpdate) (*models.Poll, error)
	ClosePoll(ctx context.Context, id, adminID string) (*models.Poll, error)
	ArchivePoll(ctx context.Context, id, adminID string) (*models.Poll, error)
	DeletePoll(ctx context.Context, id, adminID string) error
	AddOption(ctx context.Context, pollID, text string) (*models.PollOption, error)
	AddOptionWithOrder(ctx context.Context, pollID, text string, orderNum int) (*models.PollOption, error)
	DeleteOption(ctx context.Context, optionID string) error
	ResequenceOptions(ctx context.Context, pollID string) ([]models.PollOption, error)
	PollLink(pollID string) string
	PollQR(pollID string, size int) ([]byte, error)
	SetBroadcaster(b Broadcaster)
}

// VotingServicer defines the interface for vote ledger operations
type VotingServicer interface {
	HasVoted(ctx context.Context, pollID, fingerprintID string) (bool, error)
	RegisterVote(ctx context.Context, input VoteInput) (*models.Vote, error)
	DeleteVote(ctx context.Context, voteID, adminID string) error
	CountVotesFrom(ctx context.Context, fingerprintID string) (int, error)
	DeviceAnomalyScore(ctx context.Context, fingerprintID string) (float64, error)
	IsAnomalousDevice(ctx context.Context, fingerprintID string) (bool, error)
	SetBroadcaster(b Broadcaster)
}

// IotServicer defines the interface for kiosk device operations
type IotServicer interface {
	RegisterDevice(ctx context.Context, kioskID, location, deviceType string) (*models.IotDevice, error)
	ListDevices(ctx context.Context) ([]models.IotDevice, error)
	SyncDevice(ctx context.Context, kioskID string) (*SyncResponse, error)
	UpdateDeviceConfig(ctx context.Context, deviceID string, input ConfigUpdate, adminID string) (*models.IotDeviceConfig, error)
	RegisterIotVote(ctx context.Context, input IotVoteInput) (*models.IotVote, error)
	DeviceStatistics(ctx context.Context, deviceID string) (*IotDeviceStats, error)
}

// StatsServicer defines the interface for poll statistics operations
type StatsServicer interface {
	ComputeStatistics(ctx context.Context, pollID string) (*PollStatistics, error)
	DistributionMetrics(ctx context.Context, pollID string) (*DistributionMetrics, error)
	TrendingPolls(ctx context.Context, limit int) ([]TrendingPoll, error)
}

// Compile-time interface checks
var (
	_ FingerprintServicer = (*FingerprintService)(nil)
	_ PollServicer        = (*PollService)(nil)
	_ VotingServicer      = (*VotingService)(nil)
	_ IotServicer         = (*IotService)(nil)
	_ StatsServicer       = (*StatsService)(nil)
)
