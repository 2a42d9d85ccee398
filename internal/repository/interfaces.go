package repository

import (
	"context"
	"time"

	"github.com/pollwave/pollwave/internal/models"
)

// FingerprintRepository defines device fingerprint data operations
type FingerprintRepository interface {
	CreateFingerprint(ctx context.Context, fp *models.DeviceFingerprint) error
	GetFingerprint(ctx context.Context, id string) (*models.DeviceFingerprint, error)
	GetFingerprintByHash(ctx context.Context, hash string) (*models.DeviceFingerprint, error)
	TouchFingerprint(ctx context.Context, id string, seenAt time.Time) error
	ListFingerprints(ctx context.Context) ([]models.DeviceFingerprint, error)
	ListBlockedFingerprints(ctx context.Context) ([]models.DeviceFingerprint, error)
	SetFingerprintBlock(ctx context.Context, id string, blocked bool, reason, adminID string, blockedAt *time.Time) error
	DeleteFingerprint(ctx context.Context, id string) error
}

// PollRepository defines poll data operations
type PollRepository interface {
	CreatePoll(ctx context.Context, p *models.Poll) error
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	ListPolls(ctx context.Context) ([]models.Poll, error)
	ListPollsByStatus(ctx context.Context, status models.PollStatus) ([]models.Poll, error)
	UpdatePoll(ctx context.Context, p *models.Poll) error
	SetPollStatus(ctx context.Context, id string, status models.PollStatus, closedAt *time.Time, adminID string) error
	DeletePoll(ctx context.Context, id string) error
}

// OptionRepository defines poll option data operations
type OptionRepository interface {
	CreateOption(ctx context.Context, opt *models.PollOption) error
	GetOption(ctx context.Context, id string) (*models.PollOption, error)
	ListOptions(ctx context.Context, pollID string) ([]models.PollOption, error)
	MaxOptionOrder(ctx context.Context, pollID string) (int, bool, error)
	OptionOrderExists(ctx context.Context, pollID string, orderNum int) (bool, error)
	UpdateOptionOrder(ctx context.Context, id string, orderNum int) error
	DeleteOption(ctx context.Context, id string) error
}

// VoteRepository defines vote data operations
type VoteRepository interface {
	InsertVote(ctx context.Context, v *models.Vote) error
	HasVoted(ctx context.Context, pollID, fingerprintID string) (bool, error)
	GetVote(ctx context.Context, id string) (*models.Vote, error)
	DeleteVote(ctx context.Context, id string) error
	ListVotesForPoll(ctx context.Context, pollID string) ([]models.Vote, error)
	CountVotesForPoll(ctx context.Context, pollID string) (int, error)
	CountVotesByFingerprint(ctx context.Context, fingerprintID string) (int, error)
	VoteCountsPerFingerprint(ctx context.Context) (map[string]int, error)
}

// IotRepository defines kiosk device, config and vote data operations
type IotRepository interface {
	CreateIotDevice(ctx context.Context, d *models.IotDevice) error
	GetIotDevice(ctx context.Context, id string) (*models.IotDevice, error)
	GetIotDeviceByKioskID(ctx context.Context, kioskID string) (*models.IotDevice, error)
	ListIotDevices(ctx context.Context) ([]models.IotDevice, error)
	TouchIotDeviceSync(ctx context.Context, id string, syncedAt time.Time) error
	GetDeviceConfig(ctx context.Context, deviceID string) (*models.IotDeviceConfig, error)
	CreateDeviceConfig(ctx context.Context, cfg *models.IotDeviceConfig) error
	UpdateDeviceConfig(ctx context.Context, cfg *models.IotDeviceConfig) error
	InsertIotVote(ctx context.Context, v *models.IotVote) error
	ListIotVotesForDevice(ctx context.Context, deviceID string) ([]models.IotVote, error)
	CountIotVotesForDevice(ctx context.Context, deviceID string) (int, error)
}

// AdminRepository defines admin account and audit log data operations
type AdminRepository interface {
	CreateAdmin(ctx context.Context, a *models.Admin, passwordHash string) error
	GetAdmin(ctx context.Context, id string) (*models.Admin, error)
	GetAdminCredentials(ctx context.Context, email string) (*models.Admin, string, error)
	SetAdminActive(ctx context.Context, id string, active bool) error
	TouchAdminLogin(ctx context.Context, id string, at time.Time) error
	InsertAdminLog(ctx context.Context, entry *models.AdminLog) error
	ListAdminLogs(ctx context.Context, limit int) ([]models.AdminLog, error)
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	FingerprintRepository
	PollRepository
	OptionRepository
	VoteRepository
	IotRepository
	AdminRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
