package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/repository"
)

// Broadcaster defines the interface for pushing live updates to subscribers.
// Sends are fire-and-forget; a failed push never fails the triggering call.
type Broadcaster interface {
	BroadcastPollResults(pollID string, stats *PollStatistics)
	BroadcastNewPoll(poll *models.Poll)
	BroadcastPollStatus(pollID string, status models.PollStatus)
}

// VotingServiceRepository defines the repository methods needed by VotingService
type VotingServiceRepository interface {
	repository.VoteRepository
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	GetOption(ctx context.Context, id string) (*models.PollOption, error)
	GetFingerprint(ctx context.Context, id string) (*models.DeviceFingerprint, error)
	InsertAdminLog(ctx context.Context, entry *models.AdminLog) error
}

// VotingService handles the vote ledger business logic
type VotingService struct {
	log         logger.Logger
	repo        VotingServiceRepository
	stats       StatsServicer
	broadcaster Broadcaster
}

// NewVotingService creates a new VotingService
func NewVotingService(log logger.Logger, repo VotingServiceRepository, stats StatsServicer) *VotingService {
	return &VotingService{
		log:   log,
		repo:  repo,
		stats: stats,
	}
}

// SetBroadcaster sets the broadcaster for pushing result updates
func (s *VotingService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// VoteInput carries the fields for registering a vote
type VoteInput struct {
	PollID        string  `json:"poll_id"`
	OptionID      *string `json:"option_id,omitempty"`
	FingerprintID string  `json:"fingerprint_id"`
	TextAnswer    string  `json:"text_answer,omitempty"`
}

// HasVoted reports whether a device already has a vote in a poll. Missing
// poll or fingerprint records read as false; the insert path is the
// authoritative guard.
func (s *VotingService) HasVoted(ctx context.Context, pollID, fingerprintID string) (bool, error) {
	return s.repo.HasVoted(ctx, pollID, fingerprintID)
}

// RegisterVote validates and persists a vote, then recomputes the poll's
// statistics and pushes them to subscribers. The HasVoted pre-check is only
// a fast path; the unique (poll, fingerprint) constraint at the storage
// layer decides races between concurrent votes from the same device.
func (s *VotingService) RegisterVote(ctx context.Context, input VoteInput) (*models.Vote, error) {
	voted, err := s.repo.HasVoted(ctx, input.PollID, input.FingerprintID)
	if err != nil {
		return nil, err
	}
	if voted {
		return nil, ErrAlreadyVoted
	}

	fp, err := s.repo.GetFingerprint(ctx, input.FingerprintID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrDeviceBlocked
	}
	if err != nil {
		return nil, err
	}
	if fp.Blocked {
		return nil, ErrDeviceBlocked
	}

	poll, err := s.repo.GetPoll(ctx, input.PollID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}
	if poll.Status != models.PollStatusActive {
		return nil, ErrPollNotActive
	}

	// OPEN polls carry a free-text answer instead of an option reference
	if poll.Type == models.PollTypeOpen {
		if input.OptionID == nil && strings.TrimSpace(input.TextAnswer) == "" {
			return nil, ErrOptionlessVote
		}
	} else if input.OptionID == nil {
		return nil, ErrOptionlessVote
	}

	if input.OptionID != nil {
		opt, err := s.repo.GetOption(ctx, *input.OptionID)
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrOptionNotFound
		}
		if err != nil {
			return nil, err
		}
		if opt.PollID != input.PollID {
			return nil, ErrOptionNotFound
		}
	}

	vote := &models.Vote{
		PollID:        input.PollID,
		OptionID:      input.OptionID,
		FingerprintID: input.FingerprintID,
		TextAnswer:    strings.TrimSpace(input.TextAnswer),
		VotedAt:       time.Now(),
	}
	if err := s.repo.InsertVote(ctx, vote); err != nil {
		if stderrors.Is(err, repository.ErrDuplicateVote) {
			return nil, ErrAlreadyVoted
		}
		return nil, err
	}

	s.log.Info("vote registered", "poll_id", input.PollID, "fingerprint_id", input.FingerprintID)
	s.publishResults(ctx, input.PollID)
	return vote, nil
}

// DeleteVote removes a vote, records the admin action, and re-broadcasts the
// poll's updated statistics.
func (s *VotingService) DeleteVote(ctx context.Context, voteID, adminID string) error {
	vote, err := s.repo.GetVote(ctx, voteID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return ErrVoteNotFound
	}
	if err != nil {
		return err
	}

	if err := s.repo.DeleteVote(ctx, voteID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return ErrVoteNotFound
		}
		return err
	}

	recordAdminAction(ctx, s.log, s.repo, adminID, ActionDeleteVote, "vote", voteID, "")

	s.log.Info("vote deleted", "vote_id", voteID, "poll_id", vote.PollID, "admin_id", adminID)
	s.publishResults(ctx, vote.PollID)
	return nil
}

// publishResults recomputes a poll's statistics and pushes them to the poll's
// results topic. Failures are logged and swallowed; the vote itself stands.
func (s *VotingService) publishResults(ctx context.Context, pollID string) {
	if s.broadcaster == nil {
		return
	}
	stats, err := s.stats.ComputeStatistics(ctx, pollID)
	if err != nil {
		s.log.Warn("failed to compute statistics for broadcast", "poll_id", pollID, "error", err)
		return
	}
	s.broadcaster.BroadcastPollResults(pollID, stats)
}

// CountVotesFrom returns the number of votes a device has cast across all polls
func (s *VotingService) CountVotesFrom(ctx context.Context, fingerprintID string) (int, error) {
	return s.repo.CountVotesByFingerprint(ctx, fingerprintID)
}

// DeviceAnomalyScore compares a device's vote volume to the average across
// all known devices. Scores above 3.0 read as anomalous. The ratio is
// poll-blind; it measures overall activity, not per-poll behavior.
func (s *VotingService) DeviceAnomalyScore(ctx context.Context, fingerprintID string) (float64, error) {
	count, err := s.repo.CountVotesByFingerprint(ctx, fingerprintID)
	if err != nil {
		return 0, err
	}
	counts, err := s.repo.VoteCountsPerFingerprint(ctx)
	if err != nil {
		return 0, err
	}
	return deviceAnomalyRatio(count, counts), nil
}

// IsAnomalousDevice reports whether a device's anomaly score exceeds the
// fixed threshold.
func (s *VotingService) IsAnomalousDevice(ctx context.Context, fingerprintID string) (bool, error) {
	score, err := s.DeviceAnomalyScore(ctx, fingerprintID)
	if err != nil {
		return false, err
	}
	return score > deviceAnomalyThreshold, nil
}
