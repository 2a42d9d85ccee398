package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/repository"
)

// FingerprintServiceRepository defines the repository methods needed by FingerprintService
type FingerprintServiceRepository interface {
	repository.FingerprintRepository
	CountVotesByFingerprint(ctx context.Context, fingerprintID string) (int, error)
	VoteCountsPerFingerprint(ctx context.Context) (map[string]int, error)
	InsertAdminLog(ctx context.Context, entry *models.AdminLog) error
}

// FingerprintService handles device identity business logic
type FingerprintService struct {
	log  logger.Logger
	repo FingerprintServiceRepository
}

// NewFingerprintService creates a new FingerprintService
func NewFingerprintService(log logger.Logger, repo FingerprintServiceRepository) *FingerprintService {
	return &FingerprintService{log: log, repo: repo}
}

// DeviceStats summarizes a device's voting history
type DeviceStats struct {
	FingerprintID string    `json:"fingerprint_id"`
	Hash          string    `json:"hash"`
	TotalVotes    int       `json:"total_votes"`
	FirstSeen     time.Time `json:"first_seen"`
	LastSeen      time.Time `json:"last_seen"`
	Blocked       bool      `json:"blocked"`
	AnomalyScore  float64   `json:"anomaly_score"`
	Anomalous     bool      `json:"anomalous"`
}

// fingerprintHash derives the identity hash from the raw client signals plus
// a high-resolution timestamp, so two devices behind the same address never
// collide. The hash is minted once; later requests carry it back.
func fingerprintHash(ip, userAgent string, nanos int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", ip, userAgent, nanos)))
	return hex.EncodeToString(sum[:])
}

// Identify resolves a client to a device fingerprint. When knownHash matches
// an existing record, that record's last_seen is refreshed and it is returned
// unchanged. Otherwise a fresh fingerprint is minted from the client signals.
func (s *FingerprintService) Identify(ctx context.Context, ip, userAgent, knownHash string) (*models.DeviceFingerprint, error) {
	now := time.Now()

	if knownHash != "" {
		fp, err := s.repo.GetFingerprintByHash(ctx, knownHash)
		if err == nil {
			if err := s.repo.TouchFingerprint(ctx, fp.ID, now); err != nil {
				return nil, err
			}
			fp.LastSeen = now
			return fp, nil
		}
		if !stderrors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		// Unknown hash presented; fall through and mint a new identity
	}

	fp := &models.DeviceFingerprint{
		Hash:      fingerprintHash(ip, userAgent, time.Now().UnixNano()),
		IP:        ip,
		UserAgent: userAgent,
		FirstSeen: now,
		LastSeen:  now,
	}
	if err := s.repo.CreateFingerprint(ctx, fp); err != nil {
		return nil, err
	}

	s.log.Debug("registered new device fingerprint", "fingerprint_id", fp.ID, "ip", ip)
	return fp, nil
}

// GetFingerprint retrieves a fingerprint by ID
func (s *FingerprintService) GetFingerprint(ctx context.Context, id string) (*models.DeviceFingerprint, error) {
	fp, err := s.repo.GetFingerprint(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	return fp, err
}

// ListFingerprints returns all known fingerprints
func (s *FingerprintService) ListFingerprints(ctx context.Context) ([]models.DeviceFingerprint, error) {
	return s.repo.ListFingerprints(ctx)
}

// ListBlocked returns all currently blocked fingerprints
func (s *FingerprintService) ListBlocked(ctx context.Context) ([]models.DeviceFingerprint, error) {
	return s.repo.ListBlockedFingerprints(ctx)
}

// Block marks a fingerprint as blocked. Re-blocking overwrites the reason and
// timestamp. Votes already cast by the device are unaffected.
func (s *FingerprintService) Block(ctx context.Context, id, reason, adminID string) error {
	now := time.Now()
	err := s.repo.SetFingerprintBlock(ctx, id, true, reason, adminID, &now)
	if stderrors.Is(err, repository.ErrNotFound) {
		return ErrDeviceNotFound
	}
	if err != nil {
		return err
	}

	recordAdminAction(ctx, s.log, s.repo, adminID, ActionBlockDevice, "fingerprint", id, reason)
	s.log.Info("device blocked", "fingerprint_id", id, "admin_id", adminID, "reason", reason)
	return nil
}

// Unblock clears a fingerprint's block state and records the acting admin
func (s *FingerprintService) Unblock(ctx context.Context, id, adminID string) error {
	err := s.repo.SetFingerprintBlock(ctx, id, false, "", "", nil)
	if stderrors.Is(err, repository.ErrNotFound) {
		return ErrDeviceNotFound
	}
	if err != nil {
		return err
	}

	recordAdminAction(ctx, s.log, s.repo, adminID, ActionUnblockDevice, "fingerprint", id, "")
	s.log.Info("device unblocked", "fingerprint_id", id, "admin_id", adminID)
	return nil
}

// DeviceStatistics reports a device's voting activity together with its
// anomaly score relative to the average across all known devices.
func (s *FingerprintService) DeviceStatistics(ctx context.Context, id string) (*DeviceStats, error) {
	fp, err := s.repo.GetFingerprint(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountVotesByFingerprint(ctx, id)
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.VoteCountsPerFingerprint(ctx)
	if err != nil {
		return nil, err
	}
	score := deviceAnomalyRatio(total, counts)

	return &DeviceStats{
		FingerprintID: fp.ID,
		Hash:          fp.Hash,
		TotalVotes:    total,
		FirstSeen:     fp.FirstSeen,
		LastSeen:      fp.LastSeen,
		Blocked:       fp.Blocked,
		AnomalyScore:  score,
		Anomalous:     score > deviceAnomalyThreshold,
	}, nil
}

// Delete removes a fingerprint record
func (s *FingerprintService) Delete(ctx context.Context, id string) error {
	err := s.repo.DeleteFingerprint(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return ErrDeviceNotFound
	}
	return err
}

// deviceAnomalyThreshold is the fixed ratio above which a device's vote
// volume is considered anomalous.
const deviceAnomalyThreshold = 3.0

// deviceAnomalyRatio computes a device's vote count relative to the average
// vote count across all known devices. With no known devices the average is
// taken as 1.0.
func deviceAnomalyRatio(deviceVotes int, allCounts map[string]int) float64 {
	avg := 1.0
	if len(allCounts) > 0 {
		sum := 0
		for _, c := range allCounts {
			sum += c
		}
		avg = float64(sum) / float64(len(allCounts))
	}
	if avg == 0 {
		avg = 1.0
	}
	return float64(deviceVotes) / avg
}
