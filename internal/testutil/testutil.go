package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// SeedFingerprint inserts a fingerprint with a unique hash
func SeedFingerprint(t *testing.T, repo *repository.Repository, hash string) *models.DeviceFingerprint {
	t.Helper()

	now := time.Now()
	fp := &models.DeviceFingerprint{
		Hash:      hash,
		IP:        "192.0.2.1",
		UserAgent: "test-agent",
		FirstSeen: now,
		LastSeen:  now,
	}
	if err := repo.CreateFingerprint(context.Background(), fp); err != nil {
		t.Fatalf("failed to seed fingerprint: %v", err)
	}
	return fp
}

// SeedPoll inserts an ACTIVE poll with the given option texts
func SeedPoll(t *testing.T, repo *repository.Repository, pollType models.PollType, options ...string) *models.Poll {
	t.Helper()

	poll := &models.Poll{
		Title:       "Test Poll",
		Question:    "What do you think?",
		Type:        pollType,
		Status:      models.PollStatusActive,
		ShowResults: true,
		CreatedAt:   time.Now(),
	}
	if err := repo.CreatePoll(context.Background(), poll); err != nil {
		t.Fatalf("failed to seed poll: %v", err)
	}
	for i, text := range options {
		opt := &models.PollOption{PollID: poll.ID, Text: text, OrderNum: i}
		if err := repo.CreateOption(context.Background(), opt); err != nil {
			t.Fatalf("failed to seed option: %v", err)
		}
		poll.Options = append(poll.Options, *opt)
	}
	return poll
}

// SeedIotDevice inserts a kiosk device
func SeedIotDevice(t *testing.T, repo *repository.Repository, kioskID string) *models.IotDevice {
	t.Helper()

	device := &models.IotDevice{
		KioskID:    kioskID,
		Location:   "Lobby",
		DeviceType: "KIOSK",
		Active:     true,
		CreatedAt:  time.Now(),
	}
	if err := repo.CreateIotDevice(context.Background(), device); err != nil {
		t.Fatalf("failed to seed iot device: %v", err)
	}
	return device
}
