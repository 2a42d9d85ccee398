package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/repository"
	"github.com/pollwave/pollwave/internal/services"
	"github.com/pollwave/pollwave/internal/testutil"
)

func setupVotingService(t *testing.T) (*services.VotingService, *repository.Repository) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	log := logger.New()
	return services.NewVotingService(log, repo, services.NewStatsService(log, repo)), repo
}

func TestRegisterVote(t *testing.T) {
	svc, repo := setupVotingService(t)
	poll := testutil.SeedPoll(t, repo, models.PollTypeSingle, "A", "B")
	fp := testutil.SeedFingerprint(t, repo, "hash-1")

	vote, err := svc.RegisterVote(context.Background(), services.VoteInput{
		PollID:        poll.ID,
		OptionID:      &poll.Options[0].ID,
		FingerprintID: fp.ID,
	})
	if err != nil {
		t.Fatalf("RegisterVote failed: %v", err)
	}
	if vote.ID == "" {
		t.Error("expected vote to get an ID")
	}

	voted, err := svc.HasVoted(context.Background(), poll.ID, fp.ID)
	if err != nil {
		t.Fatalf("HasVoted failed: %v", err)
	}
	if !voted {
		t.Error("HasVoted should be true after registering")
	}
}

func TestRegisterVote_DuplicateRejected(t *testing.T) {
	svc, repo := setupVotingService(t)
	poll := testutil.SeedPoll(t, repo, models.PollTypeSingle, "A", "B")
	fp := testutil.SeedFingerprint(t, repo, "hash-1")

	input := services.VoteInput{PollID: poll.ID, OptionID: &poll.Options[0].ID, FingerprintID: fp.ID}
	if _, err := svc.RegisterVote(context.Background(), input); err != nil {
		t.Fatalf("first RegisterVote failed: %v", err)
	}

	// Second attempt, even for a different option, is rejected
	input.OptionID = &poll.Options[1].ID
	if _, err := svc.RegisterVote(context.Background(), input); err != services.ErrAlreadyVoted {
		t.Errorf("expected ErrAlreadyVoted, got %v", err)
	}

	count, err := repo.CountVotesForPoll(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("CountVotesForPoll failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected exactly one persisted vote, got %d", count)
	}
}

func TestRegisterVote_BlockedDevice(t *testing.T) {
	svc, repo := setupVotingService(t)
	poll := testutil.SeedPoll(t, repo, models.PollTypeSingle, "A")
	fp := testutil.SeedFingerprint(t, repo, "hash-1")

	now := time.Now()
	if err := repo.SetFingerprintBlock(context.Background(), fp.ID, true, "abuse", "admin-1", &now); err != nil {
		t.Fatalf("SetFingerprintBlock failed: %v", err)
	}

	_, err := svc.RegisterVote(context.Background(), services.VoteInput{
		PollID:        poll.ID,
		OptionID:      &poll.Options[0].ID,
		FingerprintID: fp.ID,
	})
	if err != services.ErrDeviceBlocked {
		t.Errorf("expected ErrDeviceBlocked, got %v", err)
	}
}

func TestRegisterVote_UnknownDevice(t *testing.T) {
	svc, repo := setupVotingService(t)
	poll := testutil.SeedPoll(t, repo, models.PollTypeSingle, "A")

	_, err := svc.RegisterVote(context.Background(), services.VoteInput{
		PollID:        poll.ID,
		OptionID:      &poll.Options[0].ID,
		FingerprintID: "never-seen",
	})
	if err != services.ErrDeviceBlocked {
		t.Errorf("expected ErrDeviceBlocked for unknown device, got %v", err)
	}
}

func TestRegisterVote_MissingPoll(t *testing.T) {
	svc, repo := setupVotingService(t)
	fp := testutil.SeedFingerprint(t, repo, "hash-1")
	opt := "opt-1"

	_, err := svc.RegisterVote(context.Background(), services.VoteInput{
		PollID:        "missing",
		OptionID:      &opt,
		FingerprintID: fp.ID,
	})
	if err != services.ErrPollNotFound {
		t.Errorf("expected ErrPollNotFound, got %v", err)
	}
}

func TestRegisterVote_ClosedPoll(t *testing.T) {
	svc, repo := setupVotingService(t)
	poll := testutil.SeedPoll(t, repo, models.PollTypeSingle, "A")
	fp := testutil.SeedFingerprint(t, repo, "hash-1")

	if err := repo.SetPollStatus(context.Background(), poll.ID, models.PollStatusClosed, nil, ""); err != nil {
		t.Fatalf("SetPollStatus failed: %v", err)
	}

	_, err := svc.RegisterVote(context.Background(), services.VoteInput{
		PollID:        poll.ID,
		OptionID:      &poll.Options[0].ID,
		FingerprintID: fp.ID,
	})
	if err != services.ErrPollNotActive {
		t.Errorf("expected ErrPollNotActive, got %v", err)
	}
}

func TestRegisterVote_OpenPollFreeText(t *testing.T) {
	svc, repo := setupVotingService(t)
	poll := testutil.SeedPoll(t, repo, models.PollTypeOpen)
	fp := testutil.SeedFingerprint(t, repo, "hash-1")

	vote, err := svc.RegisterVote(context.Background(), services.VoteInput{
		PollID:        poll.ID,
		FingerprintID: fp.ID,
		TextAnswer:    "  tacos  ",
	})
	if err != nil {
		t.Fatalf("RegisterVote failed: %v", err)
	}
	if vote.OptionID != nil || vote.TextAnswer != "tacos" {
		t.Errorf("unexpected open vote: %+v", vote)
	}

	// Neither option nor text is an empty ballot
	fp2 := testutil.SeedFingerprint(t, repo, "hash-2")
	_, err = svc.RegisterVote(context.Background(), services.VoteInput{PollID: poll.ID, FingerprintID: fp2.ID})
	if err != services.ErrOptionlessVote {
		t.Errorf("expected ErrOptionlessVote, got %v", err)
	}
}

func TestRegisterVote_OptionFromAnotherPoll(t *testing.T) {
	svc, repo := setupVotingService(t)
	poll := testutil.SeedPoll(t, repo, models.PollTypeSingle, "A")
	other := testutil.SeedPoll(t, repo, models.PollTypeSingle, "X")
	fp := testutil.SeedFingerprint(t, repo, "hash-1")

	_, err := svc.RegisterVote(context.Background(), services.VoteInput{
		PollID:        poll.ID,
		OptionID:      &other.Options[0].ID,
		FingerprintID: fp.ID,
	})
	if err != services.ErrOptionNotFound {
		t.Errorf("expected ErrOptionNotFound, got %v", err)
	}
}

func TestDeleteVote_RecordsAdminAction(t *testing.T) {
	svc, repo := setupVotingService(t)
	poll := testutil.SeedPoll(t, repo, models.PollTypeSingle, "A")
	fp := testutil.SeedFingerprint(t, repo, "hash-1")

	vote, err := svc.RegisterVote(context.Background(), services.VoteInput{
		PollID:        poll.ID,
		OptionID:      &poll.Options[0].ID,
		FingerprintID: fp.ID,
	})
	if err != nil {
		t.Fatalf("RegisterVote failed: %v", err)
	}

	if err := svc.DeleteVote(context.Background(), vote.ID, "admin-1"); err != nil {
		t.Fatalf("DeleteVote failed: %v", err)
	}

	voted, _ := svc.HasVoted(context.Background(), poll.ID, fp.ID)
	if voted {
		t.Error("vote should be gone after delete")
	}

	logs, err := repo.ListAdminLogs(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListAdminLogs failed: %v", err)
	}
	if len(logs) != 1 || logs[0].Action != "DELETE_VOTE" || logs[0].TargetID != vote.ID {
		t.Errorf("unexpected admin log entries: %+v", logs)
	}

	if err := svc.DeleteVote(context.Background(), vote.ID, "admin-1"); err != services.ErrVoteNotFound {
		t.Errorf("expected ErrVoteNotFound, got %v", err)
	}
}

func TestDeviceAnomalyScore(t *testing.T) {
	svc, repo := setupVotingService(t)
	busy := testutil.SeedFingerprint(t, repo, "busy")
	quiet := testutil.SeedFingerprint(t, repo, "quiet")

	// 8 votes from the busy device, 0 from the quiet one: average is 4
	for i := 0; i < 8; i++ {
		poll := testutil.SeedPoll(t, repo, models.PollTypeSingle, "A")
		_, err := svc.RegisterVote(context.Background(), services.VoteInput{
			PollID:        poll.ID,
			OptionID:      &poll.Options[0].ID,
			FingerprintID: busy.ID,
		})
		if err != nil {
			t.Fatalf("RegisterVote failed: %v", err)
		}
	}

	score, err := svc.DeviceAnomalyScore(context.Background(), busy.ID)
	if err != nil {
		t.Fatalf("DeviceAnomalyScore failed: %v", err)
	}
	if score != 2.0 {
		t.Errorf("expected score 2.0, got %v", score)
	}

	anomalous, err := svc.IsAnomalousDevice(context.Background(), busy.ID)
	if err != nil {
		t.Fatalf("IsAnomalousDevice failed: %v", err)
	}
	if anomalous {
		t.Error("score 2.0 should not cross the threshold")
	}

	quietScore, err := svc.DeviceAnomalyScore(context.Background(), quiet.ID)
	if err != nil {
		t.Fatalf("DeviceAnomalyScore failed: %v", err)
	}
	if quietScore != 0.0 {
		t.Errorf("expected score 0.0 for a device with no votes, got %v", quietScore)
	}
}

func TestDeviceAnomalyScore_NoDevices(t *testing.T) {
	svc, _ := setupVotingService(t)

	score, err := svc.DeviceAnomalyScore(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("DeviceAnomalyScore failed: %v", err)
	}
	if score != 0.0 {
		t.Errorf("expected 0.0 with no devices on record, got %v", score)
	}
}

func TestBlockingKeepsExistingVotes(t *testing.T) {
	svc, repo := setupVotingService(t)
	poll := testutil.SeedPoll(t, repo, models.PollTypeSingle, "A")
	fp := testutil.SeedFingerprint(t, repo, "hash-1")

	if _, err := svc.RegisterVote(context.Background(), services.VoteInput{
		PollID:        poll.ID,
		OptionID:      &poll.Options[0].ID,
		FingerprintID: fp.ID,
	}); err != nil {
		t.Fatalf("RegisterVote failed: %v", err)
	}

	now := time.Now()
	if err := repo.SetFingerprintBlock(context.Background(), fp.ID, true, "abuse", "admin-1", &now); err != nil {
		t.Fatalf("SetFingerprintBlock failed: %v", err)
	}

	count, err := repo.CountVotesForPoll(context.Background(), poll.ID)
	if err != nil {
		t.Fatalf("CountVotesForPoll failed: %v", err)
	}
	if count != 1 {
		t.Errorf("blocking must not remove existing votes, got count %d", count)
	}
}
