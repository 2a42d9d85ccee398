package services_test

import (
	"context"
	"testing"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/repository"
	"github.com/pollwave/pollwave/internal/services"
	"github.com/pollwave/pollwave/internal/testutil"
)

func setupFingerprintService(t *testing.T) (*services.FingerprintService, *repository.Repository) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	return services.NewFingerprintService(logger.New(), repo), repo
}

func TestIdentify_MintsNewFingerprint(t *testing.T) {
	svc, _ := setupFingerprintService(t)
	ctx := context.Background()

	fp, err := svc.Identify(ctx, "203.0.113.9", "Mozilla/5.0", "")
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if fp.ID == "" || len(fp.Hash) != 64 {
		t.Errorf("expected generated id and 64-char hex hash, got id=%q hash=%q", fp.ID, fp.Hash)
	}
	if fp.Blocked {
		t.Error("new fingerprint should not be blocked")
	}
}

func TestIdentify_SameSignalsProduceDistinctIdentities(t *testing.T) {
	svc, _ := setupFingerprintService(t)
	ctx := context.Background()

	first, err := svc.Identify(ctx, "203.0.113.9", "Mozilla/5.0", "")
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	second, err := svc.Identify(ctx, "203.0.113.9", "Mozilla/5.0", "")
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if first.Hash == second.Hash {
		t.Error("expected distinct hashes for repeated identification without a known hash")
	}
}

func TestIdentify_KnownHashReturnsExisting(t *testing.T) {
	svc, _ := setupFingerprintService(t)
	ctx := context.Background()

	first, err := svc.Identify(ctx, "203.0.113.9", "Mozilla/5.0", "")
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}

	again, err := svc.Identify(ctx, "198.51.100.1", "Other/1.0", first.Hash)
	if err != nil {
		t.Fatalf("Identify with known hash failed: %v", err)
	}
	if again.ID != first.ID {
		t.Errorf("expected same identity, got %s and %s", first.ID, again.ID)
	}
	if again.Hash != first.Hash {
		t.Error("hash must never be recomputed for an existing identity")
	}
	if !again.LastSeen.After(first.LastSeen) && !again.LastSeen.Equal(first.LastSeen) {
		t.Error("expected last_seen refreshed")
	}
}

func TestIdentify_UnknownHashMintsNew(t *testing.T) {
	svc, _ := setupFingerprintService(t)
	ctx := context.Background()

	fp, err := svc.Identify(ctx, "203.0.113.9", "Mozilla/5.0", "deadbeef")
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}
	if fp.Hash == "deadbeef" {
		t.Error("unknown hash must not be adopted as the identity")
	}
}

func TestBlockUnblock(t *testing.T) {
	svc, _ := setupFingerprintService(t)
	ctx := context.Background()

	fp, _ := svc.Identify(ctx, "203.0.113.9", "Mozilla/5.0", "")

	if err := svc.Block(ctx, fp.ID, "ballot stuffing", "admin-1"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	blocked, err := svc.ListBlocked(ctx)
	if err != nil {
		t.Fatalf("ListBlocked failed: %v", err)
	}
	if len(blocked) != 1 || blocked[0].BlockReason != "ballot stuffing" {
		t.Errorf("unexpected blocked list: %+v", blocked)
	}

	// Re-blocking overwrites the reason
	if err := svc.Block(ctx, fp.ID, "still at it", "admin-2"); err != nil {
		t.Fatalf("re-Block failed: %v", err)
	}
	got, _ := svc.GetFingerprint(ctx, fp.ID)
	if got.BlockReason != "still at it" || got.BlockedBy != "admin-2" {
		t.Errorf("re-block did not overwrite: %+v", got)
	}

	if err := svc.Unblock(ctx, fp.ID, "admin-1"); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}
	got, _ = svc.GetFingerprint(ctx, fp.ID)
	if got.Blocked {
		t.Error("expected unblocked")
	}
}

func TestBlockUnblock_RecordsAdminActions(t *testing.T) {
	svc, repo := setupFingerprintService(t)
	ctx := context.Background()

	fp, _ := svc.Identify(ctx, "203.0.113.9", "Mozilla/5.0", "")

	if err := svc.Block(ctx, fp.ID, "ballot stuffing", "admin-1"); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if err := svc.Unblock(ctx, fp.ID, "admin-1"); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}

	logs, err := repo.ListAdminLogs(ctx, 10)
	if err != nil {
		t.Fatalf("ListAdminLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 audit records, got %d", len(logs))
	}
	actions := map[string]bool{}
	for _, entry := range logs {
		actions[entry.Action] = true
		if entry.TargetID != fp.ID || entry.AdminID != "admin-1" {
			t.Errorf("unexpected audit record: %+v", entry)
		}
	}
	if !actions[services.ActionBlockDevice] || !actions[services.ActionUnblockDevice] {
		t.Errorf("expected block and unblock actions, got %v", actions)
	}
}

func TestBlock_MissingDevice(t *testing.T) {
	svc, _ := setupFingerprintService(t)

	err := svc.Block(context.Background(), "missing", "r", "a")
	if err != services.ErrDeviceNotFound {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestDeviceStatistics(t *testing.T) {
	svc, _ := setupFingerprintService(t)
	ctx := context.Background()

	fp, _ := svc.Identify(ctx, "203.0.113.9", "Mozilla/5.0", "")

	stats, err := svc.DeviceStatistics(ctx, fp.ID)
	if err != nil {
		t.Fatalf("DeviceStatistics failed: %v", err)
	}
	if stats.TotalVotes != 0 {
		t.Errorf("expected 0 votes, got %d", stats.TotalVotes)
	}
	if stats.Anomalous {
		t.Error("device with no votes should not be anomalous")
	}
}
