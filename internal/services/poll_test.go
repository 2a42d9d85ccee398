package services_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/repository"
	"github.com/pollwave/pollwave/internal/services"
	"github.com/pollwave/pollwave/internal/testutil"
)

func setupPollService(t *testing.T) (*services.PollService, *repository.Repository) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	return services.NewPollService(logger.New(), repo, "http://vote.example.com"), repo
}

func TestCreatePoll_Valid(t *testing.T) {
	svc, _ := setupPollService(t)

	poll, err := svc.CreatePoll(context.Background(), services.PollInput{
		Title:       "Lunch",
		Question:    "Where should we eat?",
		Type:        models.PollTypeSingle,
		ShowResults: true,
		Options:     []string{"Pizza", "Sushi"},
	})
	if err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}
	if poll.Status != models.PollStatusActive {
		t.Errorf("expected ACTIVE, got %s", poll.Status)
	}
	if len(poll.Options) != 2 || poll.Options[0].OrderNum != 0 || poll.Options[1].OrderNum != 1 {
		t.Errorf("unexpected options: %+v", poll.Options)
	}
}

func TestCreatePoll_Validation(t *testing.T) {
	svc, _ := setupPollService(t)
	ctx := context.Background()

	if _, err := svc.CreatePoll(ctx, services.PollInput{Title: "  ", Question: "Q", Type: models.PollTypeSingle}); err != services.ErrEmptyTitle {
		t.Errorf("expected ErrEmptyTitle, got %v", err)
	}
	if _, err := svc.CreatePoll(ctx, services.PollInput{Title: "T", Question: "", Type: models.PollTypeSingle}); err != services.ErrEmptyQuestion {
		t.Errorf("expected ErrEmptyQuestion, got %v", err)
	}
	_, err := svc.CreatePoll(ctx, services.PollInput{Title: "T", Question: "Q", Type: "RANKED"})
	if _, ok := err.(*services.InvalidPollTypeError); !ok {
		t.Errorf("expected InvalidPollTypeError, got %v", err)
	}
}

func TestAddOption_AssignsNextOrder(t *testing.T) {
	svc, _ := setupPollService(t)
	ctx := context.Background()

	poll, _ := svc.CreatePoll(ctx, services.PollInput{Title: "T", Question: "Q", Type: models.PollTypeSingle})

	first, err := svc.AddOption(ctx, poll.ID, "Alpha")
	if err != nil {
		t.Fatalf("AddOption failed: %v", err)
	}
	if first.OrderNum != 0 {
		t.Errorf("first option should get order 0, got %d", first.OrderNum)
	}

	second, err := svc.AddOption(ctx, poll.ID, "Beta")
	if err != nil {
		t.Fatalf("AddOption failed: %v", err)
	}
	if second.OrderNum != 1 {
		t.Errorf("second option should get order 1, got %d", second.OrderNum)
	}
}

func TestAddOption_TextValidation(t *testing.T) {
	svc, _ := setupPollService(t)
	ctx := context.Background()
	poll, _ := svc.CreatePoll(ctx, services.PollInput{Title: "T", Question: "Q", Type: models.PollTypeSingle})

	if _, err := svc.AddOption(ctx, poll.ID, "   "); err != services.ErrEmptyOptionText {
		t.Errorf("expected ErrEmptyOptionText, got %v", err)
	}
	if _, err := svc.AddOption(ctx, poll.ID, strings.Repeat("x", 501)); err != services.ErrOptionTextTooLong {
		t.Errorf("expected ErrOptionTextTooLong, got %v", err)
	}
	if _, err := svc.AddOption(ctx, "missing", "Fine"); err != services.ErrPollNotFound {
		t.Errorf("expected ErrPollNotFound, got %v", err)
	}
}

func TestAddOptionWithOrder(t *testing.T) {
	svc, _ := setupPollService(t)
	ctx := context.Background()
	poll, _ := svc.CreatePoll(ctx, services.PollInput{Title: "T", Question: "Q", Type: models.PollTypeSingle, Options: []string{"A"}})

	opt, err := svc.AddOptionWithOrder(ctx, poll.ID, "Late entry", 5)
	if err != nil {
		t.Fatalf("AddOptionWithOrder failed: %v", err)
	}
	if opt.OrderNum != 5 {
		t.Errorf("expected order 5, got %d", opt.OrderNum)
	}

	if _, err := svc.AddOptionWithOrder(ctx, poll.ID, "Clash", 0); err != services.ErrOrderTaken {
		t.Errorf("expected ErrOrderTaken for duplicate order, got %v", err)
	}
	if _, err := svc.AddOptionWithOrder(ctx, poll.ID, "Bad", -1); err != services.ErrNegativeOrder {
		t.Errorf("expected ErrNegativeOrder, got %v", err)
	}
}

func TestResequenceOptions(t *testing.T) {
	svc, _ := setupPollService(t)
	ctx := context.Background()
	poll, _ := svc.CreatePoll(ctx, services.PollInput{Title: "T", Question: "Q", Type: models.PollTypeSingle, Options: []string{"A", "B", "C"}})

	// Delete the middle option, leaving a gap at order 1
	if err := svc.DeleteOption(ctx, poll.Options[1].ID); err != nil {
		t.Fatalf("DeleteOption failed: %v", err)
	}

	options, err := svc.ResequenceOptions(ctx, poll.ID)
	if err != nil {
		t.Fatalf("ResequenceOptions failed: %v", err)
	}
	if len(options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(options))
	}
	for i, opt := range options {
		if opt.OrderNum != i {
			t.Errorf("option %d has order %d after resequence", i, opt.OrderNum)
		}
	}
	if options[0].Text != "A" || options[1].Text != "C" {
		t.Errorf("resequence changed relative order: %+v", options)
	}
}

func TestClosePoll_ForwardOnly(t *testing.T) {
	svc, _ := setupPollService(t)
	ctx := context.Background()
	poll, _ := svc.CreatePoll(ctx, services.PollInput{Title: "T", Question: "Q", Type: models.PollTypeSingle})

	closed, err := svc.ClosePoll(ctx, poll.ID, "admin-1")
	if err != nil {
		t.Fatalf("ClosePoll failed: %v", err)
	}
	if closed.Status != models.PollStatusClosed || closed.ClosedAt == nil {
		t.Errorf("unexpected close result: %+v", closed)
	}

	// No resurrection, no double close
	if _, err := svc.ClosePoll(ctx, poll.ID, "admin-1"); err != services.ErrBadStatusChange {
		t.Errorf("expected ErrBadStatusChange on second close, got %v", err)
	}

	archived, err := svc.ArchivePoll(ctx, poll.ID, "admin-1")
	if err != nil {
		t.Fatalf("ArchivePoll failed: %v", err)
	}
	if archived.Status != models.PollStatusArchived {
		t.Errorf("expected ARCHIVED, got %s", archived.Status)
	}
	if _, err := svc.ArchivePoll(ctx, poll.ID, "admin-1"); err != services.ErrBadStatusChange {
		t.Errorf("expected ErrBadStatusChange on re-archive, got %v", err)
	}
}

func TestPollLifecycle_RecordsAdminActions(t *testing.T) {
	svc, repo := setupPollService(t)
	ctx := context.Background()
	poll, _ := svc.CreatePoll(ctx, services.PollInput{Title: "T", Question: "Q", Type: models.PollTypeSingle})

	if _, err := svc.ClosePoll(ctx, poll.ID, "admin-1"); err != nil {
		t.Fatalf("ClosePoll failed: %v", err)
	}
	if _, err := svc.ArchivePoll(ctx, poll.ID, "admin-1"); err != nil {
		t.Fatalf("ArchivePoll failed: %v", err)
	}
	if err := svc.DeletePoll(ctx, poll.ID, "admin-1"); err != nil {
		t.Fatalf("DeletePoll failed: %v", err)
	}

	logs, err := repo.ListAdminLogs(ctx, 10)
	if err != nil {
		t.Fatalf("ListAdminLogs failed: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("expected 3 audit records, got %d", len(logs))
	}
	actions := map[string]bool{}
	for _, entry := range logs {
		actions[entry.Action] = true
		if entry.TargetType != "poll" || entry.TargetID != poll.ID {
			t.Errorf("unexpected audit record: %+v", entry)
		}
	}
	for _, want := range []string{services.ActionClosePoll, services.ActionArchivePoll, services.ActionDeletePoll} {
		if !actions[want] {
			t.Errorf("missing audit action %s, got %v", want, actions)
		}
	}
}

func TestDeletePoll_Missing(t *testing.T) {
	svc, _ := setupPollService(t)

	if err := svc.DeletePoll(context.Background(), "missing", "admin-1"); err != services.ErrPollNotFound {
		t.Errorf("expected ErrPollNotFound, got %v", err)
	}
}

func TestArchivePoll_DirectFromActive(t *testing.T) {
	svc, _ := setupPollService(t)
	ctx := context.Background()
	poll, _ := svc.CreatePoll(ctx, services.PollInput{Title: "T", Question: "Q", Type: models.PollTypeSingle})

	archived, err := svc.ArchivePoll(ctx, poll.ID, "admin-1")
	if err != nil {
		t.Fatalf("ArchivePoll failed: %v", err)
	}
	if archived.Status != models.PollStatusArchived || archived.ClosedAt == nil {
		t.Errorf("archiving an active poll should also stamp closed_at: %+v", archived)
	}
}

func TestUpdatePoll_PartialFields(t *testing.T) {
	svc, _ := setupPollService(t)
	ctx := context.Background()
	poll, _ := svc.CreatePoll(ctx, services.PollInput{Title: "Old", Question: "Old Q", Type: models.PollTypeSingle, ShowResults: true})

	hide := false
	updated, err := svc.UpdatePoll(ctx, poll.ID, services.PollUpdate{Title: "New", ShowResults: &hide})
	if err != nil {
		t.Fatalf("UpdatePoll failed: %v", err)
	}
	if updated.Title != "New" || updated.Question != "Old Q" || updated.ShowResults {
		t.Errorf("unexpected update result: %+v", updated)
	}
}

func TestPollLinkAndQR(t *testing.T) {
	svc, _ := setupPollService(t)

	link := svc.PollLink("abc-123")
	if link != "http://vote.example.com/poll/abc-123" {
		t.Errorf("unexpected link: %s", link)
	}

	png, err := svc.PollQR("abc-123", 128)
	if err != nil {
		t.Fatalf("PollQR failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected PNG output")
	}
}
