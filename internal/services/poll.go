package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/repository"
)

// maxOptionTextLen bounds option text after trimming
const maxOptionTextLen = 500

// PollServiceRepository defines the repository methods needed by PollService
type PollServiceRepository interface {
	repository.PollRepository
	repository.OptionRepository
	InsertAdminLog(ctx context.Context, entry *models.AdminLog) error
}

// PollService handles poll and option business logic
type PollService struct {
	log         logger.Logger
	repo        PollServiceRepository
	baseURL     string
	broadcaster Broadcaster
}

// NewPollService creates a new PollService. baseURL is the public origin used
// to build shareable poll links, e.g. "https://vote.example.com".
func NewPollService(log logger.Logger, repo PollServiceRepository, baseURL string) *PollService {
	return &PollService{
		log:     log,
		repo:    repo,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// SetBroadcaster sets the broadcaster for pushing poll lifecycle updates
func (s *PollService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// PollInput carries the fields for creating a poll
type PollInput struct {
	Title           string          `json:"title"`
	Question        string          `json:"question"`
	Type            models.PollType `json:"type"`
	MultipleAnswers bool            `json:"multiple_answers"`
	ShowResults     bool            `json:"show_results"`
	OrganizerID     string          `json:"organizer_id"`
	Options         []string        `json:"options"`
}

// PollUpdate carries the editable poll fields. Type and status are fixed.
type PollUpdate struct {
	Title       string `json:"title"`
	Question    string `json:"question"`
	ShowResults *bool  `json:"show_results"`
}

// CreatePoll validates and stores a new poll. Any initial option texts are
// stored in submission order starting at order 0.
func (s *PollService) CreatePoll(ctx context.Context, input PollInput) (*models.Poll, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrEmptyTitle
	}
	if strings.TrimSpace(input.Question) == "" {
		return nil, ErrEmptyQuestion
	}
	if !input.Type.Valid() {
		return nil, &InvalidPollTypeError{Type: string(input.Type)}
	}

	poll := &models.Poll{
		Title:           strings.TrimSpace(input.Title),
		Question:        strings.TrimSpace(input.Question),
		Type:            input.Type,
		Status:          models.PollStatusActive,
		MultipleAnswers: input.MultipleAnswers,
		ShowResults:     input.ShowResults,
		OrganizerID:     input.OrganizerID,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.CreatePoll(ctx, poll); err != nil {
		return nil, err
	}

	for i, text := range input.Options {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || len(trimmed) > maxOptionTextLen {
			continue
		}
		opt := &models.PollOption{PollID: poll.ID, Text: trimmed, OrderNum: i}
		if err := s.repo.CreateOption(ctx, opt); err != nil {
			return nil, err
		}
		poll.Options = append(poll.Options, *opt)
	}

	s.log.Info("poll created", "poll_id", poll.ID, "type", string(poll.Type), "options", len(poll.Options))
	if s.broadcaster != nil {
		s.broadcaster.BroadcastNewPoll(poll)
	}
	return poll, nil
}

// GetPoll retrieves a poll with its options
func (s *PollService) GetPoll(ctx context.Context, id string) (*models.Poll, error) {
	poll, err := s.repo.GetPoll(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrPollNotFound
	}
	return poll, err
}

// ListPolls returns all polls
func (s *PollService) ListPolls(ctx context.Context) ([]models.Poll, error) {
	return s.repo.ListPolls(ctx)
}

// ListPollsByStatus returns polls in a given lifecycle state
func (s *PollService) ListPollsByStatus(ctx context.Context, status models.PollStatus) ([]models.Poll, error) {
	return s.repo.ListPollsByStatus(ctx, status)
}

// UpdatePoll edits a poll's title, question and result visibility. Empty
// input fields leave the current value in place.
func (s *PollService) UpdatePoll(ctx context.Context, id string, input PollUpdate) (*models.Poll, error) {
	poll, err := s.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}

	if t := strings.TrimSpace(input.Title); t != "" {
		poll.Title = t
	}
	if q := strings.TrimSpace(input.Question); q != "" {
		poll.Question = q
	}
	if input.ShowResults != nil {
		poll.ShowResults = *input.ShowResults
	}

	if err := s.repo.UpdatePoll(ctx, poll); err != nil {
		return nil, err
	}
	return poll, nil
}

// ClosePoll moves an ACTIVE poll to CLOSED and records the acting admin
func (s *PollService) ClosePoll(ctx context.Context, id, adminID string) (*models.Poll, error) {
	poll, err := s.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if poll.Status != models.PollStatusActive {
		return nil, ErrBadStatusChange
	}

	now := time.Now()
	if err := s.repo.SetPollStatus(ctx, id, models.PollStatusClosed, &now, adminID); err != nil {
		return nil, err
	}
	poll.Status = models.PollStatusClosed
	poll.ClosedAt = &now

	recordAdminAction(ctx, s.log, s.repo, adminID, ActionClosePoll, "poll", id, "")
	s.log.Info("poll closed", "poll_id", id, "admin_id", adminID)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastPollStatus(id, models.PollStatusClosed)
	}
	return poll, nil
}

// ArchivePoll moves a poll to ARCHIVED. Archiving is forward-only; an
// archived poll stays archived.
func (s *PollService) ArchivePoll(ctx context.Context, id, adminID string) (*models.Poll, error) {
	poll, err := s.GetPoll(ctx, id)
	if err != nil {
		return nil, err
	}
	if poll.Status == models.PollStatusArchived {
		return nil, ErrBadStatusChange
	}

	var closedAt *time.Time
	if poll.ClosedAt == nil {
		now := time.Now()
		closedAt = &now
	}
	if err := s.repo.SetPollStatus(ctx, id, models.PollStatusArchived, closedAt, adminID); err != nil {
		return nil, err
	}
	poll.Status = models.PollStatusArchived
	if closedAt != nil {
		poll.ClosedAt = closedAt
	}

	recordAdminAction(ctx, s.log, s.repo, adminID, ActionArchivePoll, "poll", id, "")
	s.log.Info("poll archived", "poll_id", id, "admin_id", adminID)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastPollStatus(id, models.PollStatusArchived)
	}
	return poll, nil
}

// DeletePoll removes a poll together with its options and votes, recording
// the acting admin.
func (s *PollService) DeletePoll(ctx context.Context, id, adminID string) error {
	err := s.repo.DeletePoll(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return ErrPollNotFound
	}
	if err != nil {
		return err
	}

	recordAdminAction(ctx, s.log, s.repo, adminID, ActionDeletePoll, "poll", id, "")
	s.log.Info("poll deleted", "poll_id", id, "admin_id", adminID)
	return nil
}

func validateOptionText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyOptionText
	}
	if len(trimmed) > maxOptionTextLen {
		return "", ErrOptionTextTooLong
	}
	return trimmed, nil
}

// AddOption appends an option to a poll, assigning the next order number
// (max existing + 1, or 0 for the first option).
func (s *PollService) AddOption(ctx context.Context, pollID, text string) (*models.PollOption, error) {
	trimmed, err := validateOptionText(text)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}

	max, any, err := s.repo.MaxOptionOrder(ctx, pollID)
	if err != nil {
		return nil, err
	}
	orderNum := 0
	if any {
		orderNum = max + 1
	}

	opt := &models.PollOption{PollID: pollID, Text: trimmed, OrderNum: orderNum}
	if err := s.repo.CreateOption(ctx, opt); err != nil {
		if stderrors.Is(err, repository.ErrDuplicateOrder) {
			return nil, ErrOrderTaken
		}
		return nil, err
	}
	return opt, nil
}

// AddOptionWithOrder inserts an option at an explicit order number, rejecting
// negative or already-taken positions.
func (s *PollService) AddOptionWithOrder(ctx context.Context, pollID, text string, orderNum int) (*models.PollOption, error) {
	trimmed, err := validateOptionText(text)
	if err != nil {
		return nil, err
	}
	if orderNum < 0 {
		return nil, ErrNegativeOrder
	}
	if _, err := s.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}

	taken, err := s.repo.OptionOrderExists(ctx, pollID, orderNum)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrOrderTaken
	}

	opt := &models.PollOption{PollID: pollID, Text: trimmed, OrderNum: orderNum}
	if err := s.repo.CreateOption(ctx, opt); err != nil {
		if stderrors.Is(err, repository.ErrDuplicateOrder) {
			return nil, ErrOrderTaken
		}
		return nil, err
	}
	return opt, nil
}

// DeleteOption removes an option; votes referencing it cascade away. Callers
// wanting contiguous ordering afterwards call ResequenceOptions.
func (s *PollService) DeleteOption(ctx context.Context, optionID string) error {
	err := s.repo.DeleteOption(ctx, optionID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return ErrOptionNotFound
	}
	return err
}

// ResequenceOptions reassigns a poll's option order numbers to 0..N-1 in
// current display order. Orders are first moved out of the way so the
// per-poll uniqueness constraint cannot trip mid-pass.
func (s *PollService) ResequenceOptions(ctx context.Context, pollID string) ([]models.PollOption, error) {
	if _, err := s.GetPoll(ctx, pollID); err != nil {
		return nil, err
	}

	options, err := s.repo.ListOptions(ctx, pollID)
	if err != nil {
		return nil, err
	}

	for i := range options {
		if err := s.repo.UpdateOptionOrder(ctx, options[i].ID, -(i + 1)); err != nil {
			return nil, err
		}
	}
	for i := range options {
		if err := s.repo.UpdateOptionOrder(ctx, options[i].ID, i); err != nil {
			return nil, err
		}
		options[i].OrderNum = i
	}
	return options, nil
}

// PollLink builds the shareable voting URL for a poll
func (s *PollService) PollLink(pollID string) string {
	return fmt.Sprintf("%s/poll/%s", s.baseURL, pollID)
}

// PollQR renders the poll's voting URL as a PNG QR code
func (s *PollService) PollQR(pollID string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(s.PollLink(pollID), qrcode.Medium, size)
}
