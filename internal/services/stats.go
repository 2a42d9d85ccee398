package services

import (
	"context"
	stderrors "errors"
	"math"
	"sort"
	"time"

	"github.com/pollwave/pollwave/internal/logger"
	"github.com/pollwave/pollwave/internal/models"
	"github.com/pollwave/pollwave/internal/repository"
)

// StatsServiceRepository defines the repository methods needed by StatsService
type StatsServiceRepository interface {
	GetPoll(ctx context.Context, id string) (*models.Poll, error)
	ListVotesForPoll(ctx context.Context, pollID string) ([]models.Vote, error)
	CountVotesForPoll(ctx context.Context, pollID string) (int, error)
	ListPollsByStatus(ctx context.Context, status models.PollStatus) ([]models.Poll, error)
}

// StatsService aggregates the vote ledger into poll-level results
type StatsService struct {
	log  logger.Logger
	repo StatsServiceRepository
}

// NewStatsService creates a new StatsService
func NewStatsService(log logger.Logger, repo StatsServiceRepository) *StatsService {
	return &StatsService{log: log, repo: repo}
}

// OptionResult is the per-option slice of a poll's statistics
type OptionResult struct {
	OptionID   string  `json:"option_id"`
	Text       string  `json:"text"`
	OrderNum   int     `json:"order_num"`
	Votes      int     `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// PollStatistics is the aggregate view of a poll's votes
type PollStatistics struct {
	PollID     string         `json:"poll_id"`
	Title      string         `json:"title"`
	Status     string         `json:"status"`
	TotalVotes int            `json:"total_votes"`
	Options    []OptionResult `json:"options"`
	LeaderID   string         `json:"leader_id,omitempty"`
	LeaderText string         `json:"leader_text,omitempty"`
	ComputedAt time.Time      `json:"computed_at"`
}

// DistributionMetrics describes the spread of rating-style votes
type DistributionMetrics struct {
	PollID       string  `json:"poll_id"`
	SampleSize   int     `json:"sample_size"`
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	CoefficientV float64 `json:"coefficient_of_variation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
}

// TrendingPoll pairs a poll with its vote count for ranking
type TrendingPoll struct {
	Poll       models.Poll `json:"poll"`
	TotalVotes int         `json:"total_votes"`
}

// ComputeStatistics aggregates a poll's votes into per-option counts,
// percentages and a leader. The leader tie-break is the first option in
// order_num iteration order; arbitrary but deterministic.
func (s *StatsService) ComputeStatistics(ctx context.Context, pollID string) (*PollStatistics, error) {
	poll, err := s.repo.GetPoll(ctx, pollID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}

	votes, err := s.repo.ListVotesForPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, v := range votes {
		if v.OptionID != nil {
			counts[*v.OptionID]++
		}
	}
	total := len(votes)

	stats := &PollStatistics{
		PollID:     poll.ID,
		Title:      poll.Title,
		Status:     string(poll.Status),
		TotalVotes: total,
		Options:    make([]OptionResult, 0, len(poll.Options)),
		ComputedAt: time.Now(),
	}

	leaderVotes := -1
	for _, opt := range poll.Options {
		n := counts[opt.ID]
		pct := 0.0
		if total > 0 {
			pct = round2(float64(n) / float64(total) * 100)
		}
		stats.Options = append(stats.Options, OptionResult{
			OptionID:   opt.ID,
			Text:       opt.Text,
			OrderNum:   opt.OrderNum,
			Votes:      n,
			Percentage: pct,
		})
		if n > leaderVotes {
			leaderVotes = n
			stats.LeaderID = opt.ID
			stats.LeaderText = opt.Text
		}
	}
	if total == 0 {
		stats.LeaderID = ""
		stats.LeaderText = ""
	}
	return stats, nil
}

// DistributionMetrics treats each vote's option position as a numeric rating
// (order_num + 1) and reports mean, population standard deviation,
// coefficient of variation, min and max. Votes without an option are
// excluded; no rating-bearing votes yields all zeros.
func (s *StatsService) DistributionMetrics(ctx context.Context, pollID string) (*DistributionMetrics, error) {
	poll, err := s.repo.GetPoll(ctx, pollID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrPollNotFound
	}
	if err != nil {
		return nil, err
	}

	votes, err := s.repo.ListVotesForPoll(ctx, pollID)
	if err != nil {
		return nil, err
	}

	ratingByOption := make(map[string]float64, len(poll.Options))
	for _, opt := range poll.Options {
		ratingByOption[opt.ID] = float64(opt.OrderNum + 1)
	}

	var values []float64
	for _, v := range votes {
		if v.OptionID == nil {
			continue
		}
		if r, ok := ratingByOption[*v.OptionID]; ok {
			values = append(values, r)
		}
	}

	metrics := &DistributionMetrics{PollID: pollID, SampleSize: len(values)}
	if len(values) == 0 {
		return metrics, nil
	}

	sum := 0.0
	min, max := values[0], values[0]
	for _, x := range values {
		sum += x
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
	}
	mean := sum / float64(len(values))

	varSum := 0.0
	for _, x := range values {
		d := x - mean
		varSum += d * d
	}
	stdDev := math.Sqrt(varSum / float64(len(values)))

	cv := 0.0
	if mean != 0 {
		cv = round2(stdDev / mean * 100)
	}

	metrics.Mean = round2(mean)
	metrics.StdDev = round2(stdDev)
	metrics.CoefficientV = cv
	metrics.Min = round2(min)
	metrics.Max = round2(max)
	return metrics, nil
}

// TrendingPolls returns the ACTIVE polls with the most votes, descending,
// truncated to limit.
func (s *StatsService) TrendingPolls(ctx context.Context, limit int) ([]TrendingPoll, error) {
	polls, err := s.repo.ListPollsByStatus(ctx, models.PollStatusActive)
	if err != nil {
		return nil, err
	}

	trending := make([]TrendingPoll, 0, len(polls))
	for _, p := range polls {
		count, err := s.repo.CountVotesForPoll(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		trending = append(trending, TrendingPoll{Poll: p, TotalVotes: count})
	}

	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].TotalVotes > trending[j].TotalVotes
	})

	if limit > 0 && len(trending) > limit {
		trending = trending[:limit]
	}
	return trending, nil
}
