// Package risk predicts candidate no-show probability from behavioral
// patterns: response latency, negotiation complexity, profile completeness,
// and past interview outcomes.
package risk

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jonathan/hiring-orchestrator/internal/types"
)

// Factor weights. They must sum to 1 so the total stays within [0, 1].
const (
	weightResponseTime   = 0.30
	weightNegotiation    = 0.25
	weightProfile        = 0.20
	weightHistorical     = 0.25
	meaningfulFieldChars = 10
)

// Level categorizes a risk score.
type Level string

// Level values.
const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Factors is the per-signal breakdown reported alongside the score.
type Factors struct {
	ResponseTimeHours     float64 `json:"response_time_hours"`
	NegotiationRounds     int     `json:"negotiation_rounds"`
	ProfileCompleteness   float64 `json:"profile_completeness"`
	HistoricalReliability float64 `json:"historical_reliability"`
}

// Assessment is the result of a risk analysis.
type Assessment struct {
	NoShowRisk float64 `json:"no_show_risk"`
	RiskLevel  Level   `json:"risk_level"`
	Factors    Factors `json:"factors"`
}

// Store is the read surface the analyzer requires.
type Store interface {
	GetInterview(ctx context.Context, id uuid.UUID) (*types.Interview, error)
	GetApplication(ctx context.Context, id uuid.UUID) (*types.Application, error)
	GetCandidate(ctx context.Context, id uuid.UUID) (*types.Candidate, error)
	// LatestNegotiationRound returns the round count of the most recent
	// negotiation session for the interview, and whether one exists.
	LatestNegotiationRound(ctx context.Context, interviewID uuid.UUID) (int, bool, error)
	// ListPastOutcomes returns the terminal statuses of the candidate's
	// previous interviews, excluding the current one.
	ListPastOutcomes(ctx context.Context, candidateID, excludeInterviewID uuid.UUID) ([]types.InterviewStatus, error)
}

// Analyzer scores no-show risk on a 0 (reliable) to 1 (high risk) scale.
type Analyzer struct {
	store  Store
	logger *zap.Logger
}

// NewAnalyzer creates a risk analyzer backed by the given store.
func NewAnalyzer(store Store, logger *zap.Logger) *Analyzer {
	return &Analyzer{store: store, logger: logger}
}

// Analyze computes the weighted no-show risk for a candidate's interview.
func (a *Analyzer) Analyze(ctx context.Context, interviewID, candidateID uuid.UUID) (*Assessment, error) {
	iv, err := a.store.GetInterview(ctx, interviewID)
	if err != nil {
		return nil, fmt.Errorf("failed to get interview: %w", err)
	}
	if iv == nil {
		return nil, fmt.Errorf("interview not found: %s", interviewID)
	}

	candidate, err := a.store.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	if candidate == nil {
		return nil, fmt.Errorf("candidate not found: %s", candidateID)
	}

	app, err := a.store.GetApplication(ctx, iv.ApplicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil, fmt.Errorf("application not found: %s", iv.ApplicationID)
	}

	responseRisk := responseTimeRisk(iv)
	negotiationRisk, rounds := a.negotiationRisk(ctx, interviewID)
	profileRisk := profileCompletenessRisk(candidate, app)
	historicalRisk := a.historicalRisk(ctx, candidateID, interviewID)

	total := responseRisk*weightResponseTime +
		negotiationRisk*weightNegotiation +
		profileRisk*weightProfile +
		historicalRisk*weightHistorical

	return &Assessment{
		NoShowRisk: round2(total),
		RiskLevel:  Categorize(total),
		Factors: Factors{
			ResponseTimeHours:     responseTimeHours(iv),
			NegotiationRounds:     rounds,
			ProfileCompleteness:   round2(1 - profileRisk),
			HistoricalReliability: round2(1 - historicalRisk),
		},
	}, nil
}

// Categorize buckets a risk score: <0.3 low, <0.7 medium, else high.
func Categorize(score float64) Level {
	switch {
	case score < 0.3:
		return LevelLow
	case score < 0.7:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// responseTimeRisk scores the delay between invitation and response. Longer
// delays score higher; no response yet is the 0.5 midpoint.
func responseTimeRisk(iv *types.Interview) float64 {
	if iv.Status == types.StatusInvitationSent {
		return 0.5
	}
	hours := iv.UpdatedAt.Sub(iv.CreatedAt).Hours()
	switch {
	case hours < 6:
		return 0.1
	case hours < 24:
		return 0.3
	case hours < 48:
		return 0.7
	default:
		return 0.9
	}
}

func responseTimeHours(iv *types.Interview) float64 {
	if iv.Status == types.StatusInvitationSent {
		return 0
	}
	return math.Round(iv.UpdatedAt.Sub(iv.CreatedAt).Hours()*10) / 10
}

// negotiationRisk scores scheduling back-and-forth. More rounds indicate a
// less committed candidate. Lookup failures degrade to the low-risk default.
func (a *Analyzer) negotiationRisk(ctx context.Context, interviewID uuid.UUID) (float64, int) {
	rounds, found, err := a.store.LatestNegotiationRound(ctx, interviewID)
	if err != nil {
		a.logger.Warn("failed to fetch negotiation data", zap.Error(err))
		return 0.1, 0
	}
	if !found {
		return 0.1, 0
	}
	switch {
	case rounds <= 0:
		return 0.1, rounds
	case rounds == 1:
		return 0.2, rounds
	case rounds == 2:
		return 0.5, rounds
	default:
		return 0.8, rounds
	}
}

// profileCompletenessRisk checks candidate and application fields; sparse
// profiles score higher. Application fields need meaningful content.
func profileCompletenessRisk(candidate *types.Candidate, app *types.Application) float64 {
	complete := 0
	total := 6

	if candidate.Name != "" {
		complete++
	}
	if candidate.Email != "" {
		complete++
	}
	if candidate.Phone != "" {
		complete++
	}
	if len(app.CoverLetter) > meaningfulFieldChars {
		complete++
	}
	if len(app.Address) > meaningfulFieldChars {
		complete++
	}
	if len(app.ResumeURL) > meaningfulFieldChars {
		complete++
	}

	return 1 - float64(complete)/float64(total)
}

// historicalRisk scores the candidate's past no-show and completion rates.
// No history scores the 0.5 midpoint, as do lookup failures.
func (a *Analyzer) historicalRisk(ctx context.Context, candidateID, excludeInterviewID uuid.UUID) float64 {
	outcomes, err := a.store.ListPastOutcomes(ctx, candidateID, excludeInterviewID)
	if err != nil {
		a.logger.Warn("failed to fetch interview history", zap.Error(err))
		return 0.5
	}
	if len(outcomes) == 0 {
		return 0.5
	}

	var noShows, completed int
	for _, status := range outcomes {
		switch status {
		case types.StatusNoShow:
			noShows++
		case types.StatusCompleted:
			completed++
		}
	}

	total := float64(len(outcomes))
	noShowRate := float64(noShows) / total
	completionRate := float64(completed) / total
	return math.Min(noShowRate+(1-completionRate)*0.5, 1.0)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
