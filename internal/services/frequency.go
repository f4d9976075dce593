package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/go-authgate/appgrant/internal/config"
	"github.com/go-authgate/appgrant/internal/core"
	"github.com/go-authgate/appgrant/internal/models"
	"github.com/go-authgate/appgrant/internal/store"
)

const maxBumpAttempts = 5

// RankedUserApp is a bound relation with its score brought current.
type RankedUserApp struct {
	UserApp models.UserApp
	Score   float64
}

// FrequencyService ranks a user's apps by recent use. Each use adds Increment;
// scores halve every HalfLife and collapse to zero below MinScore.
type FrequencyService struct {
	store        *store.Store
	increment    float64
	halfLife     time.Duration
	minScore     float64
	batchSize    int
	auditService *AuditService
	metrics      core.Recorder
	now          func() time.Time
}

func NewFrequencyService(
	s *store.Store,
	cfg *config.Config,
	auditService *AuditService,
	m core.Recorder,
) *FrequencyService {
	batchSize := cfg.FrequencyBatchSize
	if batchSize <= 0 {
		batchSize = 500
	}
	return &FrequencyService{
		store:        s,
		increment:    cfg.FrequencyIncrement,
		halfLife:     cfg.FrequencyHalfLife,
		minScore:     cfg.FrequencyMinScore,
		batchSize:    batchSize,
		auditService: auditService,
		metrics:      m,
		now:          now,
	}
}

// decay carries score from the instant from to the instant to.
func (f *FrequencyService) decay(score float64, from, to time.Time) float64 {
	elapsed := to.Sub(from)
	if elapsed > 0 && f.halfLife > 0 {
		score *= math.Pow(0.5, elapsed.Seconds()/f.halfLife.Seconds())
	}
	if score < f.minScore {
		return 0
	}
	return score
}

// CurrentScore returns the relation's score as of at.
func (f *FrequencyService) CurrentScore(ua *models.UserApp, at time.Time) float64 {
	return f.decay(ua.FrequentScore, ua.ScoreUpdateTime, at)
}

// Bump records one use of the relation. The write is conditional on the score
// not having moved since it was read; a lost race re-reads and tries again.
func (f *FrequencyService) Bump(ctx context.Context, ua *models.UserApp) error {
	current := *ua
	for attempt := 0; attempt < maxBumpAttempts; attempt++ {
		at := f.now()
		score := f.decay(current.FrequentScore, current.ScoreUpdateTime, at) + f.increment

		ok, err := f.store.UpdateUserAppScore(ctx, current.ID, current.ScoreUpdateTime, score, at)
		if err != nil {
			return fmt.Errorf("failed to update score: %w", err)
		}
		if ok {
			ua.FrequentScore = score
			ua.ScoreUpdateTime = at
			return nil
		}

		fresh, err := f.store.GetUserApp(ctx, current.UserID, current.AppID)
		if err != nil {
			return fmt.Errorf("failed to reload relation: %w", err)
		}
		current = *fresh
	}
	return ErrScoreContention
}

// RefreshAll brings every relation's score current. Rows already current are
// left alone, so running it twice at the same instant changes nothing, and rows
// bumped while the job runs are skipped.
func (f *FrequencyService) RefreshAll(ctx context.Context) (int, error) {
	start := time.Now()
	at := f.now()
	updated := 0
	var afterID uint

	for {
		batch, err := f.store.ListUserAppsAfter(ctx, afterID, f.batchSize)
		if err != nil {
			f.metrics.RecordDatabaseQueryError("list_user_apps")
			return updated, fmt.Errorf("failed to list relations: %w", err)
		}

		for i := range batch {
			ua := &batch[i]
			afterID = ua.ID
			if !ua.ScoreUpdateTime.Before(at) {
				continue
			}

			score := f.decay(ua.FrequentScore, ua.ScoreUpdateTime, at)
			ok, err := f.store.UpdateUserAppScore(ctx, ua.ID, ua.ScoreUpdateTime, score, at)
			if err != nil {
				f.metrics.RecordDatabaseQueryError("update_user_app_score")
				return updated, fmt.Errorf("failed to update score: %w", err)
			}
			if ok {
				updated++
			}
		}

		if len(batch) < f.batchSize {
			break
		}
	}

	duration := time.Since(start)
	f.metrics.RecordScoreRefresh(updated, duration)
	log.Printf("Frequency refresh updated %d relations in %v", updated, duration)

	f.auditService.Log(ctx, AuditLogEntry{
		EventType: models.EventFrequencyRefreshRun,
		Severity:  models.SeverityInfo,
		Action:    "Frequency scores refreshed",
		Details: models.AuditDetails{
			"updated":     updated,
			"duration_ms": duration.Milliseconds(),
		},
		Success: true,
	})
	return updated, nil
}

// TopN returns up to n of the user's bound relations, highest current score
// first, then most recent auth code, then oldest relation.
func (f *FrequencyService) TopN(ctx context.Context, userID string, n int) ([]RankedUserApp, error) {
	if n <= 0 {
		return []RankedUserApp{}, nil
	}

	uas, err := f.store.ListBoundUserApps(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bound relations: %w", err)
	}

	at := f.now()
	ranked := make([]RankedUserApp, 0, len(uas))
	for i := range uas {
		ranked = append(ranked, RankedUserApp{
			UserApp: uas[i],
			Score:   f.CurrentScore(&uas[i], at),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.UserApp.LastAuthCodeTime.Equal(b.UserApp.LastAuthCodeTime) {
			return a.UserApp.LastAuthCodeTime.After(b.UserApp.LastAuthCodeTime)
		}
		return a.UserApp.ID < b.UserApp.ID
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}
