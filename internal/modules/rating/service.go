// README: Rating ledger records scores and reports sliding-window averages.
package rating

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"flytaxi/internal/logger"
	"flytaxi/internal/types"
)

type Service struct {
	store Store
	log   *zap.Logger
}

func NewService(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: logger.OrNop(log)}
}

// RecordScore validates score and folds it into the subject's window.
func (s *Service) RecordScore(ctx context.Context, subjectID types.ID, score int) (Aggregate, error) {
	if score < MinScore || score > MaxScore {
		return Aggregate{}, fmt.Errorf("%w: got %d", ErrInvalidScore, score)
	}
	agg, err := s.store.Update(ctx, subjectID, func(a *Aggregate) error {
		return a.Add(score)
	})
	if err != nil {
		return Aggregate{}, err
	}
	s.log.Info("rating recorded",
		zap.String("subject_id", subjectID.String()),
		zap.Int("score", score),
		zap.Int("count", agg.Count),
		zap.Float64("average", agg.Average()),
	)
	return agg, nil
}

// CurrentAverage returns the mean of the stored window, 5.0 when empty.
func (s *Service) CurrentAverage(ctx context.Context, subjectID types.ID) (float64, error) {
	agg, err := s.store.Get(ctx, subjectID)
	if err != nil {
		return 0, err
	}
	return agg.Average(), nil
}

// Aggregate exposes the raw window for reporting.
func (s *Service) Aggregate(ctx context.Context, subjectID types.ID) (Aggregate, error) {
	return s.store.Get(ctx, subjectID)
}
