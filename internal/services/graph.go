package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mybiom/biom/internal/aggregate"
	"github.com/mybiom/biom/internal/metrics"
	"github.com/mybiom/biom/internal/model"
	"github.com/mybiom/biom/internal/store"
)

const maxWindowDays = 3650

// GraphService recomputes dashboard graphs from the raw logs on every call.
type GraphService struct {
	store store.Store
	opts  Options
}

func NewGraphService(s store.Store, opts Options) *GraphService {
	return &GraphService{store: s, opts: opts.withDefaults()}
}

// ComputeNutritionGraph buckets the entries of the last windowDays days by
// date. windowDays <= 0 selects the configured default.
func (s *GraphService) ComputeNutritionGraph(ctx context.Context, userID string, windowDays int) (*model.NutritionGraph, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if windowDays == 0 {
		windowDays = s.opts.DefaultWindowDays
	}
	if windowDays < 1 || windowDays > maxWindowDays {
		return nil, model.NewValidationError("days", fmt.Sprintf("must be between 1 and %d", maxWindowDays))
	}

	from := s.opts.Now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	entries, err := storeCall(ctx, s.opts, "list entries", func(ctx context.Context) ([]*model.NutritionEntry, error) {
		return s.store.Entries().List(ctx, model.ListEntriesRequest{UserID: userID, From: &from})
	})
	if err != nil {
		return nil, err
	}
	buckets, foods := aggregate.Nutrition(entries, s.opts.Location)
	return &model.NutritionGraph{WindowDays: windowDays, DayBuckets: buckets, FoodBreakdown: foods}, nil
}

// ComputeHealthGraph builds one series per numeric attribute over the user's full history.
func (s *GraphService) ComputeHealthGraph(ctx context.Context, userID string) (*model.HealthGraph, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	records, err := storeCall(ctx, s.opts, "attribute history", func(ctx context.Context) ([]*model.AttributeRecord, error) {
		return s.store.Attributes().History(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	g := aggregate.Health(records)
	if n := len(g.Issues); n > 0 {
		metrics.AggregationIssuesTotal.Add(float64(n))
	}
	return g, nil
}

// Dashboard computes both graphs concurrently.
func (s *GraphService) Dashboard(ctx context.Context, userID string, windowDays int) (*model.Dashboard, error) {
	out := &model.Dashboard{UserID: userID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.ComputeNutritionGraph(gctx, userID, windowDays)
		out.Nutrition = n
		return err
	})
	g.Go(func() error {
		h, err := s.ComputeHealthGraph(gctx, userID)
		out.Health = h
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
