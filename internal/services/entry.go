package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/mybiom/biom/internal/aggregate"
	"github.com/mybiom/biom/internal/metrics"
	"github.com/mybiom/biom/internal/model"
	"github.com/mybiom/biom/internal/store"
)

// DateLayout is the calendar date format accepted and returned by the API.
const DateLayout = "2006-01-02"

// EntryService appends to and reads the nutrition log.
type EntryService struct {
	store store.Store
	opts  Options
}

func NewEntryService(s store.Store, opts Options) *EntryService {
	return &EntryService{store: s, opts: opts.withDefaults()}
}

// AppendEntry validates and stores one entry. RecordedAt defaults to now.
func (s *EntryService) AppendEntry(ctx context.Context, e *model.NutritionEntry) (*model.NutritionEntry, error) {
	if e == nil {
		return nil, model.NewValidationError("entry", "required")
	}
	if err := validateUserID(e.UserID); err != nil {
		return nil, err
	}
	for field, v := range map[string]*float64{"calories": e.Calories, "protein": e.Protein, "carbs": e.Carbs} {
		if v == nil {
			continue
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return nil, model.NewValidationError(field, "must be a finite number")
		}
		if *v < 0 {
			return nil, model.NewValidationError(field, "must not be negative")
		}
	}
	in := *e
	if in.RecordedAt.IsZero() {
		in.RecordedAt = s.opts.Now()
	}
	in.RecordedAt = in.RecordedAt.UTC()

	out, err := storeCall(ctx, s.opts, "append entry", func(ctx context.Context) (*model.NutritionEntry, error) {
		return s.store.Entries().Append(ctx, &in)
	})
	if err != nil {
		return nil, err
	}
	metrics.EntriesAppendedTotal.Inc()
	return out, nil
}

// DayRange resolves a YYYY-MM-DD date (today when empty) to [start, end) in the configured zone.
func (s *EntryService) DayRange(date string) (string, time.Time, time.Time, error) {
	loc := s.opts.Location
	var day time.Time
	if date == "" {
		now := s.opts.Now().In(loc)
		day = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	} else {
		d, err := time.ParseInLocation(DateLayout, date, loc)
		if err != nil {
			return "", time.Time{}, time.Time{}, model.NewValidationError("date", fmt.Sprintf("expected YYYY-MM-DD, got %q", date))
		}
		day = d
	}
	return day.Format(DateLayout), day, day.AddDate(0, 0, 1), nil
}

// EntriesForDay returns the food diary of one calendar date.
func (s *EntryService) EntriesForDay(ctx context.Context, userID, date string) ([]*model.NutritionEntry, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	_, from, to, err := s.DayRange(date)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, model.ListEntriesRequest{UserID: userID, From: &from, To: &to})
}

// DailyTotals sums calories, protein and carbs of one calendar date.
func (s *EntryService) DailyTotals(ctx context.Context, userID, date string) (*model.DailyTotals, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	day, from, to, err := s.DayRange(date)
	if err != nil {
		return nil, err
	}
	entries, err := s.list(ctx, model.ListEntriesRequest{UserID: userID, From: &from, To: &to})
	if err != nil {
		return nil, err
	}
	totals := aggregate.DailyTotals(day, entries)
	return &totals, nil
}

func (s *EntryService) AllEntries(ctx context.Context, userID string) ([]*model.NutritionEntry, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return s.list(ctx, model.ListEntriesRequest{UserID: userID})
}

func (s *EntryService) list(ctx context.Context, req model.ListEntriesRequest) ([]*model.NutritionEntry, error) {
	return storeCall(ctx, s.opts, "list entries", func(ctx context.Context) ([]*model.NutritionEntry, error) {
		return s.store.Entries().List(ctx, req)
	})
}
