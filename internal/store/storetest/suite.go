package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/mybiom/biom/internal/model"
	"github.com/mybiom/biom/internal/store"
	"github.com/mybiom/biom/internal/store/sqlstore"
)

// MakeStore returns a store with the schema applied, built with opts.
type MakeStore func(t *testing.T, opts ...sqlstore.Option) store.Store

// requireProjectionMatchesHistory checks that the current value of (uid, name)
// is the last record its history lists.
func requireProjectionMatchesHistory(t *testing.T, s store.Store, uid, name string) *model.Attribute {
	t.Helper()
	ctx := context.Background()
	cur, err := s.Attributes().CurrentByName(ctx, uid, name)
	require.NoError(t, err)
	hist, err := s.Attributes().HistoryByName(ctx, uid, name)
	require.NoError(t, err)
	require.NotEmpty(t, hist)
	last := hist[len(hist)-1]
	assert.Equal(t, last.RecordID, cur.RecordID, "projection record of %s", name)
	assert.Equal(t, last.Value, cur.Value, "projection value of %s", name)
	assert.True(t, last.RecordedAt.Equal(cur.RecordedAt), "projection time of %s", name)
	return cur
}

// steppingClock returns each of times in turn, then repeats the last one.
func steppingClock(times ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

// Run exercises a compliance suite against a store.Store implementation.
// Field names are randomised so a shared database can be reused between runs.
func Run(t *testing.T, makeStore MakeStore) {
	t.Helper()

	s := makeStore(t)
	ctx := context.Background()
	suffix := uuid.New().String()[:8]
	field := func(n string) string { return n + "_" + suffix }

	newUser := func(t *testing.T) string {
		t.Helper()
		u, err := s.Users().Create(ctx, &model.User{UserID: "u-" + uuid.New().String(), Name: "tester"})
		require.NoError(t, err)
		return u.UserID
	}

	t.Run("Users", func(t *testing.T) {
		id := newUser(t)
		got, err := s.Users().Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "tester", got.Name)
		assert.False(t, got.CreationTime.IsZero())

		_, err = s.Users().Create(ctx, &model.User{UserID: id})
		assert.True(t, model.IsConflictError(err), "duplicate create: %v", err)

		_, err = s.Users().Get(ctx, "missing-"+suffix)
		assert.True(t, model.IsNotFoundError(err))

		lst, err := s.Users().List(ctx)
		require.NoError(t, err)
		found := false
		for _, u := range lst {
			if u.UserID == id {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("AttributesProjectLatestWrite", func(t *testing.T) {
		uid := newUser(t)
		weight, goal := field("weight"), field("goal")

		recs, err := s.Attributes().Apply(ctx, uid, []model.AttributeWrite{
			{Name: weight, Value: "70", Kind: model.KindNumeric},
			{Name: goal, Value: "bulk", Kind: model.KindText},
		})
		require.NoError(t, err)
		require.Len(t, recs, 2)

		_, err = s.Attributes().Apply(ctx, uid, []model.AttributeWrite{{Name: weight, Value: "71.5", Kind: model.KindNumeric}})
		require.NoError(t, err)

		cur, err := s.Attributes().CurrentByName(ctx, uid, weight)
		require.NoError(t, err)
		assert.Equal(t, "71.5", cur.Value)
		require.NotNil(t, cur.Number)
		assert.InDelta(t, 71.5, *cur.Number, 1e-9)

		all, err := s.Attributes().Current(ctx, uid)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, goal, all[0].Name)
		assert.Nil(t, all[0].Number)

		hist, err := s.Attributes().HistoryByName(ctx, uid, weight)
		require.NoError(t, err)
		require.Len(t, hist, 2)
		assert.Equal(t, "70", hist[0].Value)
		assert.Equal(t, "71.5", hist[1].Value)
		assert.Less(t, hist[0].RecordID, hist[1].RecordID)

		full, err := s.Attributes().History(ctx, uid)
		require.NoError(t, err)
		assert.Len(t, full, 3)

		// The projection always points at the newest history record.
		assert.Equal(t, hist[1].RecordID, cur.RecordID)
		requireProjectionMatchesHistory(t, s, uid, weight)
		requireProjectionMatchesHistory(t, s, uid, goal)
	})

	t.Run("ClockStepBackKeepsProjectionOnLatestHistory", func(t *testing.T) {
		june2 := time.Date(2024, 6, 2, 9, 0, 0, 0, time.UTC)
		june1 := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
		cs := makeStore(t, sqlstore.WithClock(steppingClock(june2, june1)))
		uid := "u-" + uuid.New().String()
		weight := field("clock_weight")

		_, err := cs.Attributes().Apply(ctx, uid, []model.AttributeWrite{{Name: weight, Value: "70", Kind: model.KindNumeric}})
		require.NoError(t, err)
		_, err = cs.Attributes().Apply(ctx, uid, []model.AttributeWrite{{Name: weight, Value: "72", Kind: model.KindNumeric}})
		require.NoError(t, err)

		hist, err := cs.Attributes().HistoryByName(ctx, uid, weight)
		require.NoError(t, err)
		require.Len(t, hist, 2)
		assert.Equal(t, "72", hist[0].Value)
		assert.Equal(t, "70", hist[1].Value)

		cur := requireProjectionMatchesHistory(t, cs, uid, weight)
		assert.Equal(t, "70", cur.Value)
		assert.True(t, cur.RecordedAt.Equal(june2))
	})

	t.Run("AttributeKindIsFixedByFirstWrite", func(t *testing.T) {
		uid := newUser(t)
		bp, note := field("bp"), field("note")

		_, err := s.Attributes().Apply(ctx, uid, []model.AttributeWrite{
			{Name: bp, Value: "120", Kind: model.KindNumeric},
			{Name: note, Value: "hello", Kind: model.KindText},
		})
		require.NoError(t, err)

		_, err = s.Attributes().Apply(ctx, uid, []model.AttributeWrite{{Name: bp, Value: "high", Kind: model.KindText}})
		assert.True(t, model.IsValidationError(err), "text into numeric field: %v", err)

		recs, err := s.Attributes().Apply(ctx, uid, []model.AttributeWrite{{Name: note, Value: "42", Kind: model.KindNumeric}})
		require.NoError(t, err)
		assert.Equal(t, model.KindText, recs[0].Kind)

		recs, err = s.Attributes().Apply(ctx, uid, []model.AttributeWrite{{Name: bp, Value: " 121.50 ", Kind: model.KindText}})
		require.NoError(t, err)
		assert.Equal(t, model.KindNumeric, recs[0].Kind)
		assert.Equal(t, "121.5", recs[0].Value)

		f, err := s.Attributes().Field(ctx, bp)
		require.NoError(t, err)
		assert.Equal(t, model.KindNumeric, f.Kind)

		fields, err := s.Attributes().Fields(ctx, []string{bp, note, field("absent")})
		require.NoError(t, err)
		assert.Len(t, fields, 2)
		assert.Equal(t, model.KindText, fields[note].Kind)

		_, err = s.Attributes().Field(ctx, field("absent"))
		assert.True(t, model.IsNotFoundError(err))
	})

	t.Run("FailedBatchLeavesNoTrace", func(t *testing.T) {
		uid := newUser(t)
		num, fresh := field("num"), field("fresh")

		_, err := s.Attributes().Apply(ctx, uid, []model.AttributeWrite{{Name: num, Value: "1", Kind: model.KindNumeric}})
		require.NoError(t, err)

		_, err = s.Attributes().Apply(ctx, uid, []model.AttributeWrite{
			{Name: fresh, Value: "5", Kind: model.KindNumeric},
			{Name: num, Value: "oops", Kind: model.KindText},
		})
		require.Error(t, err)

		hist, err := s.Attributes().History(ctx, uid)
		require.NoError(t, err)
		assert.Len(t, hist, 1)

		_, err = s.Attributes().CurrentByName(ctx, uid, fresh)
		assert.True(t, model.IsNotFoundError(err))
		_, err = s.Attributes().Field(ctx, fresh)
		assert.True(t, model.IsNotFoundError(err), "field registration must roll back")
	})

	t.Run("ConcurrentWritesToNewField", func(t *testing.T) {
		name := field("steps")
		users := make([]string, 8)
		for i := range users {
			users[i] = newUser(t)
		}

		var g errgroup.Group
		for i, uid := range users {
			uid, v := uid, fmt.Sprintf("%d", 1000+i)
			g.Go(func() error {
				_, err := s.Attributes().Apply(ctx, uid, []model.AttributeWrite{{Name: name, Value: v, Kind: model.KindNumeric}})
				return err
			})
		}
		require.NoError(t, g.Wait())

		for i, uid := range users {
			cur := requireProjectionMatchesHistory(t, s, uid, name)
			assert.Equal(t, fmt.Sprintf("%d", 1000+i), cur.Value)
		}

		// Many writers on one existing key: the projection still lands on the
		// record its history lists last.
		uid := users[0]
		var same errgroup.Group
		for i := 0; i < 8; i++ {
			v := fmt.Sprintf("%d", 2000+i)
			same.Go(func() error {
				_, err := s.Attributes().Apply(ctx, uid, []model.AttributeWrite{{Name: name, Value: v, Kind: model.KindNumeric}})
				return err
			})
		}
		require.NoError(t, same.Wait())
		hist, err := s.Attributes().HistoryByName(ctx, uid, name)
		require.NoError(t, err)
		assert.Len(t, hist, 9)
		requireProjectionMatchesHistory(t, s, uid, name)
	})

	t.Run("EntriesAppendAndFilter", func(t *testing.T) {
		uid := newUser(t)
		day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
		apple := "apple"
		cals := 95.0

		_, err := s.Entries().Append(ctx, &model.NutritionEntry{UserID: uid, FoodItem: &apple, Calories: &cals, RecordedAt: day.Add(8 * time.Hour)})
		require.NoError(t, err)
		_, err = s.Entries().Append(ctx, &model.NutritionEntry{UserID: uid, RecordedAt: day.Add(20 * time.Hour)})
		require.NoError(t, err)
		_, err = s.Entries().Append(ctx, &model.NutritionEntry{UserID: uid, FoodItem: &apple, RecordedAt: day.Add(26 * time.Hour)})
		require.NoError(t, err)

		all, err := s.Entries().List(ctx, model.ListEntriesRequest{UserID: uid})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.True(t, all[0].RecordedAt.Equal(day.Add(8*time.Hour)))
		require.NotNil(t, all[0].Calories)
		assert.InDelta(t, 95.0, *all[0].Calories, 1e-9)
		assert.Nil(t, all[1].FoodItem)
		assert.Nil(t, all[1].Calories)

		from, to := day, day.Add(24*time.Hour)
		one, err := s.Entries().List(ctx, model.ListEntriesRequest{UserID: uid, From: &from, To: &to})
		require.NoError(t, err)
		assert.Len(t, one, 2)
	})

	t.Run("Chat", func(t *testing.T) {
		uid := newUser(t)
		m1, err := s.Chat().Append(ctx, &model.ChatMessage{UserID: uid, Message: "hi"})
		require.NoError(t, err)
		m2, err := s.Chat().Append(ctx, &model.ChatMessage{UserID: uid, Message: "hello", IsBot: true})
		require.NoError(t, err)
		assert.Less(t, m1.MessageID, m2.MessageID)

		lst, err := s.Chat().List(ctx, uid)
		require.NoError(t, err)
		require.Len(t, lst, 2)
		assert.Equal(t, "hi", lst[0].Message)
		assert.True(t, lst[1].IsBot)
	})
}
