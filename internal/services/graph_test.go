package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mybiom/biom/internal/model"
)

func fp(v float64) *float64 { return &v }
func sp(v string) *string   { return &v }

func seedEntries(t *testing.T, svc *EntryService, userID string) {
	t.Helper()
	ctx := context.Background()
	for _, e := range []*model.NutritionEntry{
		{UserID: userID, FoodItem: sp("oats"), RecordedAt: fixedNow.Add(-2 * time.Hour), Calories: fp(300), Protein: fp(10), Carbs: fp(54)},
		{UserID: userID, FoodItem: sp("apple"), RecordedAt: fixedNow.Add(-26 * time.Hour), Calories: fp(95), Carbs: fp(25)},
		{UserID: userID, RecordedAt: fixedNow.Add(-25 * time.Hour)},
		{UserID: userID, FoodItem: sp("oats"), RecordedAt: fixedNow.Add(-200 * 24 * time.Hour), Calories: fp(300)},
	} {
		_, err := svc.AppendEntry(ctx, e)
		require.NoError(t, err)
	}
}

func TestAppendEntry_Validation(t *testing.T) {
	svc := NewEntryService(newTestStore(t), testOptions())
	ctx := context.Background()

	_, err := svc.AppendEntry(ctx, &model.NutritionEntry{})
	assert.True(t, model.IsValidationError(err))
	_, err = svc.AppendEntry(ctx, &model.NutritionEntry{UserID: "u1", Calories: fp(-1)})
	assert.True(t, model.IsValidationError(err))

	e, err := svc.AppendEntry(ctx, &model.NutritionEntry{UserID: "u1", FoodItem: sp("tea")})
	require.NoError(t, err)
	assert.NotEmpty(t, e.EntryID)
	assert.True(t, e.RecordedAt.Equal(fixedNow), "recordedAt defaults to now")
}

func TestEntriesForDayAndTotals(t *testing.T) {
	ctx := context.Background()
	svc := NewEntryService(newTestStore(t), testOptions())
	seedEntries(t, svc, "u1")

	today, err := svc.EntriesForDay(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, today, 1)
	assert.Equal(t, "oats", *today[0].FoodItem)

	totals, err := svc.DailyTotals(ctx, "u1", "2024-06-14")
	require.NoError(t, err)
	assert.Equal(t, &model.DailyTotals{Date: "2024-06-14", Entries: 2, Calories: 95, Carbs: 25}, totals)

	_, err = svc.DailyTotals(ctx, "u1", "14/06/2024")
	assert.True(t, model.IsValidationError(err))

	all, err := svc.AllEntries(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestComputeNutritionGraph(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedEntries(t, NewEntryService(st, testOptions()), "u1")
	svc := NewGraphService(st, testOptions())

	g, err := svc.ComputeNutritionGraph(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 100, g.WindowDays)
	require.Len(t, g.DayBuckets, 2, "the 200 day old entry is outside the default window")
	assert.Equal(t, model.DayBucket{Date: "2024-06-14", Calories: 95, Carbs: 25}, g.DayBuckets[0])
	assert.Equal(t, model.DayBucket{Date: "2024-06-15", Calories: 300, Protein: 10, Carbs: 54}, g.DayBuckets[1])
	require.Len(t, g.FoodBreakdown, 3)
	assert.Equal(t, "oats", *g.FoodBreakdown[0].FoodItem)

	wide, err := svc.ComputeNutritionGraph(ctx, "u1", 365)
	require.NoError(t, err)
	assert.Len(t, wide.DayBuckets, 3)

	again, err := svc.ComputeNutritionGraph(ctx, "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, g, again)

	for _, bad := range []int{-1, 3651} {
		_, err := svc.ComputeNutritionGraph(ctx, "u1", bad)
		assert.True(t, model.IsValidationError(err), "days=%d", bad)
	}
}

func TestComputeNutritionGraph_NoData(t *testing.T) {
	svc := NewGraphService(newTestStore(t), testOptions())
	g, err := svc.ComputeNutritionGraph(context.Background(), "nobody", 0)
	require.NoError(t, err)
	assert.NotNil(t, g.DayBuckets)
	assert.Empty(t, g.DayBuckets)
	assert.NotNil(t, g.FoodBreakdown)
	assert.Empty(t, g.FoodBreakdown)
}

func TestComputeHealthGraph(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	attrs := NewAttributeService(st, testOptions())

	_, err := attrs.SetAttribute(ctx, "u1", "weight", 70)
	require.NoError(t, err)
	_, err = attrs.SetAttribute(ctx, "u1", "Weight", 72)
	require.NoError(t, err)
	_, err = attrs.SetAttribute(ctx, "u1", "goal", "maintain")
	require.NoError(t, err)

	svc := NewGraphService(st, testOptions())
	g, err := svc.ComputeHealthGraph(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"weight"}, g.Parameters)
	require.Len(t, g.Series["weight"], 2)
	assert.Equal(t, 70.0, g.Series["weight"][0].Value)
	assert.Equal(t, 72.0, g.Series["weight"][1].Value)
	assert.Empty(t, g.Issues)

	again, err := svc.ComputeHealthGraph(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, g, again)
}

func TestComputeHealthGraph_StorageFailure(t *testing.T) {
	opts := testOptions()
	opts.StoreTimeout = 20 * time.Millisecond
	svc := NewGraphService(&fakeStore{attrs: &failingAttributes{block: true}}, opts)
	_, err := svc.ComputeHealthGraph(context.Background(), "u1")
	assert.True(t, model.IsStorageError(err))
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	seedEntries(t, NewEntryService(st, testOptions()), "u1")
	_, err := NewAttributeService(st, testOptions()).SetAttribute(ctx, "u1", "weight", 70)
	require.NoError(t, err)

	d, err := NewGraphService(st, testOptions()).Dashboard(ctx, "u1", 30)
	require.NoError(t, err)
	assert.Equal(t, "u1", d.UserID)
	assert.Len(t, d.Nutrition.DayBuckets, 2)
	assert.Equal(t, []string{"weight"}, d.Health.Parameters)

	_, err = NewGraphService(st, testOptions()).Dashboard(ctx, "u1", 9999)
	assert.True(t, model.IsValidationError(err))
}
