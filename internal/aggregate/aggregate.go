// Package aggregate rebuilds dashboard rollups from raw logs. Every function is
// pure: the same input always yields the same output.
package aggregate

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mybiom/biom/internal/model"
)

const dateLayout = "2006-01-02"

// DateKey truncates t to its calendar date in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dateLayout)
}

func val(f *float64) float64 {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return 0
	}
	return *f
}

// Nutrition groups entries into ascending day buckets and a per-food calorie breakdown.
func Nutrition(entries []*model.NutritionEntry, loc *time.Location) ([]model.DayBucket, []model.FoodBreakdown) {
	byDate := map[string]*model.DayBucket{}
	type foodKey struct {
		null bool
		name string
	}
	byFood := map[foodKey]float64{}

	for _, e := range entries {
		if e == nil {
			continue
		}
		d := DateKey(e.RecordedAt, loc)
		b, ok := byDate[d]
		if !ok {
			b = &model.DayBucket{Date: d}
			byDate[d] = b
		}
		b.Calories += val(e.Calories)
		b.Protein += val(e.Protein)
		b.Carbs += val(e.Carbs)

		k := foodKey{null: e.FoodItem == nil}
		if e.FoodItem != nil {
			k.name = *e.FoodItem
		}
		byFood[k] += val(e.Calories)
	}

	buckets := make([]model.DayBucket, 0, len(byDate))
	for _, b := range byDate {
		buckets = append(buckets, *b)
	}
	// ISO dates sort lexically in chronological order.
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Date < buckets[j].Date })

	foods := make([]model.FoodBreakdown, 0, len(byFood))
	for k, cals := range byFood {
		fb := model.FoodBreakdown{Calories: cals}
		if !k.null {
			name := k.name
			fb.FoodItem = &name
		}
		foods = append(foods, fb)
	}
	sort.Slice(foods, func(i, j int) bool {
		if foods[i].Calories != foods[j].Calories {
			return foods[i].Calories > foods[j].Calories
		}
		return foodName(foods[i]) < foodName(foods[j])
	})
	return buckets, foods
}

// foodName orders the null food item before any named one.
func foodName(f model.FoodBreakdown) string {
	if f.FoodItem == nil {
		return ""
	}
	return "\x00" + *f.FoodItem
}

// DailyTotals sums the entries of a single day.
func DailyTotals(date string, entries []*model.NutritionEntry) model.DailyTotals {
	out := model.DailyTotals{Date: date, Entries: len(entries)}
	for _, e := range entries {
		out.Calories += val(e.Calories)
		out.Protein += val(e.Protein)
		out.Carbs += val(e.Carbs)
	}
	return out
}

// ParameterKey is the grouping key of a health parameter.
func ParameterKey(name string) string { return strings.ToLower(name) }

// Health turns numeric attribute history into per-parameter series. Text
// attributes are skipped. Numeric records whose value cannot be read are
// returned as issues and left out of the series.
func Health(records []*model.AttributeRecord) *model.HealthGraph {
	type point struct {
		at  time.Time
		id  int64
		val float64
	}
	grouped := map[string][]point{}
	issues := []model.RecordIssue{}

	for _, r := range records {
		if r == nil || r.Kind != model.KindNumeric {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(r.Value), 64)
		if err != nil {
			issues = append(issues, model.RecordIssue{RecordID: r.RecordID, Attribute: r.Name, Value: r.Value, Reason: "not a number"})
			continue
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			issues = append(issues, model.RecordIssue{RecordID: r.RecordID, Attribute: r.Name, Value: r.Value, Reason: fmt.Sprintf("non-finite value %v", v)})
			continue
		}
		k := ParameterKey(r.Name)
		grouped[k] = append(grouped[k], point{at: r.RecordedAt, id: r.RecordID, val: v})
	}

	out := &model.HealthGraph{
		Parameters: make([]string, 0, len(grouped)),
		Series:     make(map[string][]model.SeriesPoint, len(grouped)),
		Issues:     issues,
	}
	for k, pts := range grouped {
		sort.SliceStable(pts, func(i, j int) bool {
			if !pts[i].at.Equal(pts[j].at) {
				return pts[i].at.Before(pts[j].at)
			}
			return pts[i].id < pts[j].id
		})
		series := make([]model.SeriesPoint, len(pts))
		for i, p := range pts {
			series[i] = model.SeriesPoint{Date: p.at, Value: p.val}
		}
		out.Parameters = append(out.Parameters, k)
		out.Series[k] = series
	}
	sort.Strings(out.Parameters)
	sort.Slice(out.Issues, func(i, j int) bool { return out.Issues[i].RecordID < out.Issues[j].RecordID })
	return out
}
