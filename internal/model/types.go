package model

import "time"

// User is the owner of attributes, nutrition entries and chat messages.
type User struct {
	UserID       string    `json:"userId"`
	Name         string    `json:"name"`
	CreationTime time.Time `json:"creationTime"`
}

// UserProfile is a user with the current value of each attribute.
type UserProfile struct {
	User
	Attributes []*Attribute `json:"attributes"`
}

// AttributeKind is fixed by the first write of a field.
type AttributeKind string

const (
	KindNumeric AttributeKind = "numeric"
	KindText    AttributeKind = "text"
)

// AttributeField is a registered, storable attribute name.
type AttributeField struct {
	Name         string        `json:"name"`
	Kind         AttributeKind `json:"kind"`
	CreationTime time.Time     `json:"creationTime"`
}

// AttributeWrite is one validated value ready to be persisted.
type AttributeWrite struct {
	Name  string
	Value string
	Kind  AttributeKind
}

// AttributeRecord is an immutable row of the attribute history log.
type AttributeRecord struct {
	RecordID   int64         `json:"recordId"`
	UserID     string        `json:"userId"`
	Name       string        `json:"name"`
	Value      string        `json:"value"`
	Kind       AttributeKind `json:"kind"`
	RecordedAt time.Time     `json:"recordedAt"`
}

// Attribute is the current-value projection of the latest record per (user, name).
type Attribute struct {
	UserID     string        `json:"userId"`
	Name       string        `json:"name"`
	Value      string        `json:"value"`
	Kind       AttributeKind `json:"kind"`
	Number     *float64      `json:"number,omitempty"`
	RecordID   int64         `json:"recordId"`
	RecordedAt time.Time     `json:"recordedAt"`
}

// NutritionEntry is one logged food item. Numeric fields are optional.
type NutritionEntry struct {
	EntryID    string    `json:"entryId"`
	UserID     string    `json:"userId"`
	FoodItem   *string   `json:"foodItem"`
	RecordedAt time.Time `json:"recordedAt"`
	Calories   *float64  `json:"calories"`
	Protein    *float64  `json:"protein"`
	Carbs      *float64  `json:"carbs"`
}

// ListEntriesRequest captures filters used when listing nutrition entries.
// From is inclusive, To is exclusive.
type ListEntriesRequest struct {
	UserID string
	From   *time.Time
	To     *time.Time
}

// DayBucket sums one calendar date of nutrition entries.
type DayBucket struct {
	Date     string  `json:"date"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
}

// FoodBreakdown sums calories per food item. A nil FoodItem groups entries logged without one.
type FoodBreakdown struct {
	FoodItem *string `json:"foodItem"`
	Calories float64 `json:"calories"`
}

// NutritionGraph is the dashboard view of a window of nutrition entries.
type NutritionGraph struct {
	WindowDays    int             `json:"windowDays"`
	DayBuckets    []DayBucket     `json:"dayBuckets"`
	FoodBreakdown []FoodBreakdown `json:"foodBreakdown"`
}

// SeriesPoint is one observation of a health parameter.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// RecordIssue points at a history record that could not be read as a number.
type RecordIssue struct {
	RecordID  int64  `json:"recordId"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
	Reason    string `json:"reason"`
}

// HealthGraph holds every numeric attribute's full history, keyed by lower-cased name.
type HealthGraph struct {
	Parameters []string                 `json:"parameters"`
	Series     map[string][]SeriesPoint `json:"series"`
	Issues     []RecordIssue            `json:"issues"`
}

// Dashboard bundles both graphs for a user.
type Dashboard struct {
	UserID    string          `json:"userId"`
	Nutrition *NutritionGraph `json:"nutrition"`
	Health    *HealthGraph    `json:"health"`
}

// DailyTotals sums one day of entries.
type DailyTotals struct {
	Date     string  `json:"date"`
	Entries  int     `json:"entries"`
	Calories float64 `json:"totalCals"`
	Protein  float64 `json:"totalProtein"`
	Carbs    float64 `json:"totalCarbs"`
}

// ChatMessage is one turn of a stored conversation.
type ChatMessage struct {
	MessageID    int64     `json:"messageId"`
	UserID       string    `json:"userId"`
	Message      string    `json:"message"`
	IsBot        bool      `json:"isBot"`
	CreationTime time.Time `json:"creationTime"`
}
