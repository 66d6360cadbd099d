package validate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// userIDRx admits UUIDs and simple slugs; identifiers stay opaque beyond this.
var userIDRx = regexp.MustCompile(`^[A-Za-z0-9_.@:\-]{1,128}$`)

const (
	dateLayout = "2006-01-02"
	maxNameLen = 100
	maxFoodLen = 200
	maxChatLen = 8000
)

func UserID(v string) error {
	if v == "" {
		return fmt.Errorf("userId is required")
	}
	if !userIDRx.MatchString(v) {
		return fmt.Errorf("userId must be 1-128 characters of letters, digits, '_', '.', '@', ':' or '-'")
	}
	return nil
}

// Date accepts an empty string (meaning today) or YYYY-MM-DD.
func Date(v string) error {
	if v == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, v); err != nil {
		return fmt.Errorf("date must be YYYY-MM-DD")
	}
	return nil
}

// Days parses the ?days= window. Empty means the server default (0).
func Days(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("days must be a positive integer")
	}
	return n, nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

func IsJSONObject(val interface{}) error {
	switch v := val.(type) {
	case map[string]interface{}:
		return nil
	case json.RawMessage:
		var m map[string]interface{}
		if err := json.Unmarshal(v, &m); err == nil && m != nil {
			return nil
		}
	}
	return fmt.Errorf("must be JSON object")
}

// -------- Request specific helpers ----------

func CreateUser(userID, name string) error {
	if userID != "" {
		if err := UserID(userID); err != nil {
			return err
		}
	}
	return MaxLen("name", &name, maxNameLen)
}

func Entry(foodItem *string) error {
	return MaxLen("foodItem", foodItem, maxFoodLen)
}

func ChatMessage(msg string) error {
	if err := NonEmpty("message", msg); err != nil {
		return err
	}
	return MaxLen("message", &msg, maxChatLen)
}
