package store

import (
	"context"

	"github.com/mybiom/biom/internal/model"
)

// Store exposes persistence operations required by services.
// Implementations live under internal/store/<driver>/ (postgres, sqlite).
type Store interface {
	Users() Users
	Attributes() Attributes
	Entries() Entries
	Chat() Chat
	Close() error
}

type Users interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	Get(ctx context.Context, userID string) (*model.User, error)
	List(ctx context.Context) ([]*model.User, error)
}

// Attributes persists the field registry, the append-only history log and the
// current-value projection. Apply registers unseen fields, appends one history
// record per write and advances the projection in a single transaction; either
// every write in the slice is applied or none is.
type Attributes interface {
	Apply(ctx context.Context, userID string, writes []model.AttributeWrite) ([]*model.AttributeRecord, error)
	Field(ctx context.Context, name string) (*model.AttributeField, error)
	Fields(ctx context.Context, names []string) (map[string]*model.AttributeField, error)
	Current(ctx context.Context, userID string) ([]*model.Attribute, error)
	CurrentByName(ctx context.Context, userID, name string) (*model.Attribute, error)
	History(ctx context.Context, userID string) ([]*model.AttributeRecord, error)
	HistoryByName(ctx context.Context, userID, name string) ([]*model.AttributeRecord, error)
}

// Entries is the append-only nutrition log.
type Entries interface {
	Append(ctx context.Context, e *model.NutritionEntry) (*model.NutritionEntry, error)
	List(ctx context.Context, req model.ListEntriesRequest) ([]*model.NutritionEntry, error)
}

type Chat interface {
	Append(ctx context.Context, m *model.ChatMessage) (*model.ChatMessage, error)
	List(ctx context.Context, userID string) ([]*model.ChatMessage, error)
}
