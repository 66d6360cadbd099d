// Package sqlstore implements store.Store on database/sql. The postgres and
// sqlite packages open the connection, apply their schema and pick a Dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mybiom/biom/internal/model"
	"github.com/mybiom/biom/internal/store"
)

// Dialect adapts the shared queries to a driver. Queries are written with '?' placeholders.
type Dialect struct {
	Name       string
	Positional bool // rewrite '?' to $1..$n
}

var (
	Postgres = Dialect{Name: "postgres", Positional: true}
	SQLite   = Dialect{Name: "sqlite"}
)

func (d Dialect) rebind(q string) string {
	if !d.Positional {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source used for creation and record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is a store.Store over a *sql.DB.
type Store struct {
	db  *sql.DB
	d   Dialect
	now func() time.Time
}

// New wraps an open connection.
func New(db *sql.DB, d Dialect, opts ...Option) *Store {
	s := &Store{db: db, d: d, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Users() store.Users           { return &users{s} }
func (s *Store) Attributes() store.Attributes { return &attributes{s} }
func (s *Store) Entries() store.Entries       { return &entries{s} }
func (s *Store) Chat() store.Chat             { return &chat{s} }

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying connection.
func (s *Store) DB() *sql.DB { return s.db }

// HealthPing implements health.HealthPinger.
func (s *Store) HealthPing(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) q(query string) string { return s.d.rebind(query) }

func (s *Store) clock() time.Time { return s.now().UTC() }

// --- Users ---
type users struct{ s *Store }

func (u *users) Create(ctx context.Context, m *model.User) (*model.User, error) {
	id := m.UserID
	if id == "" {
		id = uuid.New().String()
	}
	created := u.s.clock()
	res, err := u.s.db.ExecContext(ctx, u.s.q(`
        INSERT INTO users (user_id, name, creation_time)
        VALUES (?,?,?)
        ON CONFLICT (user_id) DO NOTHING
    `), id, m.Name, created)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, model.NewConflictError("userId", fmt.Sprintf("user %s already exists", id))
	}
	return &model.User{UserID: id, Name: m.Name, CreationTime: created}, nil
}

func (u *users) Get(ctx context.Context, userID string) (*model.User, error) {
	out := model.User{UserID: userID}
	row := u.s.db.QueryRowContext(ctx, u.s.q(`SELECT name, creation_time FROM users WHERE user_id=?`), userID)
	if err := row.Scan(&out.Name, &out.CreationTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NewNotFoundError("userId", userID)
		}
		return nil, err
	}
	return &out, nil
}

func (u *users) List(ctx context.Context) ([]*model.User, error) {
	rows, err := u.s.db.QueryContext(ctx, `SELECT user_id, name, creation_time FROM users ORDER BY creation_time, user_id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []*model.User{}
	for rows.Next() {
		var m model.User
		if err := rows.Scan(&m.UserID, &m.Name, &m.CreationTime); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Attributes ---
type attributes struct{ s *Store }

func (a *attributes) Apply(ctx context.Context, userID string, writes []model.AttributeWrite) ([]*model.AttributeRecord, error) {
	if len(writes) == 0 {
		return []*model.AttributeRecord{}, nil
	}
	// Sorted so concurrent batches take row locks in the same order.
	ordered := make([]model.AttributeWrite, len(writes))
	copy(ordered, writes)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	tx, err := a.s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	recordedAt := a.s.clock()
	out := make([]*model.AttributeRecord, 0, len(ordered))
	for _, w := range ordered {
		w, err := a.register(ctx, tx, w, recordedAt)
		if err != nil {
			return nil, err
		}
		kind := w.Kind

		rec := &model.AttributeRecord{UserID: userID, Name: w.Name, Value: w.Value, Kind: kind, RecordedAt: recordedAt}
		if err := tx.QueryRowContext(ctx, a.s.q(`
            INSERT INTO attribute_history (user_id, name, value, kind, recorded_at)
            VALUES (?,?,?,?,?)
            RETURNING record_id
        `), userID, w.Name, w.Value, string(kind), recordedAt).Scan(&rec.RecordID); err != nil {
			return nil, fmt.Errorf("append history %q: %w", w.Name, err)
		}

		if _, err := tx.ExecContext(ctx, a.s.q(`
            INSERT INTO attribute_current (user_id, name, value, kind, record_id, recorded_at)
            VALUES (?,?,?,?,?,?)
            ON CONFLICT (user_id, name) DO UPDATE SET
                value = excluded.value,
                kind = excluded.kind,
                record_id = excluded.record_id,
                recorded_at = excluded.recorded_at
            WHERE (attribute_current.recorded_at, attribute_current.record_id) < (excluded.recorded_at, excluded.record_id)
        `), userID, w.Name, w.Value, string(kind), rec.RecordID, recordedAt); err != nil {
			return nil, fmt.Errorf("project current %q: %w", w.Name, err)
		}
		out = append(out, rec)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// register makes w.Name storable if it is new and returns w as it must be
// stored under the field's registered kind.
func (a *attributes) register(ctx context.Context, tx *sql.Tx, w model.AttributeWrite, at time.Time) (model.AttributeWrite, error) {
	if _, err := tx.ExecContext(ctx, a.s.q(`
        INSERT INTO attribute_fields (name, kind, creation_time)
        VALUES (?,?,?)
        ON CONFLICT (name) DO NOTHING
    `), w.Name, string(w.Kind), at); err != nil {
		return w, fmt.Errorf("register field %q: %w", w.Name, err)
	}
	var registered string
	if err := tx.QueryRowContext(ctx, a.s.q(`SELECT kind FROM attribute_fields WHERE name=?`), w.Name).Scan(&registered); err != nil {
		return w, fmt.Errorf("read field %q: %w", w.Name, err)
	}
	if model.AttributeKind(registered) != model.KindNumeric {
		w.Kind = model.KindText
		return w, nil
	}
	if w.Kind != model.KindNumeric {
		v, ok := model.CanonicalNumber(w.Value)
		if !ok {
			return w, model.NewValidationError(w.Name, fmt.Sprintf("value %q is not numeric", w.Value))
		}
		w.Value, w.Kind = v, model.KindNumeric
	}
	return w, nil
}

func (a *attributes) Field(ctx context.Context, name string) (*model.AttributeField, error) {
	f := model.AttributeField{Name: name}
	var kind string
	row := a.s.db.QueryRowContext(ctx, a.s.q(`SELECT kind, creation_time FROM attribute_fields WHERE name=?`), name)
	if err := row.Scan(&kind, &f.CreationTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NewNotFoundError("attribute", name)
		}
		return nil, err
	}
	f.Kind = model.AttributeKind(kind)
	return &f, nil
}

func (a *attributes) Fields(ctx context.Context, names []string) (map[string]*model.AttributeField, error) {
	out := make(map[string]*model.AttributeField, len(names))
	if len(names) == 0 {
		return out, nil
	}
	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}
	query := `SELECT name, kind, creation_time FROM attribute_fields WHERE name IN (?` + strings.Repeat(",?", len(names)-1) + `)`
	rows, err := a.s.db.QueryContext(ctx, a.s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var f model.AttributeField
		var kind string
		if err := rows.Scan(&f.Name, &kind, &f.CreationTime); err != nil {
			return nil, err
		}
		f.Kind = model.AttributeKind(kind)
		out[f.Name] = &f
	}
	return out, rows.Err()
}

func (a *attributes) Current(ctx context.Context, userID string) ([]*model.Attribute, error) {
	rows, err := a.s.db.QueryContext(ctx, a.s.q(`
        SELECT name, value, kind, record_id, recorded_at
        FROM attribute_current WHERE user_id=? ORDER BY name
    `), userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []*model.Attribute{}
	for rows.Next() {
		at := model.Attribute{UserID: userID}
		var kind string
		if err := rows.Scan(&at.Name, &at.Value, &kind, &at.RecordID, &at.RecordedAt); err != nil {
			return nil, err
		}
		at.Kind = model.AttributeKind(kind)
		out = append(out, withNumber(&at))
	}
	return out, rows.Err()
}

func (a *attributes) CurrentByName(ctx context.Context, userID, name string) (*model.Attribute, error) {
	at := model.Attribute{UserID: userID, Name: name}
	var kind string
	row := a.s.db.QueryRowContext(ctx, a.s.q(`
        SELECT value, kind, record_id, recorded_at
        FROM attribute_current WHERE user_id=? AND name=?
    `), userID, name)
	if err := row.Scan(&at.Value, &kind, &at.RecordID, &at.RecordedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NewNotFoundError("attribute", name)
		}
		return nil, err
	}
	at.Kind = model.AttributeKind(kind)
	return withNumber(&at), nil
}

func (a *attributes) History(ctx context.Context, userID string) ([]*model.AttributeRecord, error) {
	return a.history(ctx, `
        SELECT record_id, user_id, name, value, kind, recorded_at
        FROM attribute_history WHERE user_id=?
        ORDER BY recorded_at, record_id
    `, userID)
}

func (a *attributes) HistoryByName(ctx context.Context, userID, name string) ([]*model.AttributeRecord, error) {
	return a.history(ctx, `
        SELECT record_id, user_id, name, value, kind, recorded_at
        FROM attribute_history WHERE user_id=? AND name=?
        ORDER BY recorded_at, record_id
    `, userID, name)
}

func (a *attributes) history(ctx context.Context, query string, args ...interface{}) ([]*model.AttributeRecord, error) {
	rows, err := a.s.db.QueryContext(ctx, a.s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []*model.AttributeRecord{}
	for rows.Next() {
		var r model.AttributeRecord
		var kind string
		if err := rows.Scan(&r.RecordID, &r.UserID, &r.Name, &r.Value, &kind, &r.RecordedAt); err != nil {
			return nil, err
		}
		r.Kind = model.AttributeKind(kind)
		out = append(out, &r)
	}
	return out, rows.Err()
}

func withNumber(a *model.Attribute) *model.Attribute {
	if a.Kind != model.KindNumeric {
		return a
	}
	if f, err := strconv.ParseFloat(a.Value, 64); err == nil {
		a.Number = &f
	}
	return a
}

// --- Entries ---
type entries struct{ s *Store }

func (e *entries) Append(ctx context.Context, ne *model.NutritionEntry) (*model.NutritionEntry, error) {
	out := *ne
	if out.EntryID == "" {
		out.EntryID = uuid.New().String()
	}
	if out.RecordedAt.IsZero() {
		out.RecordedAt = e.s.clock()
	}
	out.RecordedAt = out.RecordedAt.UTC()
	if _, err := e.s.db.ExecContext(ctx, e.s.q(`
        INSERT INTO nutrition_entries (entry_id, user_id, food_item, recorded_at, calories, protein, carbs)
        VALUES (?,?,?,?,?,?,?)
    `), out.EntryID, out.UserID, nullString(out.FoodItem), out.RecordedAt,
		nullFloat(out.Calories), nullFloat(out.Protein), nullFloat(out.Carbs)); err != nil {
		return nil, err
	}
	return &out, nil
}

func (e *entries) List(ctx context.Context, req model.ListEntriesRequest) ([]*model.NutritionEntry, error) {
	query := `SELECT entry_id, user_id, food_item, recorded_at, calories, protein, carbs
              FROM nutrition_entries WHERE user_id=?`
	args := []interface{}{req.UserID}
	if req.From != nil {
		query += " AND recorded_at >= ?"
		args = append(args, req.From.UTC())
	}
	if req.To != nil {
		query += " AND recorded_at < ?"
		args = append(args, req.To.UTC())
	}
	query += " ORDER BY recorded_at, entry_id"

	rows, err := e.s.db.QueryContext(ctx, e.s.q(query), args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []*model.NutritionEntry{}
	for rows.Next() {
		var m model.NutritionEntry
		var food sql.NullString
		var cals, protein, carbs sql.NullFloat64
		if err := rows.Scan(&m.EntryID, &m.UserID, &food, &m.RecordedAt, &cals, &protein, &carbs); err != nil {
			return nil, err
		}
		if food.Valid {
			m.FoodItem = &food.String
		}
		m.Calories = floatPtr(cals)
		m.Protein = floatPtr(protein)
		m.Carbs = floatPtr(carbs)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// --- Chat ---
type chat struct{ s *Store }

func (c *chat) Append(ctx context.Context, m *model.ChatMessage) (*model.ChatMessage, error) {
	out := *m
	out.CreationTime = c.s.clock()
	if err := c.s.db.QueryRowContext(ctx, c.s.q(`
        INSERT INTO chat_messages (user_id, message, is_bot, creation_time)
        VALUES (?,?,?,?)
        RETURNING message_id
    `), out.UserID, out.Message, out.IsBot, out.CreationTime).Scan(&out.MessageID); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *chat) List(ctx context.Context, userID string) ([]*model.ChatMessage, error) {
	rows, err := c.s.db.QueryContext(ctx, c.s.q(`
        SELECT message_id, message, is_bot, creation_time
        FROM chat_messages WHERE user_id=? ORDER BY creation_time, message_id
    `), userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := []*model.ChatMessage{}
	for rows.Next() {
		m := model.ChatMessage{UserID: userID}
		if err := rows.Scan(&m.MessageID, &m.Message, &m.IsBot, &m.CreationTime); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func floatPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}
