package sqlstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mybiom/biom/internal/model"
)

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b) VALUES (?,?) ON CONFLICT (a) DO NOTHING"
	assert.Equal(t, q, SQLite.rebind(q))
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1,$2) ON CONFLICT (a) DO NOTHING", Postgres.rebind(q))
	assert.Equal(t, "SELECT 1", Postgres.rebind("SELECT 1"))
}

func TestWithNumber(t *testing.T) {
	num := withNumber(&model.Attribute{Kind: model.KindNumeric, Value: "72.5"})
	if assert.NotNil(t, num.Number) {
		assert.InDelta(t, 72.5, *num.Number, 1e-9)
	}
	assert.Nil(t, withNumber(&model.Attribute{Kind: model.KindText, Value: "72.5"}).Number)
}
