package anchors

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

func TestGenerate(t *testing.T) {
	got := Generate(testNow)

	// 2013..2024 = 12 лет + якорь "сейчас"
	require.Len(t, got, 13)
	step := (MaxUserID - MinUserID) / 12

	assert.Equal(t, MinUserID, got[0].ID)
	assert.Equal(t, time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC), got[0].TS)
	assert.Equal(t, MinUserID+11*step, got[11].ID)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), got[11].TS)
	assert.Equal(t, MaxUserID, got[12].ID)
	assert.Equal(t, testNow, got[12].TS)
}

func TestTable_EstimateExact(t *testing.T) {
	table := NewTable(Generate(testNow))

	ts, expl, err := table.Estimate(MinUserID)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC), ts)
	assert.Equal(t, "Exact anchor match", expl)
}

func TestTable_EstimateInterpolate(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)
	table := NewTable([]Anchor{{ID: 300, TS: t1}, {ID: 100, TS: t0}})

	ts, expl, err := table.Estimate(200)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC), ts)
	assert.Equal(t, "Interpolated between 100 and 300", expl)
}

func TestTable_EstimateExtrapolate(t *testing.T) {
	t0 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t1 := time.Date(2020, 1, 11, 0, 0, 0, 0, time.UTC)
	table := NewTable([]Anchor{{ID: 100, TS: t0}, {ID: 200, TS: t1}})

	ts, expl, err := table.Estimate(50)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 12, 27, 0, 0, 0, 0, time.UTC), ts)
	assert.Equal(t, "Extrapolated before first anchor (low confidence)", expl)

	ts, expl, err = table.Estimate(300)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 21, 0, 0, 0, 0, time.UTC), ts)
	assert.Equal(t, "Extrapolated after last anchor (low confidence)", expl)
}

func TestTable_EstimateDegenerate(t *testing.T) {
	_, _, err := Table{}.Estimate(1)
	assert.ErrorIs(t, err, ErrNotEnoughAnchors)

	_, _, err = NewTable([]Anchor{{ID: 1, TS: testNow}}).Estimate(1)
	assert.ErrorIs(t, err, ErrNotEnoughAnchors)

	// одинаковые id: нулевой отрезок, доля 0
	same := NewTable([]Anchor{{ID: 10, TS: testNow}, {ID: 10, TS: testNow.Add(time.Hour)}})
	ts, _, err := same.Estimate(20)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour), ts)
}

func TestStore_EnsureWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anchors.json")
	store := NewStore(path)
	assert.Nil(t, store.Table())

	table, err := store.Ensure(testNow)
	require.NoError(t, err)
	require.Len(t, table, 13)
	assert.Equal(t, table, store.Table())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw []map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, 13)
	assert.Equal(t, "2013-01-01T00:00:00Z", raw[0]["ts"])
	assert.Contains(t, string(data), "\n  {")

	ts, _, err := store.Estimate(MaxUserID)
	require.NoError(t, err)
	assert.Equal(t, testNow, ts)
}

func TestStore_LoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := NewStore(filepath.Join(dir, "missing.json")).Load()
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{nope"), 0o644))
	_, err = NewStore(bad).Load()
	assert.Error(t, err)
}
