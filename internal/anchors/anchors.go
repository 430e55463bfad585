// Package anchors оценивает дату регистрации по опорным точкам (id → дата).
package anchors

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"
	"time"
)

const (
	FirstYear   = 2013
	MinUserID   = int64(1000)
	MaxUserID   = int64(2000000000) // примерно верхняя граница user_id
	DefaultFile = "anchors.json"
)

var ErrNotEnoughAnchors = errors.New("anchors: need at least two anchors")

// Anchor опорная точка: id и дата, когда такие id выдавались
type Anchor struct {
	ID int64     `json:"id"`
	TS time.Time `json:"ts"`
}

// Generate строит якоря с 2013 года по текущий (по одному на год)
// плюс последний якорь MaxUserID → now.
func Generate(now time.Time) []Anchor {
	now = now.UTC()
	years := now.Year() - FirstYear + 1
	if years < 1 {
		years = 1
	}
	step := (MaxUserID - MinUserID) / int64(years)

	out := make([]Anchor, 0, years+1)
	for i := 0; i < years; i++ {
		out = append(out, Anchor{
			ID: MinUserID + int64(i)*step,
			TS: time.Date(FirstYear+i, time.January, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	out = append(out, Anchor{ID: MaxUserID, TS: now})
	return out
}

// Table отсортированная по id таблица якорей
type Table []Anchor

// NewTable копирует и сортирует якоря
func NewTable(in []Anchor) Table {
	t := make(Table, len(in))
	copy(t, in)
	for i := range t {
		t[i].TS = t[i].TS.UTC()
	}
	sort.SliceStable(t, func(i, j int) bool { return t[i].ID < t[j].ID })
	return t
}

// Estimate интерполирует (или экстраполирует) дату для id
func (t Table) Estimate(id int64) (time.Time, string, error) {
	if len(t) < 2 {
		return time.Time{}, "", ErrNotEnoughAnchors
	}

	for _, a := range t {
		if a.ID == id {
			return a.TS, "Exact anchor match", nil
		}
	}

	if id < t[0].ID {
		lo, hi := t[0], t[1]
		return project(lo.TS, hi.TS, fraction(id-lo.ID, hi.ID-lo.ID)),
			"Extrapolated before first anchor (low confidence)", nil
	}

	last := len(t) - 1
	if id > t[last].ID {
		lo, hi := t[last-1], t[last]
		return project(hi.TS, hi.TS.Add(hi.TS.Sub(lo.TS)), fraction(id-hi.ID, hi.ID-lo.ID)),
			"Extrapolated after last anchor (low confidence)", nil
	}

	lo, hi := t[0], t[last]
	for i := 0; i < last; i++ {
		if t[i].ID <= id && id <= t[i+1].ID {
			lo, hi = t[i], t[i+1]
			break
		}
	}
	return project(lo.TS, hi.TS, fraction(id-lo.ID, hi.ID-lo.ID)),
		fmt.Sprintf("Interpolated between %d and %d", lo.ID, hi.ID), nil
}

func fraction(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// project возвращает from + (to-from)*frac
func project(from, to time.Time, frac float64) time.Time {
	d := float64(to.Sub(from)) * frac
	switch {
	case d > math.MaxInt64:
		d = math.MaxInt64
	case d < math.MinInt64:
		d = math.MinInt64
	}
	return from.Add(time.Duration(d))
}

// Store хранит таблицу в памяти и в json-файле
type Store struct {
	path string

	mu    sync.RWMutex
	table Table
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultFile
	}
	return &Store{path: path}
}

// Ensure пересоздаёт файл якорей на момент now и перечитывает его
func (s *Store) Ensure(now time.Time) (Table, error) {
	data, err := json.MarshalIndent(Generate(now), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal anchors: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", s.path, err)
	}
	return s.Load()
}

// Load читает файл якорей и делает его текущей таблицей
func (s *Store) Load() (Table, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var raw []Anchor
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", s.path, err)
	}
	table := NewTable(raw)

	s.mu.Lock()
	s.table = table
	s.mu.Unlock()
	return table, nil
}

// Table текущая таблица (nil до первого Ensure/Load)
func (s *Store) Table() Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Estimate оценка по текущей таблице
func (s *Store) Estimate(id int64) (time.Time, string, error) {
	return s.Table().Estimate(id)
}
