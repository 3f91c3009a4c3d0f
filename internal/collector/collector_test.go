package collector

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/tabsort/internal/labels"
	"github.com/ppiankov/tabsort/internal/model"
	"github.com/ppiankov/tabsort/internal/store"
)

// memStore implements store.Store in memory and can be told to fail writes
type memStore struct {
	saved     []model.Observation
	recovered bool
	failWrite bool
	writes    int
}

func (m *memStore) Load() (*store.Snapshot, error) {
	out := make([]model.Observation, len(m.saved))
	copy(out, m.saved)
	return &store.Snapshot{Observations: out, Recovered: m.recovered}, nil
}

func (m *memStore) Append(obs model.Observation) error {
	if m.failWrite {
		return errors.New("disk full")
	}
	m.writes++
	m.saved = append(m.saved, obs)
	return nil
}

func (m *memStore) ReplaceAll(obs []model.Observation) error {
	if m.failWrite {
		return errors.New("disk full")
	}
	m.writes++
	m.saved = append([]model.Observation(nil), obs...)
	return nil
}

func (m *memStore) Close() error { return nil }

func fixedClock() func() time.Time {
	t := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newCollector(t *testing.T, s store.Store) *Collector {
	t.Helper()
	c, err := New(s, labels.Default(), WithClock(fixedClock()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func mustAdd(t *testing.T, c *Collector, title, url, content string, category model.Category) model.Observation {
	t.Helper()
	obs, err := c.Add(title, url, content, category)
	if err != nil {
		t.Fatalf("Add(%q): %v", title, err)
	}
	return obs
}

func TestAdd_AutoCategorize(t *testing.T) {
	tests := []struct {
		title, url, content string
		want                model.Category
	}{
		{"Team meeting notes", "docs.google.com/x", "", model.CategoryWork},
		{"Intro to Python", "unknown.example", "this is a tutorial", model.CategoryLearning},
		{"Lofi beats", "https://www.youtube.com/watch?v=1", "", model.CategoryEntertainment},
		{"Weather", "https://weather.example", "sunny", model.CategoryOther},
	}

	c := newCollector(t, &memStore{})
	for _, tt := range tests {
		obs := mustAdd(t, c, tt.title, tt.url, tt.content, "")
		if obs.Category != tt.want {
			t.Errorf("Add(%q, %q): expected %s, got %s", tt.title, tt.url, tt.want, obs.Category)
		}
	}
}

func TestAdd_ExplicitCategory(t *testing.T) {
	c := newCollector(t, &memStore{})

	obs := mustAdd(t, c, "Team meeting notes", "docs.google.com/x", "", " Social ")
	if obs.Category != model.CategorySocial {
		t.Errorf("expected explicit category to win, got %s", obs.Category)
	}

	_, err := c.Add("x", "y", "", "shopping")
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "category" {
		t.Fatalf("expected category ValidationError, got %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("rejected observation must not be recorded")
	}
}

func TestAdd_Validation(t *testing.T) {
	tests := []struct {
		title, url string
		field      string
	}{
		{"", "https://example.com", "title"},
		{"   ", "https://example.com", "title"},
		{"Title", "", "url"},
		{"Title", " \t", "url"},
	}

	s := &memStore{}
	c := newCollector(t, s)
	for _, tt := range tests {
		_, err := c.Add(tt.title, tt.url, "content", "")
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("Add(%q, %q): expected ValidationError, got %v", tt.title, tt.url, err)
		}
		if verr.Field != tt.field {
			t.Errorf("Add(%q, %q): expected field %s, got %s", tt.title, tt.url, tt.field, verr.Field)
		}
	}
	if c.Len() != 0 || s.writes != 0 {
		t.Errorf("invalid input must not create records (len=%d, writes=%d)", c.Len(), s.writes)
	}
}

func TestAdd_TruncatesContent(t *testing.T) {
	c := newCollector(t, &memStore{})

	long := strings.Repeat("é", model.MaxContentChars+50)
	obs := mustAdd(t, c, "t", "u", long, model.CategoryOther)
	if got := len([]rune(obs.Content)); got != model.MaxContentChars {
		t.Errorf("expected %d characters, got %d", model.MaxContentChars, got)
	}

	short := mustAdd(t, c, "t", "u", "short", model.CategoryOther)
	if short.Content != "short" {
		t.Errorf("short content changed: %q", short.Content)
	}
}

func TestAdd_Timestamp(t *testing.T) {
	c := newCollector(t, &memStore{})
	obs := mustAdd(t, c, "t", "u", "", model.CategoryOther)
	if obs.Timestamp != "2024-05-01T10:01:00Z" {
		t.Errorf("unexpected timestamp %q", obs.Timestamp)
	}
}

func TestAdd_PersistFailure(t *testing.T) {
	s := &memStore{failWrite: true}
	c := newCollector(t, s)

	if _, err := c.Add("t", "u", "", model.CategoryWork); err == nil {
		t.Fatal("expected persist error")
	}
	if c.Len() != 0 {
		t.Errorf("failed persist must not be committed in memory, len=%d", c.Len())
	}
}

func TestMutations_PersistFailure(t *testing.T) {
	s := &memStore{}
	c := newCollector(t, s)
	mustAdd(t, c, "a", "u", "", model.CategoryWork)
	mustAdd(t, c, "b", "u", "", model.CategorySocial)
	before := c.Observations()

	s.failWrite = true

	if ok, err := c.Remove(0); err == nil || ok {
		t.Errorf("Remove: expected error, got ok=%v err=%v", ok, err)
	}
	title := "changed"
	if ok, err := c.Update(0, model.ObservationUpdate{Title: &title}); err == nil || ok {
		t.Errorf("Update: expected error, got ok=%v err=%v", ok, err)
	}
	if err := c.Clear(); err == nil {
		t.Error("Clear: expected error")
	}

	if !reflect.DeepEqual(c.Observations(), before) {
		t.Errorf("dataset changed after failed writes: %+v", c.Observations())
	}
}

func TestStatistics(t *testing.T) {
	c := newCollector(t, &memStore{})

	stats := c.Statistics()
	if stats.Total != 0 || len(stats.Categories) != 0 || stats.LatestUpdate != nil {
		t.Errorf("unexpected stats for empty dataset: %+v", stats)
	}

	mustAdd(t, c, "a", "u", "", model.CategoryWork)
	mustAdd(t, c, "b", "u", "", model.CategoryWork)
	last := mustAdd(t, c, "c", "u", "", model.CategorySocial)

	stats = c.Statistics()
	if stats.Total != c.Len() {
		t.Errorf("total %d != len %d", stats.Total, c.Len())
	}
	sum := 0
	for _, n := range stats.Categories {
		sum += n
	}
	if sum != stats.Total {
		t.Errorf("category counts sum to %d, total is %d", sum, stats.Total)
	}
	if stats.Categories[model.CategoryWork] != 2 || stats.Categories[model.CategorySocial] != 1 {
		t.Errorf("unexpected histogram %v", stats.Categories)
	}
	if stats.LatestUpdate == nil || *stats.LatestUpdate != last.Timestamp {
		t.Errorf("expected latest %s, got %v", last.Timestamp, stats.LatestUpdate)
	}
}

func TestStatistics_ChronologicalOrder(t *testing.T) {
	s := &memStore{saved: []model.Observation{
		// Lexically larger but earlier in time
		{Title: "a", Category: model.CategoryWork, Timestamp: "2024-05-01T12:00:00+05:00"},
		{Title: "b", Category: model.CategoryWork, Timestamp: "2024-05-01T08:00:00Z"},
		{Title: "c", Category: model.CategoryOther, Timestamp: "not a time"},
		{Title: "d", Category: model.CategoryOther, Timestamp: "2024-04-30T23:59:59.123456"},
	}}
	c := newCollector(t, s)

	stats := c.Statistics()
	if stats.LatestUpdate == nil || *stats.LatestUpdate != "2024-05-01T08:00:00Z" {
		t.Errorf("expected chronological maximum, got %v", stats.LatestUpdate)
	}
	if stats.Total != 4 || stats.Categories[model.CategoryOther] != 2 {
		t.Errorf("unparseable timestamps must still be counted: %+v", stats)
	}
}

func TestTrainingData(t *testing.T) {
	c := newCollector(t, &memStore{})
	mustAdd(t, c, "Intro to Python", "unknown.example", "this is a tutorial", "")
	mustAdd(t, c, "Chat", "u", "", model.CategorySocial)

	want := []model.TrainingExample{
		{Text: "Intro to Python - this is a tutorial", Label: model.CategoryLearning},
		{Text: "Chat - ", Label: model.CategorySocial},
	}

	for i := 0; i < 2; i++ {
		if got := c.TrainingData(); !reflect.DeepEqual(got, want) {
			t.Errorf("call %d: expected %+v, got %+v", i, want, got)
		}
	}
}

func TestRemove(t *testing.T) {
	c := newCollector(t, &memStore{})
	mustAdd(t, c, "a", "u", "", model.CategoryWork)
	mustAdd(t, c, "b", "u", "", model.CategoryWork)
	mustAdd(t, c, "c", "u", "", model.CategoryWork)

	for _, idx := range []int{-1, 3, 100} {
		before := c.Observations()
		ok, err := c.Remove(idx)
		if ok || err != nil {
			t.Errorf("Remove(%d): expected false, nil; got %v, %v", idx, ok, err)
		}
		if !reflect.DeepEqual(before, c.Observations()) {
			t.Errorf("Remove(%d) changed the dataset", idx)
		}
	}

	ok, err := c.Remove(1)
	if !ok || err != nil {
		t.Fatalf("Remove(1): %v, %v", ok, err)
	}
	obs := c.Observations()
	if len(obs) != 2 || obs[0].Title != "a" || obs[1].Title != "c" {
		t.Errorf("unexpected dataset after remove: %+v", obs)
	}
}

func TestUpdate(t *testing.T) {
	c := newCollector(t, &memStore{})
	orig := mustAdd(t, c, "a", "u", "content", model.CategoryWork)

	title := "renamed"
	category := model.Category("not-a-category")
	ok, err := c.Update(0, model.ObservationUpdate{Title: &title, Category: &category})
	if !ok || err != nil {
		t.Fatalf("Update: %v, %v", ok, err)
	}

	got := c.Observations()[0]
	if got.Title != "renamed" || got.Category != category {
		t.Errorf("update not applied: %+v", got)
	}
	if got.URL != orig.URL || got.Content != orig.Content || got.Timestamp != orig.Timestamp {
		t.Errorf("unset fields changed: %+v", got)
	}

	if ok, err := c.Update(5, model.ObservationUpdate{Title: &title}); ok || err != nil {
		t.Errorf("Update out of range: expected false, nil; got %v, %v", ok, err)
	}
}

func TestClear_Idempotent(t *testing.T) {
	c := newCollector(t, &memStore{})
	mustAdd(t, c, "a", "u", "", model.CategoryWork)

	for i := 0; i < 2; i++ {
		if err := c.Clear(); err != nil {
			t.Fatalf("Clear: %v", err)
		}
		if c.Len() != 0 {
			t.Errorf("expected empty dataset after clear %d", i+1)
		}
		stats := c.Statistics()
		if stats.Total != 0 || len(stats.Categories) != 0 || stats.LatestUpdate != nil {
			t.Errorf("unexpected stats after clear: %+v", stats)
		}
	}
}

func TestReload_RoundTrip(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			cfg := model.StoreConfig{Backend: backend, Path: filepath.Join(t.TempDir(), "tabs.data")}

			s, err := store.Open(cfg)
			if err != nil {
				t.Fatal(err)
			}
			c := newCollector(t, s)
			mustAdd(t, c, "Team meeting notes", "docs.google.com/x", "", "")
			mustAdd(t, c, "Intro to Python", "unknown.example", "this is a tutorial", "")
			mustAdd(t, c, "Café ☕", "https://example.com/<x>", "naïve", model.CategoryOther)
			want := c.Observations()
			_ = s.Close()

			s2, err := store.Open(cfg)
			if err != nil {
				t.Fatal(err)
			}
			defer func() { _ = s2.Close() }()

			reloaded := newCollector(t, s2)
			if !reflect.DeepEqual(reloaded.Observations(), want) {
				t.Errorf("reload mismatch:\n got %+v\nwant %+v", reloaded.Observations(), want)
			}
			if reloaded.Recovered() {
				t.Error("clean dataset reported as recovered")
			}
		})
	}
}

func TestNew_Recovered(t *testing.T) {
	c := newCollector(t, &memStore{recovered: true})
	if !c.Recovered() || c.Len() != 0 {
		t.Errorf("expected recovered empty collector")
	}
}

func TestParseTimestamp(t *testing.T) {
	valid := []string{
		"2024-05-01T10:00:00Z",
		"2024-05-01T10:00:00.123456789+02:00",
		"2024-05-01T10:00:00.123456",
		"2024-05-01T10:00:00",
		"2024-05-01",
	}
	for _, s := range valid {
		if _, err := ParseTimestamp(s); err != nil {
			t.Errorf("ParseTimestamp(%q): %v", s, err)
		}
	}
	if _, err := ParseTimestamp("yesterday"); err == nil {
		t.Error("expected error for free text")
	}
}
