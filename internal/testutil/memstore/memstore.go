// Package memstore is an in-memory implementation of the service store interfaces with the
// same constraints as the PostgreSQL schema: unique (habit, day) completions, cascading
// habit deletes, and one schedule entry per weekday.
package memstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"habitbot/internal/model"
)

// ErrInjected is returned by every method while Fail is set.
var ErrInjected = errors.New("memstore: injected failure")

type Store struct {
	mu          sync.Mutex
	nextHabit   int
	nextDone    int
	nextNote    int
	habits      map[int]model.Habit
	completions map[int]model.Completion
	schedules   map[int]string
	notes       map[int]model.Note

	// Fail makes every call return a store error.
	Fail bool
}

func New() *Store {
	return &Store{
		habits:      map[int]model.Habit{},
		completions: map[int]model.Completion{},
		schedules:   map[int]string{},
		notes:       map[int]model.Note{},
	}
}

func (s *Store) check(op string) error {
	if s.Fail {
		return model.StoreErr(op, ErrInjected)
	}
	return nil
}

// Habits returns a HabitStore view of s.
func (s *Store) Habits() *Habits { return (*Habits)(s) }

// Schedules returns a ScheduleStore view of s.
func (s *Store) Schedules() *Schedules { return (*Schedules)(s) }

// Notes returns a NoteStore view of s.
func (s *Store) Notes() *Notes { return (*Notes)(s) }

// CompletionCount returns the number of completion rows for habitID.
func (s *Store) CompletionCount(habitID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.completions {
		if c.HabitID == habitID {
			n++
		}
	}
	return n
}

// PutNote inserts a note with an explicit id-less creation time, bypassing validation.
func (s *Store) PutNote(content string, createdAt time.Time) int {
	id, _ := s.Notes().Insert(context.Background(), content, createdAt)
	return id
}

type Habits Store

func (h *Habits) Insert(_ context.Context, name string) (int, error) {
	s := (*Store)(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("insert habit"); err != nil {
		return 0, err
	}
	s.nextHabit++
	s.habits[s.nextHabit] = model.Habit{ID: s.nextHabit, Name: name}
	return s.nextHabit, nil
}

func (h *Habits) List(_ context.Context) ([]model.Habit, error) {
	s := (*Store)(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("list habits"); err != nil {
		return nil, err
	}
	out := make([]model.Habit, 0, len(s.habits))
	for _, habit := range s.habits {
		out = append(out, habit)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (h *Habits) Delete(_ context.Context, id int) (bool, error) {
	s := (*Store)(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("delete habit"); err != nil {
		return false, err
	}
	if _, ok := s.habits[id]; !ok {
		return false, nil
	}
	delete(s.habits, id)
	for cid, c := range s.completions {
		if c.HabitID == id {
			delete(s.completions, cid)
		}
	}
	return true, nil
}

func (h *Habits) MarkDone(_ context.Context, habitID int, day time.Time) (bool, error) {
	s := (*Store)(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("mark done"); err != nil {
		return false, err
	}
	if _, ok := s.habits[habitID]; !ok {
		return false, model.NotFound("habit", habitID)
	}
	day = model.DateOf(day)
	for _, c := range s.completions {
		if c.HabitID == habitID && c.DoneDate.Equal(day) {
			return false, nil
		}
	}
	s.nextDone++
	s.completions[s.nextDone] = model.Completion{ID: s.nextDone, HabitID: habitID, DoneDate: day}
	return true, nil
}

func (h *Habits) Summary(_ context.Context, habitID int) (int, *time.Time, error) {
	s := (*Store)(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("habit summary"); err != nil {
		return 0, nil, err
	}
	total := 0
	var last *time.Time
	for _, c := range s.completions {
		if c.HabitID != habitID {
			continue
		}
		total++
		if last == nil || c.DoneDate.After(*last) {
			d := c.DoneDate
			last = &d
		}
	}
	return total, last, nil
}

func (h *Habits) DatesUpTo(_ context.Context, habitID int, until time.Time) ([]time.Time, error) {
	s := (*Store)(h)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("completion dates"); err != nil {
		return nil, err
	}
	until = model.DateOf(until)
	out := []time.Time{}
	for _, c := range s.completions {
		if c.HabitID == habitID && !c.DoneDate.After(until) {
			out = append(out, c.DoneDate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out, nil
}

type Schedules Store

func (sc *Schedules) Upsert(_ context.Context, day int, text string) error {
	s := (*Store)(sc)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("upsert schedule"); err != nil {
		return err
	}
	s.schedules[day] = text
	return nil
}

func (sc *Schedules) Get(_ context.Context, day int) (string, bool, error) {
	s := (*Store)(sc)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("get schedule"); err != nil {
		return "", false, err
	}
	text, ok := s.schedules[day]
	return text, ok, nil
}

func (sc *Schedules) List(_ context.Context) ([]model.ScheduleEntry, error) {
	s := (*Store)(sc)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("list schedules"); err != nil {
		return nil, err
	}
	out := make([]model.ScheduleEntry, 0, len(s.schedules))
	for day, text := range s.schedules {
		out = append(out, model.ScheduleEntry{DayOfWeek: day, Text: text})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

func (sc *Schedules) Delete(_ context.Context, day int) (bool, error) {
	s := (*Store)(sc)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("delete schedule"); err != nil {
		return false, err
	}
	if _, ok := s.schedules[day]; !ok {
		return false, nil
	}
	delete(s.schedules, day)
	return true, nil
}

type Notes Store

func (n *Notes) Insert(_ context.Context, content string, createdAt time.Time) (int, error) {
	s := (*Store)(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("insert note"); err != nil {
		return 0, err
	}
	s.nextNote++
	s.notes[s.nextNote] = model.Note{ID: s.nextNote, Content: content, CreatedAt: createdAt}
	return s.nextNote, nil
}

func (n *Notes) List(_ context.Context) ([]model.Note, error) {
	s := (*Store)(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("list notes"); err != nil {
		return nil, err
	}
	return s.sortedNotes(), nil
}

func (n *Notes) ListContents(_ context.Context) ([]model.Note, error) {
	s := (*Store)(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("list note contents"); err != nil {
		return nil, err
	}
	out := s.sortedNotes()
	for i := range out {
		out[i].CreatedAt = time.Time{}
	}
	return out, nil
}

func (n *Notes) Delete(_ context.Context, id int) (bool, error) {
	s := (*Store)(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("delete note"); err != nil {
		return false, err
	}
	if _, ok := s.notes[id]; !ok {
		return false, nil
	}
	delete(s.notes, id)
	return true, nil
}

func (n *Notes) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s := (*Store)(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check("cleanup notes"); err != nil {
		return 0, err
	}
	var removed int64
	for id, note := range s.notes {
		if note.CreatedAt.Before(cutoff) {
			delete(s.notes, id)
			removed++
		}
	}
	return removed, nil
}

func (s *Store) sortedNotes() []model.Note {
	out := make([]model.Note, 0, len(s.notes))
	for _, note := range s.notes {
		out = append(out, note)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
