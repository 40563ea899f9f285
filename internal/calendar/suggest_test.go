package calendar

import (
	"context"
	"errors"
	"testing"
	"time"

	"tutorledger/internal/core"
)

func roster() []core.Student {
	return []core.Student{
		{ID: "1", Name: "Alice", Subjects: []string{"math", "physics"}},
		{ID: "2", Name: "Bob", Subjects: []string{"english"}},
	}
}

func TestSuggestLessons(t *testing.T) {
	start := time.Date(2024, 9, 3, 15, 0, 0, 0, time.UTC)
	events := []Event{
		{ID: "a", Title: "Physics lesson w/ Alice (zoom)", Start: start},
		{ID: "b", Title: "bob - english", Start: start.Add(time.Hour)},
		{ID: "c", Title: "Dentist", Start: start.Add(2 * time.Hour)},
	}

	got := SuggestLessons(events, roster())
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d: %+v", len(got), got)
	}
	if got[0].Student.ID != "1" || got[0].Subject != "physics" {
		t.Fatalf("first suggestion = %+v", got[0])
	}
	if got[1].Student.ID != "2" || got[1].Subject != "english" {
		t.Fatalf("second suggestion = %+v", got[1])
	}
}

func TestSuggestLessonsSubjectFallback(t *testing.T) {
	events := []Event{{Title: "Alice weekly slot", Start: time.Now()}}
	got := SuggestLessons(events, roster())
	if len(got) != 1 || got[0].Subject != "math" {
		t.Fatalf("expected fallback to first subject, got %+v", got)
	}
}

func TestSuggestionTransaction(t *testing.T) {
	start := time.Date(2024, 9, 3, 15, 0, 0, 0, time.UTC)
	s := Suggestion{
		Event:   Event{Title: "math with Alice", Start: start},
		Student: core.Student{ID: "1", Name: "Alice"},
		Subject: "math",
	}

	tx := s.Transaction()
	if tx.Kind != core.Lesson || tx.StudentID != "1" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if err := tx.Validate(); err != nil {
		t.Fatalf("suggested transaction should validate: %v", err)
	}
	if tx.Date.ISO() != "2024-09-03" {
		t.Fatalf("date = %s", tx.Date.ISO())
	}
}

type stubSource struct {
	events []Event
	err    error
}

func (s stubSource) Events(context.Context, time.Time, time.Time) ([]Event, error) {
	return s.events, s.err
}

func TestUpcomingSuggestions(t *testing.T) {
	src := stubSource{events: []Event{{Title: "Alice", Start: time.Now()}}}
	got, err := UpcomingSuggestions(context.Background(), src, roster(), time.Now(), time.Now().Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 suggestion, got %d", len(got))
	}

	broken := stubSource{err: errors.New("upstream")}
	if _, err := UpcomingSuggestions(context.Background(), broken, roster(), time.Now(), time.Now()); err == nil {
		t.Fatal("expected error from source")
	}
}
