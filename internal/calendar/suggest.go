package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tutorledger/internal/core"
)

// Suggestion pairs a calendar event with the student it appears to be a
// lesson for.
type Suggestion struct {
	Event   Event
	Student core.Student
	Subject string
}

// Transaction builds the lesson entry that recording this suggestion
// would add to the ledger, with the student's ID already stamped.
func (s Suggestion) Transaction() core.Transaction {
	return core.Transaction{
		Kind:        core.Lesson,
		Category:    s.Student.Name,
		StudentID:   s.Student.ID,
		Subject:     s.Subject,
		Description: s.Event.Title,
		Date:        core.Date{Time: s.Event.Start},
	}
}

// SuggestLessons matches events against the roster by case-insensitive
// substring. This fuzziness is deliberate for event titles like
// "Lesson w/ Alice (zoom)". It is a suggestion heuristic only: nothing
// here touches balance computation, which joins on exact identity.
func SuggestLessons(events []Event, students []core.Student) []Suggestion {
	var out []Suggestion
	for _, ev := range events {
		title := strings.ToLower(ev.Title)
		for _, st := range students {
			name := strings.ToLower(strings.TrimSpace(st.Name))
			if name == "" || !strings.Contains(title, name) {
				continue
			}
			out = append(out, Suggestion{
				Event:   ev,
				Student: st,
				Subject: pickSubject(title, st),
			})
			break // first roster match wins
		}
	}
	return out
}

// pickSubject prefers a subject mentioned in the title, falling back to
// the student's first subject.
func pickSubject(lowerTitle string, st core.Student) string {
	for _, subj := range st.Subjects {
		if subj != "" && strings.Contains(lowerTitle, strings.ToLower(subj)) {
			return subj
		}
	}
	if len(st.Subjects) > 0 {
		return st.Subjects[0]
	}
	return ""
}

// UpcomingSuggestions lists events in the window and matches them to the
// roster.
func UpcomingSuggestions(ctx context.Context, src EventSource, students []core.Student, from, to time.Time) ([]Suggestion, error) {
	events, err := src.Events(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return SuggestLessons(events, students), nil
}
