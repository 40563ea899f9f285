package http

import (
	"log/slog"
	"net/http"
	"time"

	"tutorledger/internal/calendar"
)

type suggestionRow struct {
	Title   string
	Start   string
	Student string
	Subject string
	Date    string
}

// handleEvents renders upcoming calendar events matched against the
// roster as ready-to-record lesson suggestions.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	data := struct {
		Enabled     bool
		Suggestions []suggestionRow
	}{Enabled: s.events != nil}

	if s.events != nil {
		from := time.Now().AddDate(0, 0, -7)
		to := time.Now().AddDate(0, 0, 7)
		suggestions, err := calendar.UpcomingSuggestions(
			r.Context(), s.events, s.service.Students(r.Context()), from, to)
		if err != nil {
			slog.ErrorContext(r.Context(), "Calendar suggestions failed", "error", err)
			writeFormErrorText(w, http.StatusBadGateway, "Calendar unavailable")
			return
		}
		for _, sg := range suggestions {
			data.Suggestions = append(data.Suggestions, suggestionRow{
				Title:   sg.Event.Title,
				Start:   sg.Event.Start.Format("2006-01-02 15:04"),
				Student: sg.Student.Name,
				Subject: sg.Subject,
				Date:    sg.Event.Start.Format("2006-01-02"),
			})
		}
	}

	if err := s.templates.ExecuteTemplate(w, "events.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Events template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
