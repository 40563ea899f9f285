package http

import (
	"log/slog"
	"net/http"
	"strings"

	"tutorledger/internal/core"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	t, ok := s.transactionFromForm(w, r)
	if !ok {
		return
	}

	id, err := s.service.AddTransaction(r.Context(), t)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create transaction failed", "error", err)
		writeFormError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.invalidateCaches()

	slog.InfoContext(r.Context(), "Transaction created", "id", id, "kind", t.Kind)
	writeFormSuccess(w, "Recorded.")
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	t, ok := s.transactionFromForm(w, r)
	if !ok {
		return
	}
	t.ID = strings.TrimSpace(r.Form.Get("id"))
	if t.ID == "" {
		writeFormErrorText(w, http.StatusBadRequest, "Missing transaction id")
		return
	}

	if err := s.service.UpdateTransaction(r.Context(), t); err != nil {
		slog.ErrorContext(r.Context(), "Update transaction failed", "error", err, "id", t.ID)
		writeFormError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.invalidateCaches()

	writeFormSuccess(w, "Updated.")
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeFormErrorText(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	id := strings.TrimSpace(r.Form.Get("id"))
	if id == "" {
		writeFormErrorText(w, http.StatusBadRequest, "Missing transaction id")
		return
	}

	if err := s.service.RemoveTransaction(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Delete transaction failed", "error", err, "id", id)
		writeFormError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.invalidateCaches()

	writeFormSuccess(w, "Deleted.")
}

// transactionFromForm builds a transaction from the submitted form. It
// writes the error response itself and returns ok=false on bad input.
func (s *Server) transactionFromForm(w http.ResponseWriter, r *http.Request) (core.Transaction, bool) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		writeFormErrorText(w, http.StatusBadRequest, "Invalid request format")
		return core.Transaction{}, false
	}

	date, err := formDate(r)
	if err != nil {
		writeFormErrorText(w, http.StatusUnprocessableEntity, "Invalid date")
		return core.Transaction{}, false
	}

	t := core.Transaction{
		Kind:        core.Kind(strings.TrimSpace(r.Form.Get("kind"))),
		Category:    sanitizeInput(r.Form.Get("category")),
		StudentID:   strings.TrimSpace(r.Form.Get("student_id")),
		Currency:    s.formCurrency(r),
		Date:        date,
		Description: sanitizeInput(r.Form.Get("description")),
		Subject:     sanitizeInput(r.Form.Get("subject")),
	}

	if t.Kind != core.Lesson {
		amount, err := formAmount(r, "amount")
		if err != nil {
			writeFormErrorText(w, http.StatusUnprocessableEntity, "Invalid amount")
			return core.Transaction{}, false
		}
		t.Amount = amount
	}
	return t, true
}
