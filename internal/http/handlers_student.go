package http

import (
	"log/slog"
	"net/http"
	"strings"

	"tutorledger/internal/core"
)

func (s *Server) handleCreateStudent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	st, ok := s.studentFromForm(w, r)
	if !ok {
		return
	}

	id, err := s.service.AddStudent(r.Context(), st)
	if err != nil {
		slog.ErrorContext(r.Context(), "Create student failed", "error", err)
		writeFormError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.invalidateCaches()

	slog.InfoContext(r.Context(), "Student created", "id", id, "name", st.Name)
	writeFormSuccess(w, "Student added.")
}

func (s *Server) handleUpdateStudent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	st, ok := s.studentFromForm(w, r)
	if !ok {
		return
	}
	st.ID = strings.TrimSpace(r.Form.Get("id"))
	if st.ID == "" {
		writeFormErrorText(w, http.StatusBadRequest, "Missing student id")
		return
	}

	if err := s.service.UpdateStudent(r.Context(), st); err != nil {
		slog.ErrorContext(r.Context(), "Update student failed", "error", err, "id", st.ID)
		writeFormError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.invalidateCaches()

	writeFormSuccess(w, "Student updated.")
}

func (s *Server) handleDeleteStudent(w http.ResponseWriter, r *http.Request) {
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
		writeFormErrorText(w, http.StatusBadRequest, "Missing student id")
		return
	}

	if err := s.service.RemoveStudent(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "Delete student failed", "error", err, "id", id)
		writeFormError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.invalidateCaches()

	writeFormSuccess(w, "Student removed.")
}

func (s *Server) handleStudentBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeFormErrorText(w, http.StatusBadRequest, "Missing student id")
		return
	}

	sb, err := s.service.StudentBalance(r.Context(), id)
	if err != nil {
		slog.ErrorContext(r.Context(), "Student balance failed", "error", err, "id", id)
		writeFormErrorText(w, http.StatusNotFound, "Student not found")
		return
	}

	row := studentRowView(sb)
	// Lesson counts are dimensionless; only the price is re-denominated
	// when the caller asks for a different display currency.
	if display := s.queryCurrency(r); s.rates != nil && display != sb.Student.Currency {
		table := s.rates.Rates(r.Context())
		row.Price = formatAmount(
			core.ConvertOrSame(sb.Student.Price, sb.Student.Currency, display, table), display)
	}

	if err := s.templates.ExecuteTemplate(w, "student_balance.html", row); err != nil {
		slog.ErrorContext(r.Context(), "Balance template execution failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) studentFromForm(w http.ResponseWriter, r *http.Request) (core.Student, bool) {
	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(r.Context(), "Parse form error", "error", err, "url", r.URL.Path)
		writeFormErrorText(w, http.StatusBadRequest, "Invalid request format")
		return core.Student{}, false
	}

	price, err := formAmount(r, "price")
	if err != nil {
		writeFormErrorText(w, http.StatusUnprocessableEntity, "Invalid price")
		return core.Student{}, false
	}

	var subjects []string
	for _, subj := range strings.Split(r.Form.Get("subjects"), ",") {
		if subj = sanitizeInput(subj); subj != "" {
			subjects = append(subjects, subj)
		}
	}

	return core.Student{
		Name:     sanitizeInput(r.Form.Get("name")),
		Subjects: subjects,
		Price:    price,
		Currency: s.formCurrency(r),
	}, true
}
