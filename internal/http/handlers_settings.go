package http

import (
	"context"
	"log/slog"
	"net/http"

	"tutorledger/internal/core"
)

func (s *Server) handleExpectedIncome(w http.ResponseWriter, r *http.Request) {
	s.handleSetting(w, r, "expected income", s.service.SetExpectedIncome)
}

func (s *Server) handleDebt(w http.ResponseWriter, r *http.Request) {
	s.handleSetting(w, r, "debt", s.service.SetDebt)
}

func (s *Server) handleSetting(w http.ResponseWriter, r *http.Request, name string, set func(context.Context, core.Setting) error) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeFormErrorText(w, http.StatusBadRequest, "Invalid request format")
		return
	}

	amount, err := formAmount(r, "amount")
	if err != nil {
		writeFormErrorText(w, http.StatusUnprocessableEntity, "Invalid amount")
		return
	}

	v := core.Setting{Amount: amount, Currency: s.formCurrency(r)}
	if err := set(r.Context(), v); err != nil {
		slog.ErrorContext(r.Context(), "Save setting failed", "error", err, "setting", name)
		writeFormError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.invalidateCaches()

	writeFormSuccess(w, "Saved.")
}
