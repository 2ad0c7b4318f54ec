package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/radieske/league-bet-platform/internal/league/cache"
	"github.com/radieske/league-bet-platform/internal/league/dto"
	"github.com/radieske/league-bet-platform/internal/league/model"
)

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, dto.Envelope{Success: true, Data: data})
}

func writeErr(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, dto.Envelope{Success: false, Error: err.Error()})
}

// statusFor mapeia a taxonomia de erros do domínio para HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrInvalidArgument), errors.Is(err, model.ErrInvalidState):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInsufficientFunds),
		errors.Is(err, model.ErrOddsChanged),
		errors.Is(err, cache.ErrLockHeld):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail responde o erro; 5xx são logados e a mensagem interna não vaza
func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeErr(w, status, errors.New("internal error"))
		return
	}
	writeErr(w, status, err)
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: bad json: %v", model.ErrInvalidArgument, err)
	}
	return nil
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", model.ErrInvalidArgument)
	}
	return n, nil
}
