package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/carpool/internal/models"
	"github.com/example/carpool/internal/notify"
)

type errorBody struct {
	Error        string               `json:"error"`
	Fields       []string             `json:"fields,omitempty"`
	Notification *notify.Notification `json:"notification,omitempty"`
}

func toast(title, description string, destructive bool) *notify.Notification {
	v := notify.VariantDefault
	if destructive {
		v = notify.VariantDestructive
	}
	return &notify.Notification{Title: title, Description: description, Variant: v}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError is the single place component errors turn into user-visible
// notifications. Stale results and cancelled requests produce no notification.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, models.ErrStale) || errors.Is(err, context.Canceled) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	status, body := classify(err)
	if status >= 500 {
		s.logger.Error("request failed", "route", routeTemplate(r), "error", err, "request_id", requestIDFromContext(r.Context()))
	}
	if cs := clientFrom(r.Context()); cs != nil && body.Notification != nil {
		_ = s.notifier.Notify(cs.id, *body.Notification)
	}
	writeJSON(w, status, body)
}

func classify(err error) (int, errorBody) {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		msg := verr.Reason
		if msg == "" {
			msg = "Please check the highlighted fields"
		}
		return http.StatusBadRequest, errorBody{Error: verr.Error(), Fields: verr.Fields, Notification: toast("Missing information", msg, true)}
	case errors.Is(err, models.ErrAuth):
		return http.StatusUnauthorized, errorBody{Error: err.Error(), Notification: toast("Login failed", "Invalid email or password.", true)}
	case errors.Is(err, models.ErrAuthRequired):
		return http.StatusUnauthorized, errorBody{Error: err.Error(), Notification: toast("Authentication required", "Please log in to continue.", true)}
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden, errorBody{Error: err.Error(), Notification: toast("Driver Account Required", "You need to have a driver account to create a ride.", true)}
	case errors.Is(err, models.ErrInsufficientSeats):
		return http.StatusConflict, errorBody{Error: err.Error(), Notification: toast("Not enough seats", "This ride does not have enough seats for your party.", true)}
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Notification: toast("Ride not found", "The ride list is out of date. Please search again.", true)}
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout, errorBody{Error: err.Error(), Notification: toast("Error", "The server took too long to respond. Please try again.", true)}
	case errors.Is(err, models.ErrNetwork):
		return http.StatusBadGateway, errorBody{Error: err.Error(), Notification: toast("Error", "Could not reach the server. Please try again.", true)}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error", Notification: toast("Error", "Something went wrong. Please try again.", true)}
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return models.NewValidationError("malformed request body", "body")
	}
	return nil
}
