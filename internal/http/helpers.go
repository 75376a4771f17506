package http

import (
	"errors"
	"net/http"
	"time"

	"catatan/internal/editor"
	"catatan/internal/session"
)

// validationMessage maps a rejected submission to the text shown to the user.
func validationMessage(err error) string {
	switch {
	case errors.Is(err, editor.ErrMissingDescription):
		return "Please enter a description."
	case errors.Is(err, editor.ErrMissingAmount):
		return "Please enter an amount."
	case errors.Is(err, editor.ErrInvalidAmount):
		return "The amount must be a number."
	case errors.Is(err, editor.ErrMissingAccount), errors.Is(err, editor.ErrUnknownAccount):
		return "Please select an account."
	case errors.Is(err, editor.ErrMissingCategory), errors.Is(err, editor.ErrUnknownCategory):
		return "Please select a category."
	case errors.Is(err, editor.ErrInvalidDate):
		return "The date must be a valid YYYY-MM-DD date."
	}
	var ve *editor.ValidationError
	if errors.As(err, &ve) {
		switch ve.Field {
		case editor.FieldAccount:
			return "Please select an account."
		case editor.FieldCategory:
			return "Please select a category."
		}
	}
	return "The transaction could not be added."
}

// sessionID returns the session cookie value, or "" when absent.
func sessionID(r *http.Request) string {
	c, err := r.Cookie(session.CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func setSessionCookie(w http.ResponseWriter, id string, ttl time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
