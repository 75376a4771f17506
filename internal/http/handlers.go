package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"catatan/internal/core"
	"catatan/internal/editor"
	"catatan/internal/export"
	applog "catatan/internal/log"
	"catatan/internal/session"
)

type pageData struct {
	Title string
	Lang  string
	View  editor.View
}

type transactionJSON struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Account     string `json:"account"`
	Category    string `json:"category"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports ready once a session editor can be built from the
// configured reference source.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Ready(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "Readiness check failed", "error", err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// resolveSession finds or creates the caller's session and refreshes its cookie.
func (s *Server) resolveSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, created, err := s.sessions.Get(r.Context(), sessionID(r))
	if err != nil {
		s.slogger.LogError(r.Context(), "Session unavailable", err, applog.ComponentSession, applog.OpRead, nil)
		InternalServerError("Reference data is unavailable").Write(w)
		return nil, false
	}
	if created {
		s.logger.DebugContext(r.Context(), "Issued session cookie", "session_id", sess.ID)
	}
	setSessionCookie(w, sess.ID, s.sessionTTL, s.secureCookies)
	return sess, true
}

func (s *Server) render(name string, data pageData) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (s *Server) page(e *editor.Editor) pageData {
	return pageData{Title: s.title, Lang: s.lang, View: e.View(s.formatter)}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderWith(w, r, "index.html", nil)
}

// handleRows renders the table body partial.
func (s *Server) handleRows(w http.ResponseWriter, r *http.Request) {
	s.renderWith(w, r, "rows", nil)
}

func (s *Server) renderWith(w http.ResponseWriter, r *http.Request, name string, b *HTMXResponseBuilder) {
	sess, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	var body []byte
	err := sess.Do(func(e *editor.Editor) error {
		var err error
		body, err = s.render(name, s.page(e))
		return err
	})
	if err != nil {
		s.slogger.LogError(r.Context(), "Template execution failed", err, applog.ComponentTemplate, applog.OpRender, nil)
		InternalServerError("Rendering failed").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.BodyHTML(string(body)).Write(w)
}

// handleDraft applies field-change events to the draft row.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.logger.WarnContext(r.Context(), "Parse draft body failed", "error", err)
		BadRequestError("Invalid request format").Write(w)
		return
	}
	changes := parser.DraftChanges()
	if len(changes) == 0 {
		BadRequestError("No draft fields in request").Write(w)
		return
	}

	sess, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	err := sess.Do(func(e *editor.Editor) error {
		return applyChanges(e, changes)
	})
	if err != nil {
		s.slogger.LogValidationFailed(r.Context(), sess.ID, fieldOf(err), err)
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	}
	NewHTMXResponse().Status(http.StatusNoContent).Write(w)
}

// handleCommit applies any posted fields then submits the draft.
func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		s.logger.WarnContext(r.Context(), "Parse commit body failed", "error", err)
		BadRequestError("Invalid request format").Write(w)
		return
	}
	changes := parser.DraftChanges()

	sess, ok := s.resolveSession(w, r)
	if !ok {
		return
	}

	var (
		body []byte
		id   string
		rows int
	)
	err := sess.Do(func(e *editor.Editor) error {
		if err := applyChanges(e, changes); err != nil {
			return err
		}
		tx, err := s.commits.Commit(r.Context(), sess.ID, e)
		if err != nil {
			return err
		}
		id, rows = tx.ID, e.Len()
		body, err = s.render("rows", s.page(e))
		return err
	})
	switch {
	case err == nil:
	case editor.IsValidation(err):
		UnprocessableEntityError(validationMessage(err)).Write(w)
		return
	default:
		s.slogger.LogError(r.Context(), "Commit request failed", err, applog.ComponentHTTP, applog.OpCommit,
			applog.NewFields().WithSessionID(sess.ID))
		InternalServerError("The transaction could not be added").Write(w)
		return
	}

	NewHTMXResponse().
		TriggerTransactionCommitted(id, rows).
		TriggerFormReset().
		BodyHTML(string(body)).
		Write(w)
}

// handleListTransactions returns the session's committed transactions as JSON.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	var out []transactionJSON
	_ = sess.Do(func(e *editor.Editor) error {
		txs := e.Transactions()
		out = make([]transactionJSON, 0, len(txs))
		for _, tx := range txs {
			out = append(out, transactionJSON{
				ID:          tx.ID,
				Date:        tx.Date.String(),
				Description: tx.Description,
				Amount:      tx.Amount.String(),
				Account:     tx.Account,
				Category:    tx.Category,
			})
		}
		return nil
	})
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.ErrorContext(r.Context(), "Encode transactions failed", "error", err)
	}
}

// handleExportTransactions streams the session's committed transactions as XLSX.
func (s *Server) handleExportTransactions(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.resolveSession(w, r)
	if !ok {
		return
	}
	var txs []core.Transaction
	_ = sess.Do(func(e *editor.Editor) error {
		txs = e.Transactions()
		return nil
	})

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, txs); err != nil {
		s.slogger.LogError(r.Context(), "Export failed", err, applog.ComponentHTTP, applog.OpList, nil)
		InternalServerError("Export failed").Write(w)
		return
	}
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+export.FileName(time.Now()))
	_, _ = w.Write(buf.Bytes())
}

// handleMetrics writes plain-text counters, one "name value" pair per line.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	tm := s.tracer.GetMetrics()
	rl := s.limiter.GetMetrics()
	sec := s.detector.GetMetrics()
	cs := s.commits.Stats()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "catatan_http_requests_total %d\n", tm.TotalRequests)
	fmt.Fprintf(w, "catatan_http_error_responses_total %d\n", tm.ErrorResponses)
	fmt.Fprintf(w, "catatan_http_average_response_ms %.3f\n", float64(tm.AverageResponseTime.Microseconds())/1000)
	fmt.Fprintf(w, "catatan_rate_limit_hits_total %d\n", rl.TotalHits)
	fmt.Fprintf(w, "catatan_rate_limit_clients %d\n", rl.ClientCount)
	fmt.Fprintf(w, "catatan_blocked_requests_total %d\n", sec.BlockedRequests)
	fmt.Fprintf(w, "catatan_transactions_committed_total %d\n", cs.Committed)
	fmt.Fprintf(w, "catatan_transactions_rejected_total %d\n", cs.Rejected)
	fmt.Fprintf(w, "catatan_notify_failures_total %d\n", cs.NotifyFailures)
	fmt.Fprintf(w, "catatan_sessions %d\n", s.sessions.Len())
}

// applyChanges stops at the first rejected change.
func applyChanges(e *editor.Editor, changes []FieldChange) error {
	for _, c := range changes {
		if err := e.Apply(c.Field, c.Value); err != nil {
			return err
		}
	}
	return nil
}

func fieldOf(err error) string {
	var ve *editor.ValidationError
	if errors.As(err, &ve) {
		return ve.Field
	}
	return ""
}
