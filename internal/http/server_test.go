package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"catatan/internal/core"
	"catatan/internal/export"
	applog "catatan/internal/log"
	"catatan/internal/reference/memory"
	"catatan/internal/services"
	"catatan/internal/session"
)

type recordingNotifier struct {
	mu  sync.Mutex
	txs []core.Transaction
	err error
}

func (n *recordingNotifier) PublishTransactionCommitted(_ context.Context, tx core.Transaction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.txs = append(n.txs, tx)
	return n.err
}

func newTestServer(t *testing.T, ratePerMinute int, notifier services.Notifier) *Server {
	t.Helper()
	logger := applog.NewText(io.Discard, slog.LevelError, "test")
	clock := func() time.Time { return time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC) }

	sessions, err := session.NewStore(session.Options{
		Reader: memory.NewDefault(),
		TTL:    time.Hour,
		Clock:  clock,
		Logger: logger.Logger,
	})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	srv, err := NewServer(Options{
		Addr:               ":0",
		Sessions:           sessions,
		Commits:            services.NewCommitService(notifier, logger),
		Formatter:          core.MustCurrencyFormatter("id-ID", "IDR", "Rp").WithFractionDigits(2),
		Logger:             logger,
		RateLimitPerMinute: ratePerMinute,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = srv.commits.Shutdown(context.Background())
	})
	return srv
}

// drainNotifications waits for queued commit notifications to be published.
func drainNotifications(t *testing.T, srv *Server) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.commits.Shutdown(ctx); err != nil {
		t.Fatalf("draining notifications: %v", err)
	}
}

// client replays the session cookie across requests.
type client struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func (c *client) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	c.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	w := httptest.NewRecorder()
	c.srv.Handler.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == session.CookieName {
			c.cookie = ck
		}
	}
	return w
}

func (c *client) transactions() []transactionJSON {
	c.t.Helper()
	w := c.do(http.MethodGet, "/api/transactions", nil)
	if w.Code != http.StatusOK {
		c.t.Fatalf("GET /api/transactions = %d", w.Code)
	}
	var out []transactionJSON
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		c.t.Fatalf("decode transactions: %v", err)
	}
	return out
}

func TestIndexRendersRowsAndDraft(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, 60, nil)}
	w := c.do(http.MethodGet, "/", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("GET / = %d", w.Code)
	}
	if c.cookie == nil || c.cookie.Value == "" {
		t.Fatal("session cookie not set")
	}
	body := w.Body.String()
	for _, want := range []string{`id="rows"`, "Salary", "Groceries", "Rent", `data-status="new"`, `data-status="updated"`, "Rp "} {
		if !strings.Contains(body, want) {
			t.Errorf("index missing %q", want)
		}
	}
	if got := strings.Count(body, `class="draft"`); got != 1 {
		t.Errorf("expected exactly one draft row, got %d", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers not applied")
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("request id not echoed")
	}
}

func TestRowsPartialIsIdempotent(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, 60, nil)}
	first := c.do(http.MethodGet, "/ui/rows", nil).Body.String()
	second := c.do(http.MethodGet, "/ui/rows", nil).Body.String()
	if first != second {
		t.Fatal("rendering twice without changes must yield identical HTML")
	}
	if strings.Contains(first, "<html") {
		t.Fatal("rows partial must not include the page shell")
	}
}

func TestDraftThenCommit(t *testing.T) {
	notifier := &recordingNotifier{}
	srv := newTestServer(t, 60, notifier)
	c := &client{t: t, srv: srv}
	c.do(http.MethodGet, "/", nil)

	for field, value := range map[string]string{
		"description": "Lunch",
		"amount":      "15000",
		"account":     "3",
		"category":    "2",
	} {
		w := c.do(http.MethodPost, "/draft", url.Values{field: {value}})
		if w.Code != http.StatusNoContent {
			t.Fatalf("POST /draft %s = %d", field, w.Code)
		}
	}

	w := c.do(http.MethodPost, "/transactions", url.Values{})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /transactions = %d: %s", w.Code, w.Body.String())
	}
	trigger := w.Header().Get("HX-Trigger")
	if !strings.Contains(trigger, "transaction:committed") || !strings.Contains(trigger, "form:reset") {
		t.Errorf("unexpected HX-Trigger %s", trigger)
	}
	if !strings.Contains(w.Body.String(), "Lunch") {
		t.Error("rows partial missing the committed row")
	}

	txs := c.transactions()
	if len(txs) != 4 {
		t.Fatalf("expected 4 committed transactions, got %d", len(txs))
	}
	last := txs[3]
	if last.Description != "Lunch" || last.Amount != "15000" || last.Account != "Cash" || last.Category != "Expense" || last.Date != "2024-03-15" {
		t.Errorf("unexpected committed transaction %+v", last)
	}
	drainNotifications(t, srv)
	if len(notifier.txs) != 1 || notifier.txs[0].ID != last.ID {
		t.Errorf("notifier saw %+v", notifier.txs)
	}
}

func TestCommitWithAllFieldsInOneRequest(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, 60, nil)}
	w := c.do(http.MethodPost, "/transactions", url.Values{
		"date":        {"2024-01-31"},
		"description": {"Bus"},
		"amount":      {"3500"},
		"account":     {"1"},
		"category":    {"2"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("POST /transactions = %d", w.Code)
	}
	txs := c.transactions()
	if got := txs[len(txs)-1]; got.Date != "2024-01-31" || got.Account != "BCA" {
		t.Errorf("unexpected transaction %+v", got)
	}
}

func TestCommitValidationFailure(t *testing.T) {
	tests := []struct {
		name    string
		form    url.Values
		message string
	}{
		{
			name:    "missing description",
			form:    url.Values{"amount": {"10"}, "account": {"1"}, "category": {"1"}},
			message: "Please enter a description.",
		},
		{
			name:    "missing amount",
			form:    url.Values{"description": {"x"}, "account": {"1"}, "category": {"1"}},
			message: "Please enter an amount.",
		},
		{
			name:    "non numeric amount",
			form:    url.Values{"description": {"x"}, "amount": {"abc"}, "account": {"1"}, "category": {"1"}},
			message: "The amount must be a number.",
		},
		{
			name:    "exponent amount",
			form:    url.Values{"description": {"x"}, "amount": {"1e30000000"}, "account": {"1"}, "category": {"1"}},
			message: "The amount must be a number.",
		},
		{
			name:    "missing account",
			form:    url.Values{"description": {"x"}, "amount": {"10"}, "category": {"1"}},
			message: "Please select an account.",
		},
		{
			name:    "missing category",
			form:    url.Values{"description": {"x"}, "amount": {"10"}, "account": {"1"}},
			message: "Please select a category.",
		},
		{
			name:    "unknown account",
			form:    url.Values{"description": {"x"}, "amount": {"10"}, "account": {"99"}, "category": {"1"}},
			message: "Please select an account.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &client{t: t, srv: newTestServer(t, 60, nil)}
			c.do(http.MethodGet, "/", nil)

			w := c.do(http.MethodPost, "/transactions", tt.form)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("status = %d, want 422", w.Code)
			}
			trigger := w.Header().Get("HX-Trigger")
			if !strings.Contains(trigger, `"blocking":true`) || !strings.Contains(trigger, tt.message) {
				t.Errorf("HX-Trigger = %s, want blocking %q", trigger, tt.message)
			}
			if got := len(c.transactions()); got != 3 {
				t.Errorf("rejected submit changed committed rows: %d", got)
			}
		})
	}
}

func TestRejectedDraftKeepsInput(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, 60, nil)}
	w := c.do(http.MethodPost, "/transactions", url.Values{"description": {"Keep me"}, "amount": {"abc"}})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", w.Code)
	}
	rows := c.do(http.MethodGet, "/ui/rows", nil).Body.String()
	if !strings.Contains(rows, `value="Keep me"`) || !strings.Contains(rows, `value="abc"`) {
		t.Error("draft input lost after rejected submit")
	}
}

func TestDraftRequiresFields(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, 60, nil)}
	if w := c.do(http.MethodPost, "/draft", url.Values{"other": {"x"}}); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if w := c.do(http.MethodPost, "/draft", url.Values{"account": {"one"}}); w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 for non-numeric key", w.Code)
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	srv := newTestServer(t, 60, nil)
	a := &client{t: t, srv: srv}
	b := &client{t: t, srv: srv}

	a.do(http.MethodPost, "/transactions", url.Values{
		"description": {"Only A"}, "amount": {"1"}, "account": {"1"}, "category": {"1"},
	})
	if got := len(a.transactions()); got != 4 {
		t.Fatalf("session a has %d rows", got)
	}
	if got := len(b.transactions()); got != 3 {
		t.Fatalf("session b has %d rows", got)
	}
	if a.cookie.Value == b.cookie.Value {
		t.Fatal("sessions share an id")
	}
}

func TestUnknownSessionCookieGetsFreshSession(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, 60, nil)}
	c.cookie = &http.Cookie{Name: session.CookieName, Value: "not-a-uuid"}
	c.do(http.MethodGet, "/", nil)
	if c.cookie.Value == "not-a-uuid" {
		t.Fatal("invalid session id must be replaced")
	}
}

func TestRateLimitAppliesToWrites(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, 1, nil)}
	if w := c.do(http.MethodPost, "/draft", url.Values{"description": {"a"}}); w.Code != http.StatusNoContent {
		t.Fatalf("first POST = %d", w.Code)
	}
	w := c.do(http.MethodPost, "/draft", url.Values{"description": {"b"}})
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After missing")
	}
	if w := c.do(http.MethodGet, "/ui/rows", nil); w.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", w.Code)
	}
}

func TestNotifierFailureDoesNotFailCommit(t *testing.T) {
	srv := newTestServer(t, 60, &recordingNotifier{err: errors.New("broker down")})
	c := &client{t: t, srv: srv}
	w := c.do(http.MethodPost, "/transactions", url.Values{
		"description": {"x"}, "amount": {"1"}, "account": {"1"}, "category": {"1"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	drainNotifications(t, srv)
	metrics := c.do(http.MethodGet, "/metrics", nil).Body.String()
	if !strings.Contains(metrics, "catatan_notify_failures_total 1") {
		t.Errorf("metrics missing notify failure:\n%s", metrics)
	}
}

// stalledNotifier never answers until released, like a broker that accepts
// the TCP connection and then hangs.
type stalledNotifier struct {
	release chan struct{}
}

func (n *stalledNotifier) PublishTransactionCommitted(ctx context.Context, _ core.Transaction) error {
	select {
	case <-n.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestSlowNotifierDoesNotDelayCommit(t *testing.T) {
	notifier := &stalledNotifier{release: make(chan struct{})}
	srv := newTestServer(t, 60, notifier)
	c := &client{t: t, srv: srv}
	form := url.Values{"description": {"x"}, "amount": {"1"}, "account": {"1"}, "category": {"1"}}

	for i := 0; i < 3; i++ {
		start := time.Now()
		w := c.do(http.MethodPost, "/transactions", form)
		if w.Code != http.StatusOK {
			t.Fatalf("commit %d status = %d", i, w.Code)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Fatalf("commit %d took %v while the notifier was stalled", i, elapsed)
		}
	}
	if got := len(c.transactions()); got != 6 {
		t.Errorf("committed rows = %d, want 6", got)
	}

	close(notifier.release)
	drainNotifications(t, srv)
	metrics := c.do(http.MethodGet, "/metrics", nil).Body.String()
	if !strings.Contains(metrics, "catatan_notify_failures_total 0") {
		t.Errorf("stalled publishes should succeed once released:\n%s", metrics)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, 60, nil)}
	c.do(http.MethodGet, "/", nil)

	if w := c.do(http.MethodGet, "/healthz", nil); w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Errorf("healthz = %d %q", w.Code, w.Body.String())
	}
	if w := c.do(http.MethodGet, "/readyz", nil); w.Code != http.StatusOK {
		t.Errorf("readyz = %d", w.Code)
	}
	w := c.do(http.MethodGet, "/metrics", nil)
	for _, want := range []string{"catatan_http_requests_total", "catatan_sessions 1", "catatan_transactions_committed_total 0"} {
		if !strings.Contains(w.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
	if w := c.do(http.MethodGet, "/static/style.css", nil); w.Code != http.StatusOK {
		t.Errorf("static asset = %d", w.Code)
	}
	if w := c.do(http.MethodGet, "/.env", nil); w.Code != http.StatusNotFound {
		t.Errorf("probe = %d, want 404", w.Code)
	}
}

func TestExportTransactions(t *testing.T) {
	c := &client{t: t, srv: newTestServer(t, 60, nil)}
	w := c.do(http.MethodGet, "/api/transactions.xlsx", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("export = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, ".xlsx") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	// xlsx files are zip archives.
	if !strings.HasPrefix(w.Body.String(), "PK") {
		t.Error("body is not an xlsx archive")
	}
}

func TestNewServerRequiresDependencies(t *testing.T) {
	if _, err := NewServer(Options{}); err == nil {
		t.Fatal("expected error without sessions")
	}
}
