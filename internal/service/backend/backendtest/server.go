// Package backendtest provides an in-process trading backend speaking the
// same HTTP contract as the real one, for tests.
package backendtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"TradeDesk/internal/domain/models"
	"TradeDesk/internal/schema"
)

// Server is a fake backend. Fields are guarded by the embedded lock; use the
// helper methods from tests.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	users         map[string]string
	token         string
	tickers       map[string]schema.Collection
	connections   *models.Connections
	schemaVersion int
	failures      map[string]failure
	calls         []string
	lastBody      map[string]map[string]any
	authorizeURLs map[string]string
	validLink     string
}

type failure struct {
	status  int
	message string
}

// New starts a fake backend that accepts email/password and issues token.
func New(email, password, token string) *Server {
	s := &Server{
		users:         map[string]string{email: password},
		token:         token,
		tickers:       map[string]schema.Collection{},
		failures:      map[string]failure{},
		lastBody:      map[string]map[string]any{},
		authorizeURLs: map[string]string{"schwab": "https://schwab.example.com/oauth", "tasty": "https://tasty.example.com/oauth"},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/login", s.login)
	mux.HandleFunc("/api/get-ticker", s.authed(s.getTicker))
	mux.HandleFunc("/api/add-ticker", s.authed(s.addTicker))
	mux.HandleFunc("/api/update-ticker", s.authed(s.addTicker))
	mux.HandleFunc("/api/delete-ticker", s.authed(s.deleteTicker))
	mux.HandleFunc("/api/start-trading", s.authed(s.trading("started")))
	mux.HandleFunc("/api/stop-trading", s.authed(s.trading("stopped")))
	mux.HandleFunc("/api/manual-trigger", s.authed(s.ok("Trade executed")))
	mux.HandleFunc("/api/manual-spx-trigger", s.authed(s.ok("Trade executed")))
	mux.HandleFunc("/api/schwab/authorize-url", s.authed(s.authorizeURL("schwab")))
	mux.HandleFunc("/api/tasty/authorize-url", s.authed(s.authorizeURL("tasty")))
	mux.HandleFunc("/api/schwab/access-token", s.authed(s.ok("")))
	mux.HandleFunc("/api/tasty/access-token", s.authed(s.ok("")))
	mux.HandleFunc("/api/tasty/refresh-token", s.authed(s.ok("")))
	mux.HandleFunc("/api/refresh-token-link", s.authed(s.refreshTokenLink))
	mux.HandleFunc("/api/update-credentials", s.authed(s.updateCredentials))

	s.Server = httptest.NewServer(mux)
	return s
}

// SetTickers replaces the stored collection for kind.
func (s *Server) SetTickers(kind models.StrategyKind, c schema.Collection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickers[kind.String()] = c
}

// Tickers returns a copy of the stored collection for kind.
func (s *Server) Tickers(kind models.StrategyKind) schema.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := schema.Collection{}
	for k, v := range s.tickers[kind.String()] {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// SetConnections makes login report brokerage connectivity.
func (s *Server) SetConnections(c models.Connections) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections = &c
}

// SetSchemaVersion makes ticker responses carry schema_version.
func (s *Server) SetSchemaVersion(v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemaVersion = v
}

// SetValidLink sets the only refresh-token link the backend accepts.
func (s *Server) SetValidLink(link string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validLink = link
}

// Fail makes every call to path answer with success:false and message. A
// non-zero status is written as the HTTP status code.
func (s *Server) Fail(path string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[path] = failure{status: status, message: message}
}

// Recover clears an injected failure.
func (s *Server) Recover(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.failures, path)
}

// Calls returns the request paths seen so far, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// CallCount counts requests to path.
func (s *Server) CallCount(path string) int {
	n := 0
	for _, c := range s.Calls() {
		if c == path {
			n++
		}
	}
	return n
}

// LastBody returns the last JSON body posted to path.
func (s *Server) LastBody(path string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastBody[path]
}

// Password returns the current password of email.
func (s *Server) Password(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[email]
}

func (s *Server) record(r *http.Request) (map[string]any, bool) {
	s.mu.Lock()
	s.calls = append(s.calls, r.URL.Path)
	s.mu.Unlock()

	var body map[string]any
	if r.Body != nil && r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if body != nil {
		s.lastBody[r.URL.Path] = body
	}
	return body, true
}

func (s *Server) injected(w http.ResponseWriter, path string) bool {
	s.mu.Lock()
	f, ok := s.failures[path]
	s.mu.Unlock()
	if !ok {
		return false
	}
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]any{"success": false, "message": f.message, "error": f.message})
	return true
}

func (s *Server) authed(next func(http.ResponseWriter, *http.Request, map[string]any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := s.record(r)
		s.mu.Lock()
		token := s.token
		s.mu.Unlock()
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Unauthorized"})
			return
		}
		if s.injected(w, r.URL.Path) {
			return
		}
		next(w, r, body)
	}
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	body, _ := s.record(r)
	if s.injected(w, r.URL.Path) {
		return
	}
	email, _ := body["email"].(string)
	password, _ := body["password"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if pw, ok := s.users[email]; !ok || pw != password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid email or password"})
		return
	}
	resp := map[string]any{"success": true, "token": s.token, "refreshToken": "rt-" + email}
	if s.connections != nil {
		resp["schwab_connected"] = s.connections.Schwab
		resp["tasty_connected"] = s.connections.Tastytrade
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) collectionResponse(kind string) map[string]any {
	data := schema.Collection{}
	for k, v := range s.tickers[kind] {
		data[k] = v
	}
	resp := map[string]any{"success": true, "data": data}
	if s.schemaVersion != 0 {
		resp["schema_version"] = s.schemaVersion
	}
	return resp
}

func (s *Server) getTicker(w http.ResponseWriter, r *http.Request, _ map[string]any) {
	kind := r.URL.Query().Get("strategy")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.collectionResponse(kind))
}

func (s *Server) addTicker(w http.ResponseWriter, r *http.Request, body map[string]any) {
	kindName, _ := body["strategy"].(string)
	kind, err := models.ParseStrategyKind(kindName)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "unknown strategy"})
		return
	}
	delete(body, "strategy")
	raw, _ := json.Marshal(body)
	t := models.NewTicker(kind)
	if err := json.Unmarshal(raw, t); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}
	row, err := schema.Encode(t)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tickers[kindName] == nil {
		s.tickers[kindName] = schema.Collection{}
	}
	s.tickers[kindName][t.Base().Symbol] = row
	if r.Method == http.MethodPut {
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
		return
	}
	writeJSON(w, http.StatusOK, s.collectionResponse(kindName))
}

func (s *Server) deleteTicker(w http.ResponseWriter, _ *http.Request, body map[string]any) {
	kind, _ := body["strategy"].(string)
	symbol, _ := body["symbol"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickers[kind][symbol]; !ok {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Ticker not found"})
		return
	}
	delete(s.tickers[kind], symbol)
	writeJSON(w, http.StatusOK, s.collectionResponse(kind))
}

func (s *Server) trading(verb string) func(http.ResponseWriter, *http.Request, map[string]any) {
	return func(w http.ResponseWriter, r *http.Request, _ map[string]any) {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Trading " + verb + " for " + r.URL.Query().Get("strategy")})
	}
}

func (s *Server) ok(message string) func(http.ResponseWriter, *http.Request, map[string]any) {
	return func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		resp := map[string]any{"success": true}
		if message != "" {
			resp["message"] = message
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func (s *Server) authorizeURL(broker string) func(http.ResponseWriter, *http.Request, map[string]any) {
	return func(w http.ResponseWriter, _ *http.Request, _ map[string]any) {
		s.mu.Lock()
		u := s.authorizeURLs[broker]
		s.mu.Unlock()
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(u))
	}
}

func (s *Server) refreshTokenLink(w http.ResponseWriter, _ *http.Request, body map[string]any) {
	link, _ := body["refresh_token_link"].(string)
	s.mu.Lock()
	valid := s.validLink
	s.mu.Unlock()
	if strings.TrimSpace(link) == "" || (valid != "" && link != valid) {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "message": "Invalid refresh token link"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Token validated"})
}

func (s *Server) updateCredentials(w http.ResponseWriter, r *http.Request, body map[string]any) {
	current, _ := body["currentPassword"].(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	var email string
	for e, pw := range s.users {
		if pw == current {
			email = e
		}
	}
	if email == "" {
		writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": "Current password is incorrect"})
		return
	}
	if ne, ok := body["newEmail"].(string); ok && ne != "" {
		s.users[ne] = s.users[email]
		delete(s.users, email)
	}
	if np, ok := body["newPassword"].(string); ok && np != "" {
		s.users[email] = np
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
