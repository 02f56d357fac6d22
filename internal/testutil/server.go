// Package testutil provides an in-memory JSON API for exercising models
// against real HTTP.
package testutil

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// RecordedRequest is what the server saw for one call
type RecordedRequest struct {
	Method string
	Path   string
	Query  string
	Header http.Header
	Form   map[string]string
}

// Server is a fake users API.
//
//	GET    /users           list, ?page=&per_page=; ?format=array|meta change the envelope
//	POST   /users           create (JSON or multipart)
//	GET    /users/{id}      read
//	PUT    /users/{id}      replace fields
//	DELETE /users/{id}      delete
//	ANY    /echo            echoes method, query, headers and body
//	GET    /private/me      requires an HS256 bearer token
//
// Multipart POSTs carrying a _method field are routed as that method.
type Server struct {
	Secret string

	mu       sync.Mutex
	users    map[string]map[string]any
	nextID   int
	requests []RecordedRequest
	failNext int
}

// NewServer creates an empty server; secret signs bearer tokens for
// /private routes
func NewServer(secret string) *Server {
	return &Server{
		Secret: secret,
		users:  map[string]map[string]any{},
		nextID: 1,
	}
}

// Start serves the routes on a test server closed at test cleanup
func (s *Server) Start(t testing.TB) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

// Seed stores users; records without an id get the next free one
func (s *Server) Seed(records ...map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.insert(rec)
	}
}

// FailNext makes the next n requests answer 500
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	s.failNext = n
	s.mu.Unlock()
}

// Requests returns the recorded requests in arrival order
func (s *Server) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request
func (s *Server) LastRequest() RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return RecordedRequest{}
	}
	return s.requests[len(s.requests)-1]
}

// User returns a copy of a stored user
func (s *Server) User(id string) (map[string]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, false
	}
	return copyMap(u), true
}

// Routes creates the router
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Route("/users", func(r chi.Router) {
		r.Get("/", s.listUsers)
		r.Post("/", s.createUser)
		r.Get("/{id}", s.getUser)
		r.Put("/{id}", s.updateUser)
		r.Delete("/{id}", s.deleteUser)
	})

	r.HandleFunc("/echo", s.echo)

	r.Group(func(r chi.Router) {
		r.Use(requireBearer(s.Secret))
		r.Get("/private/me", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"id": subject(r.Context())})
		})
	})

	return r
}

// record stores the request and applies the _method override for
// multipart forms
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
		}

		if isMultipart(r) {
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				writeError(w, http.StatusBadRequest, "invalid multipart body")
				return
			}
			rec.Form = map[string]string{}
			for k, v := range r.MultipartForm.Value {
				rec.Form[k] = v[0]
			}
			if m := r.FormValue("_method"); m != "" && r.Method == http.MethodPost {
				r.Method = strings.ToUpper(m)
			}
		}

		s.mu.Lock()
		s.requests = append(s.requests, rec)
		s.mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		fail := s.failNext > 0
		if fail {
			s.failNext--
		}
		s.mu.Unlock()

		if fail {
			writeError(w, http.StatusInternalServerError, "injected failure")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := parsePositive(q.Get("page"), 1)
	perPage := parsePositive(q.Get("per_page"), 10)

	s.mu.Lock()
	all := s.sortedUsers()
	s.mu.Unlock()

	if name := q.Get("name"); name != "" {
		filtered := all[:0]
		for _, u := range all {
			if u["name"] == name {
				filtered = append(filtered, u)
			}
		}
		all = filtered
	}

	total := len(all)
	lastPage := max((total+perPage-1)/perPage, 1)
	start := min((page-1)*perPage, total)
	end := min(start+perPage, total)
	data := all[start:end]

	meta := map[string]any{
		"current_page": page,
		"last_page":    lastPage,
		"per_page":     perPage,
		"total":        total,
	}

	switch q.Get("format") {
	case "array":
		writeJSON(w, http.StatusOK, data)
	case "meta":
		writeJSON(w, http.StatusOK, map[string]any{"data": data, "meta": meta})
	default:
		meta["data"] = data
		writeJSON(w, http.StatusOK, meta)
	}
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}
	delete(payload, "id")

	s.mu.Lock()
	u := s.insert(payload)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.User(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	payload, ok := readPayload(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	s.mu.Lock()
	u, found := s.users[id]
	if found {
		for k, v := range payload {
			if k != "id" {
				u[k] = v
			}
		}
		u["updated_at"] = "2024-01-02T00:00:00Z"
		u = copyMap(u)
	}
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mu.Lock()
	_, found := s.users[id]
	delete(s.users, id)
	s.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) echo(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	headers := map[string]any{}
	for k := range r.Header {
		headers[k] = r.Header.Get(k)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"method":  r.Method,
		"path":    r.URL.Path,
		"query":   r.URL.RawQuery,
		"headers": headers,
		"body":    string(body),
	})
}

// insert stores rec and returns a copy; callers hold s.mu
func (s *Server) insert(rec map[string]any) map[string]any {
	u := copyMap(rec)
	id, ok := u["id"]
	if !ok {
		id = s.nextID
		u["id"] = id
	}
	if n, err := strconv.Atoi(idString(id)); err == nil && n >= s.nextID {
		s.nextID = n + 1
	}
	if _, ok := u["created_at"]; !ok {
		u["created_at"] = "2024-01-01T00:00:00Z"
	}
	s.users[idString(id)] = u
	return copyMap(u)
}

// sortedUsers returns copies ordered by numeric id; callers hold s.mu
func (s *Server) sortedUsers() []map[string]any {
	out := make([]map[string]any, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, copyMap(u))
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(idString(out[i]["id"]))
		b, _ := strconv.Atoi(idString(out[j]["id"]))
		return a < b
	})
	return out
}

func readPayload(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	if isMultipart(r) {
		payload := map[string]any{}
		for k, v := range r.MultipartForm.Value {
			if k != "_method" {
				payload[k] = v[0]
			}
		}
		return payload, true
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return nil, false
	}
	return payload, true
}

func isMultipart(r *http.Request) bool {
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mt == "multipart/form-data"
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode json response")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// parsePositive parses a positive integer query param with a default
func parsePositive(q string, def int) int {
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	}
	b, _ := json.Marshal(v)
	return string(b)
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
