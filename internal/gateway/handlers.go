package gateway

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
)

type queryRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

type sourceItem struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

type queryResponse struct {
	Answer    string       `json:"answer"`
	Sources   []sourceItem `json:"sources"`
	SessionID string       `json:"session_id"`
}

type coursesResponse struct {
	TotalCourses int      `json:"total_courses"`
	CourseTitles []string `json:"course_titles"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Handler builds the API routes. Exposed separately from Run so tests
// can drive it with httptest.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/query", g.handleQuery)
	mux.HandleFunc("GET /api/courses", g.handleCourses)
	mux.HandleFunc("DELETE /api/session/{id}", g.handleDeleteSession)
	if dir := g.cfg.Gateway.StaticDir; dir != "" {
		mux.Handle("/", http.FileServer(http.Dir(dir)))
	}
	return mux
}

func (g *Gateway) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = g.system.Sessions().Create()
	}

	answer, citations, err := g.system.Query(r.Context(), req.Query, sessionID)
	if err != nil {
		log.Printf("[gateway] query error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	sources := make([]sourceItem, 0, len(citations))
	for _, c := range citations {
		sources = append(sources, sourceItem{Title: c.Title, URL: c.URL})
	}

	writeJSON(w, http.StatusOK, queryResponse{
		Answer:    answer,
		Sources:   sources,
		SessionID: sessionID,
	})
}

func (g *Gateway) handleCourses(w http.ResponseWriter, r *http.Request) {
	count, titles, err := g.system.Analytics()
	if err != nil {
		log.Printf("[gateway] courses error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if titles == nil {
		titles = []string{}
	}
	writeJSON(w, http.StatusOK, coursesResponse{TotalCourses: count, CourseTitles: titles})
}

func (g *Gateway) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	g.system.Sessions().Delete(id)
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[gateway] encode response error: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}
