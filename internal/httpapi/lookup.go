package httpapi

import (
	"net/http"
	"strings"

	"github.com/ent0n29/levo/internal/links"
)

type newsResponse struct {
	Articles []links.Result `json:"articles"`
}

type searchResponse struct {
	Results []links.Result `json:"results"`
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if s.deps.News == nil {
		respondJSON(w, http.StatusOK, newsResponse{Articles: []links.Result{}})
		return
	}
	articles := s.deps.News.Headlines(r.Context(), r.URL.Query().Get("topic"))
	if articles == nil {
		articles = []links.Result{}
	}
	respondJSON(w, http.StatusOK, newsResponse{Articles: articles})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "q must not be empty")
		return
	}
	if s.deps.Search == nil {
		respondJSON(w, http.StatusOK, searchResponse{Results: []links.Result{}})
		return
	}
	results := s.deps.Search.Resolve(r.Context(), q, strings.TrimSpace(r.URL.Query().Get("site")), s.cfg.SearchLimit)
	if results == nil {
		results = []links.Result{}
	}
	respondJSON(w, http.StatusOK, searchResponse{Results: results})
}
