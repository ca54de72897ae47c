package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/levo/internal/documents"
	"github.com/ent0n29/levo/internal/logging"
)

type documentRequest struct {
	Text string `json:"text" validate:"notblank,max=200000"`
}

type documentResponse struct {
	FileName string `json:"file_name"`
	FileURL  string `json:"file_url"`
}

func (s *Server) handleCreateDocument(kind documents.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.deps.Files == nil {
			s.unavailable(w, "file storage")
			return
		}
		var req documentRequest
		if !s.decodeAndValidate(w, r, &req) {
			return
		}

		var (
			data []byte
			err  error
		)
		switch kind {
		case documents.KindPDF:
			data, err = documents.RenderPDF(req.Text)
		case documents.KindPPTX:
			data, err = documents.RenderPPTX(documents.SlidesFromText(req.Text))
		default:
			data, err = documents.RenderTXT(req.Text)
		}
		if err != nil {
			if errors.Is(err, documents.ErrEmptyText) {
				respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
				return
			}
			logging.FromCtx(r.Context()).Error().Err(err).Str("kind", string(kind)).Msg("render document failed")
			respondError(w, http.StatusInternalServerError, "render_failed", err.Error())
			return
		}

		name, err := s.deps.Files.Save(kind, data)
		if err != nil {
			logging.FromCtx(r.Context()).Error().Err(err).Str("kind", string(kind)).Msg("save document failed")
			respondError(w, http.StatusInternalServerError, "storage_failed", "could not store document")
			return
		}
		respondJSON(w, http.StatusCreated, documentResponse{
			FileName: name,
			FileURL:  s.cfg.BaseURL + "/files/" + name,
		})
	}
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if s.deps.Files == nil {
		s.unavailable(w, "file storage")
		return
	}
	name := chi.URLParam(r, "name")
	path, kind, err := s.deps.Files.Lookup(name)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) || errors.Is(err, documents.ErrInvalidName) {
			respondError(w, http.StatusNotFound, "file_not_found", "no such file")
			return
		}
		respondError(w, http.StatusInternalServerError, "storage_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", kind.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeFile(w, r, path)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	png, err := documents.RenderGraph("levo sample data", documents.SampleBars)
	if err != nil {
		logging.FromCtx(r.Context()).Error().Err(err).Msg("render graph failed")
		respondError(w, http.StatusInternalServerError, "render_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", documents.KindPNG.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
