package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/ent0n29/levo/internal/media"
)

const maxUploadBytes = 10 << 20

type visionResponse struct {
	Response string `json:"response"`
}

type imageRequest struct {
	Prompt string `json:"prompt" validate:"notblank,max=4000"`
}

type imageResponse struct {
	ImageURL string `json:"image_url"`
}

func (s *Server) handleVision(w http.ResponseWriter, r *http.Request) {
	if s.deps.Vision == nil {
		s.unavailable(w, "vision")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", "multipart field \"file\" is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", err.Error())
		return
	}

	text, err := s.deps.Vision.Describe(r.Context(), data, header.Header.Get("Content-Type"), r.FormValue("prompt"))
	if err != nil {
		s.respondMediaError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, visionResponse{Response: text})
}

func (s *Server) handleImageGenerate(w http.ResponseWriter, r *http.Request) {
	if s.deps.Images == nil {
		s.unavailable(w, "image generation")
		return
	}
	var req imageRequest
	if !s.decodeAndValidate(w, r, &req) {
		return
	}
	imageURL, err := s.deps.Images.Generate(r.Context(), req.Prompt)
	if err != nil {
		s.respondMediaError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, imageResponse{ImageURL: imageURL})
}

func (s *Server) respondMediaError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, media.ErrEmptyImage), errors.Is(err, media.ErrNotImage), errors.Is(err, media.ErrEmptyPrompt):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, media.ErrNotConfigured):
		s.unavailable(w, "media provider")
	default:
		status, code, _ := s.describeError(r.Context(), err)
		respondError(w, status, code, err.Error())
	}
}
