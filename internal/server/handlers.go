package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/menta2k/nutrivision/pkg/detection"
	"github.com/menta2k/nutrivision/pkg/processing"
)

// Version is reported by GET /
const Version = "2.0.0"

const serviceName = "ingredient-detection-api"

type errorResponse struct {
	Detail string `json:"detail"`
}

type base64Request struct {
	Image *string `json:"image"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{
		"message": "NutriVision AI - Detección de Ingredientes",
		"version": s.opts.Version,
	}, http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"status":               "healthy",
		"service":              serviceName,
		"ai_service_available": s.detector.Available(r.Context()),
	}, http.StatusOK)
}

// handleDetectUpload handles POST /detect-objects with a multipart "file"
func (s *Server) handleDetectUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload)
	if err := r.ParseMultipartForm(s.opts.MaxUpload); err != nil {
		s.respondBodyError(w, err, "Failed to parse form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		respondError(w, "File must be an image", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	s.detect(w, r, data)
}

// handleDetectBase64 handles POST /detect-objects-base64 with {"image": "..."}
func (s *Server) handleDetectBase64(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload)

	var req base64Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondBodyError(w, err, "Invalid JSON body")
		return
	}
	if req.Image == nil {
		respondError(w, "Missing 'image' field", http.StatusBadRequest)
		return
	}

	data, err := processing.DecodeBase64(*req.Image)
	if err != nil {
		respondError(w, fmt.Sprintf("Error processing base64 image: %v", err), http.StatusBadRequest)
		return
	}

	s.detect(w, r, data)
}

func (s *Server) detect(w http.ResponseWriter, r *http.Request, data []byte) {
	resp, err := s.detector.DetectIngredients(r.Context(), data)
	if err != nil {
		status := statusFor(err)
		entry := s.log.WithError(err).WithField("status", status)
		if id, ok := detection.RequestIDFromContext(r.Context()); ok {
			entry = entry.WithField("request_id", id)
		}
		if status >= http.StatusInternalServerError {
			entry.Error("Detection failed")
		} else {
			entry.Warn("Detection rejected")
		}
		respondError(w, detailFor(err), status)
		return
	}
	respondJSON(w, resp, http.StatusOK)
}

// statusFor maps pipeline errors to HTTP statuses
func statusFor(err error) int {
	switch {
	case errors.Is(err, detection.ErrDecodeFailure):
		return http.StatusBadRequest
	case errors.Is(err, detection.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func detailFor(err error) string {
	switch {
	case errors.Is(err, detection.ErrEmptyImage):
		return "Empty image"
	case errors.Is(err, detection.ErrDecodeFailure):
		return "Could not decode image"
	case errors.Is(err, detection.ErrServiceUnavailable):
		return "Vision model service is not available"
	default:
		return fmt.Sprintf("Internal server error: %v", err)
	}
}

func (s *Server) respondBodyError(w http.ResponseWriter, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respondError(w, fmt.Sprintf("Image exceeds %d MB", s.opts.MaxUpload>>20), http.StatusRequestEntityTooLarge)
		return
	}
	respondError(w, msg, http.StatusBadRequest)
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Debug("Failed to write response")
	}
}

func respondError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, errorResponse{Detail: message}, status)
}
