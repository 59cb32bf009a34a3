package http

import (
	"io"
	"net/http"
	"path/filepath"

	"peerrent-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// MediaHandler serves evidence and receipt uploads. The services only ever
// persist the URL this handler returns.
type MediaHandler struct {
	media storage.MediaStorage
}

func NewMediaHandler(media storage.MediaStorage) *MediaHandler {
	return &MediaHandler{media: media}
}

var allowedMediaTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"video/mp4":  ".mp4",
}

func (h *MediaHandler) Upload(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	ext, ok := allowedMediaTypes[contentType]
	if !ok {
		http.Error(w, "Unsupported content type", http.StatusBadRequest)
		return
	}

	key := uuid.NewString() + ext
	url, err := h.media.Store(r.Context(), key, contentType, r.Body)
	if err != nil {
		http.Error(w, "Failed to save file", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"key": key, "url": url})
}

func (h *MediaHandler) Download(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]
	file, err := h.media.Read(key)
	if err != nil {
		http.Error(w, "File not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	contentType := "application/octet-stream"
	switch filepath.Ext(key) {
	case ".jpg", ".jpeg":
		contentType = "image/jpeg"
	case ".png":
		contentType = "image/png"
	case ".gif":
		contentType = "image/gif"
	case ".mp4":
		contentType = "video/mp4"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	io.Copy(w, file)
}
