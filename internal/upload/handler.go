package upload

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"quizhub/internal/app/apiresp"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultMaxBytes   int64 = 5 << 20
	multipartOverhead int64 = 1 << 20
	sniffLen                = 512
	PublicPrefix            = "/uploads/"
)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

type Handler struct {
	store    BlobStore
	maxBytes int64
}

type Config struct {
	MaxBytes int64
}

func NewHandler(store BlobStore, cfg Config) *Handler {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = defaultMaxBytes
	}
	return &Handler{store: store, maxBytes: cfg.MaxBytes}
}

// Upload stores an image and returns the public path it is served from.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apiresp.WriteError(w, r, http.StatusRequestEntityTooLarge, "File is too large.")
			return
		}
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apiresp.WriteError(w, r, http.StatusBadRequest, "No file uploaded.")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		apiresp.WriteError(w, r, http.StatusRequestEntityTooLarge, "File is too large.")
		return
	}
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		apiresp.WriteError(w, r, http.StatusBadRequest, "Only image files are allowed.")
		return
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		apiresp.WriteError(w, r, http.StatusBadRequest, "invalid file")
		return
	}
	head = head[:n]
	if !strings.HasPrefix(http.DetectContentType(head), "image/") {
		apiresp.WriteError(w, r, http.StatusUnsupportedMediaType, "Only image files are allowed.")
		return
	}

	key, err := h.store.Put(uuid.NewString()+ext, io.MultiReader(bytes.NewReader(head), file))
	if err != nil {
		log.Printf("store upload failed: %v", err)
		apiresp.WriteError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	apiresp.WriteOK(w, r, http.StatusCreated, map[string]string{"path": PublicPrefix + key})
}

// Serve streams a stored file. The route must expose the file name as the
// chi wildcard.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	rc, err := h.store.Open(key)
	if err != nil {
		if errors.Is(err, ErrInvalidKey) || errors.Is(err, fs.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		log.Printf("open upload failed key=%s: %v", key, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if rs, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, key, time.Time{}, rs)
		return
	}
	_, _ = io.Copy(w, rc)
}
