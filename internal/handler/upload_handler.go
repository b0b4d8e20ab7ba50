package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"valour-site/internal/logger"
	"valour-site/internal/richtext"
	"valour-site/internal/service"
	"valour-site/internal/storage"
)

// FileUploader stores admin uploads in their bucket.
type FileUploader interface {
	UploadImage(ctx context.Context, filename, contentType string, body io.Reader) (storage.Object, error)
	UploadDocument(ctx context.Context, filename, contentType string, body io.Reader) (storage.Object, error)
}

// UploadHandler serves the JSON endpoints the admin forms call while a
// draft is open: file uploads and rich-text image edits. Neither writes the
// draft itself; the returned URL or document goes back into the form and is
// saved with it.
type UploadHandler struct {
	uploader FileUploader
	images   *service.ImageService
	maxBytes int64
	log      logger.Logger
}

// NewUploadHandler creates an UploadHandler accepting files up to maxBytes.
func NewUploadHandler(uploader FileUploader, images *service.ImageService, maxBytes int64, log logger.Logger) *UploadHandler {
	return &UploadHandler{uploader: uploader, images: images, maxBytes: maxBytes, log: log}
}

type errorResponse struct {
	Error string `json:"error"`
}

type documentResponse struct {
	Doc    string           `json:"doc"`
	Images []richtext.Image `json:"images,omitempty"`
}

// upload stores one multipart "file" in the bucket named by the URL.
func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	if bucket != storage.BucketImages && bucket != storage.BucketDocuments {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: storage.ErrUnknownBucket.Error()})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a file is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	var obj storage.Object
	if bucket == storage.BucketImages {
		obj, err = h.uploader.UploadImage(r.Context(), header.Filename, contentType, file)
	} else {
		obj, err = h.uploader.UploadDocument(r.Context(), header.Filename, contentType, file)
	}
	if err != nil {
		h.log.Error(err, "Upload to "+bucket+" failed")
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Upload failed: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

func imageOptions(r *http.Request) richtext.ImageOptions {
	return richtext.ImageOptions{
		Alignment: r.FormValue("alignment"),
		Width:     r.FormValue("width"),
		Border:    r.FormValue("border") == "on" || r.FormValue("border") == "true",
		Caption:   r.FormValue("caption"),
	}
}

// imageError maps an image edit failure to a status code.
func (h *UploadHandler) imageError(w http.ResponseWriter, err error) {
	switch {
	case service.IsImageInputError(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, service.ErrUploadFailed):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		h.log.Error(err, "Rich text image edit failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// insertImage adds an image to the posted document, either uploading the
// multipart "file" or using an existing "url". A missing pos appends.
func (h *UploadHandler) insertImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	doc := r.FormValue("doc")
	pos := -1
	if raw := r.FormValue("pos"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "pos must be a number"})
			return
		}
		pos = n
	}
	opts := imageOptions(r)

	var out string
	var err error
	if file, header, ferr := r.FormFile("file"); ferr == nil {
		defer file.Close()
		out, err = h.images.Upload(r.Context(), doc, pos, header.Filename, header.Header.Get("Content-Type"), file, opts)
	} else if url := r.FormValue("url"); url != "" {
		out, err = h.images.Insert(r.Context(), doc, pos, url, opts)
	} else {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "a file or url is required"})
		return
	}
	if err != nil {
		h.imageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Doc: out})
}

func (h *UploadHandler) updateImage(w http.ResponseWriter, r *http.Request) {
	out, err := h.images.Update(r.Context(), r.FormValue("doc"), chi.URLParam(r, "id"), imageOptions(r))
	if err != nil {
		h.imageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Doc: out})
}

func (h *UploadHandler) removeImage(w http.ResponseWriter, r *http.Request) {
	out, err := h.images.Remove(r.Context(), r.FormValue("doc"), chi.URLParam(r, "id"))
	if err != nil {
		h.imageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Doc: out})
}

// listImages returns the editable images of the document with their
// options, assigning ids to legacy images on the way.
func (h *UploadHandler) listImages(w http.ResponseWriter, r *http.Request) {
	out, imgs, err := h.images.List(r.Context(), r.FormValue("doc"))
	if err != nil {
		h.imageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Doc: out, Images: imgs})
}
