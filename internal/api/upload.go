package api

import (
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

type uploadHandler struct {
	maxBytes int64
	logger   *slog.Logger
}

func newUploadHandler(maxBytes int64, logger *slog.Logger) *uploadHandler {
	return &uploadHandler{maxBytes: maxBytes, logger: logger}
}

type uploadResponse struct {
	Base64   string `json:"base64"`
	MimeType string `json:"mimeType"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
}

// handle accepts a multipart form with an "image" file field and echoes
// the file back base64-encoded. The server keeps nothing; the client
// attaches the encoded payload to a later chat turn.
func (h *uploadHandler) handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	file, header, err := r.FormFile("image")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.logger, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		writeError(w, h.logger, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, h.logger, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		h.logger.Error("failed to read upload", "filename", header.Filename, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to read image")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	h.logger.Info("image uploaded",
		"filename", header.Filename,
		"mime_type", mimeType,
		"size", len(data))

	writeJSON(w, h.logger, http.StatusOK, uploadResponse{
		Base64:   base64.StdEncoding.EncodeToString(data),
		MimeType: mimeType,
		Filename: header.Filename,
		Size:     int64(len(data)),
	})
}
