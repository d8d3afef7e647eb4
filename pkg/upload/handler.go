package upload

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Handler returns an http.Handler for image uploads.
// Mount it on your router: r.Post("/uploads/avatar", upload.Handler(u, logger))
//
// The handler expects a multipart form with a "file" field and answers
// with the stored File as JSON.
func Handler(u *Uploader, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "upload")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Limit the body before parsing. The multipart envelope needs a
		// little room on top of the file itself.
		limit := u.MaxFileSize() + 64<<10
		if r.ContentLength > limit {
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
				return
			}
			http.Error(w, "Failed to parse form", http.StatusBadRequest)
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "No file provided", http.StatusBadRequest)
			return
		}
		defer file.Close()

		stored, err := u.Upload(r.Context(), header.Filename, header.Size, file)
		switch {
		case errors.Is(err, ErrTooLarge):
			http.Error(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		case errors.Is(err, ErrUnsupportedType):
			http.Error(w, "Unsupported file type", http.StatusUnsupportedMediaType)
			return
		case err != nil:
			logger.Error("upload failed", "filename", header.Filename, "error", err)
			http.Error(w, "Upload failed", http.StatusBadGateway)
			return
		}

		logger.Info("image stored", "key", stored.Key, "size", stored.Size, "type", stored.ContentType)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(stored)
	})
}
