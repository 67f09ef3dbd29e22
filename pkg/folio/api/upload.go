package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/folio/pkg/folio"
	"github.com/tendant/folio/pkg/folio/objectkey"
)

// Multipart field names
const (
	resumeField = "resume"
	imageField  = "file"
)

// UploadResponse is returned by the resume upload.
type UploadResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// ImageUploadResponse is returned by the image upload.
type ImageUploadResponse struct {
	Message  string `json:"message"`
	ImageURL string `json:"imageUrl"`
	PublicID string `json:"publicId"`
}

// UploadResume stores the posted PDF and records its URL as connect.resumeUrl.
func (h *Handler) UploadResume(w http.ResponseWriter, r *http.Request) {
	file, header, err := h.formFile(w, r, resumeField)
	if err != nil {
		h.writeFormError(w, r, "No file uploaded.", err)
		return
	}
	defer file.Close()

	head, contentType, err := sniff(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Failed to upload resume.", err)
		return
	}
	if declared := header.Header.Get("Content-Type"); contentType == "application/octet-stream" && declared != "" {
		contentType = declared
	}

	key := h.keys.GenerateKey(uuid.New(), &objectkey.KeyMetadata{
		Kind:        objectkey.KindResume,
		FileName:    header.Filename,
		ContentType: contentType,
	})

	asset, err := h.service.AttachAsset(r.Context(), folio.AttachAssetRequest{
		Section:     folio.SectionConnect,
		Field:       folio.FieldResumeURL,
		ObjectKey:   key,
		ContentType: contentType,
		Reader:      io.MultiReader(bytes.NewReader(head), file),
	})
	if err != nil {
		slog.Error("Error uploading resume", "object_key", key, "error", err)
		writeError(w, r, statusFor(err), "Failed to upload resume.", err)
		return
	}

	render.JSON(w, r, UploadResponse{Message: "Upload successful!", URL: asset.URL})
}

// UploadImage stores an image for use in any section and returns its URL.
// The store is not touched; the admin panel saves the URL with the section.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	file, header, err := h.formFile(w, r, imageField)
	if err != nil {
		h.writeFormError(w, r, "No file uploaded", err)
		return
	}
	defer file.Close()

	head, contentType, err := sniff(file)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Something went wrong", err)
		return
	}
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, r, http.StatusUnsupportedMediaType, "Only image uploads are allowed",
			fmt.Errorf("detected content type %s", contentType))
		return
	}

	key := h.keys.GenerateKey(uuid.New(), &objectkey.KeyMetadata{
		Kind:        objectkey.KindImage,
		FileName:    header.Filename,
		ContentType: contentType,
	})

	asset, err := h.service.UploadAsset(r.Context(), folio.UploadAssetRequest{
		ObjectKey:   key,
		ContentType: contentType,
		Reader:      io.MultiReader(bytes.NewReader(head), file),
	})
	if err != nil {
		slog.Error("Error uploading image", "object_key", key, "error", err)
		writeError(w, r, statusFor(err), "Something went wrong", err)
		return
	}

	render.JSON(w, r, ImageUploadResponse{
		Message:  "Image uploaded successfully",
		ImageURL: asset.URL,
		PublicID: asset.ObjectKey,
	})
}

// formFile parses the multipart body under the upload limit and returns the
// named file part.
func (h *Handler) formFile(w http.ResponseWriter, r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if r.ContentLength > h.maxUploadBytes {
		return nil, nil, &http.MaxBytesError{Limit: h.maxUploadBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	maxMemory := h.maxUploadBytes
	if maxMemory > 8<<20 {
		maxMemory = 8 << 20
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, nil, err
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	return file, header, nil
}

func (h *Handler) writeFormError(w http.ResponseWriter, r *http.Request, missingMessage string, err error) {
	if isBodyTooLarge(err) {
		writeError(w, r, http.StatusRequestEntityTooLarge, "File too large.",
			fmt.Errorf("uploads are limited to %d bytes", h.maxUploadBytes))
		return
	}
	writeError(w, r, http.StatusBadRequest, missingMessage, err)
}

// sniff reads the first 512 bytes and detects the content type from them.
// The bytes read are returned so the caller can replay them.
func sniff(file multipart.File) ([]byte, string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(file, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if n == 0 {
		return nil, "", errors.New("uploaded file is empty")
	}
	head := buf[:n]

	return head, http.DetectContentType(head), nil
}
