package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/LUCIFER14144/email-marketing-platform/internal/middleware"
	"github.com/LUCIFER14144/email-marketing-platform/internal/provider"
	"github.com/LUCIFER14144/email-marketing-platform/internal/recipients"
)

const (
	maxUploadSize = 10 << 20
	previewSize   = 10
)

// readUpload returns the named multipart file's name and contents
func readUpload(r *http.Request, field string) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return "", nil, err
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// Providers lists the caller's providers without credentials
func (h *Handler) Providers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"providers": h.campaignSvc.Providers(middleware.GetUsername(r.Context())),
	})
}

// UploadSMTP merges an uploaded credentials file into the caller's providers
func (h *Handler) UploadSMTP(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(r, "smtpFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	username := middleware.GetUsername(r.Context())
	count, err := h.campaignSvc.UploadProviders(username, name, data)
	if err != nil {
		if errors.Is(err, provider.ErrEmptyFile) {
			writeError(w, http.StatusBadRequest, "No valid SMTP configurations found in file")
			return
		}
		writeError(w, http.StatusBadRequest, "Failed to parse SMTP file: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   fmt.Sprintf("Successfully loaded %d SMTP configuration(s)", count),
		"providers": h.campaignSvc.Providers(username),
	})
}

// UploadEmails parses a recipient list and returns a preview
func (h *Handler) UploadEmails(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(r, "emailFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}

	list, err := h.campaignSvc.ParseRecipients(name, data)
	if err != nil {
		if errors.Is(err, recipients.ErrUnsupported) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("failed to process email file")
		writeError(w, http.StatusInternalServerError, "Failed to process email file")
		return
	}

	preview := list
	if len(preview) > previewSize {
		preview = preview[:previewSize]
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"message":    fmt.Sprintf("Successfully loaded %d email address(es)", len(list)),
		"emails":     preview,
		"totalCount": len(list),
	})
}
