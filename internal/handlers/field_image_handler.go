package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"
	"farmfi-backend/internal/services"
	"farmfi-backend/pkg/utils"

	"go.uber.org/zap"
)

// multipartOverhead is allowed on top of the image size for the other form
// parts and boundaries.
const multipartOverhead = 1 << 20

type FieldImageHandler struct {
	Service  *services.PredictionService
	maxBytes int64
	log      *zap.Logger
}

func NewFieldImageHandler(s *services.PredictionService, maxBytes int64, log *zap.Logger) *FieldImageHandler {
	return &FieldImageHandler{Service: s, maxBytes: maxBytes, log: log}
}

// UploadAndPredict handles multipart form fields field_id, crop_data_id
// (optional), plant (optional) and the image in "image" or "file".
func (h *FieldImageHandler) UploadAndPredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.maxBytes + multipartOverhead); err != nil {
		writeError(w, r, h.log, apperr.Validation(fmt.Sprintf("expected a multipart upload with an image of at most %d bytes", h.maxBytes)))
		return
	}
	defer r.MultipartForm.RemoveAll()

	up, err := h.parseUpload(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	d, err := h.Service.UploadAndPredict(r.Context(), identity(r), up)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusCreated, d)
}

func (h *FieldImageHandler) parseUpload(r *http.Request) (*models.PredictionUpload, error) {
	fieldID, err := strconv.Atoi(strings.TrimSpace(r.FormValue("field_id")))
	if err != nil || fieldID <= 0 {
		return nil, apperr.Validation("field_id is required")
	}
	up := &models.PredictionUpload{FieldID: fieldID, Plant: r.FormValue("plant")}

	if v := strings.TrimSpace(r.FormValue("crop_data_id")); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil || id <= 0 {
			return nil, apperr.Validation("invalid crop_data_id")
		}
		up.CropDataID = &id
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		return nil, apperr.Validation("image file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, apperr.Validation("failed to read image")
	}
	up.Filename = header.Filename
	up.ContentType = header.Header.Get("Content-Type")
	up.Data = data
	return up, nil
}

func (h *FieldImageHandler) History(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.History(r.Context(), identity(r))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, list)
}

// View redirects to a fresh presigned URL for the stored image
func (h *FieldImageHandler) View(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	url, err := h.Service.ImageURL(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}
