package handlers

import (
	"context"
	"net/http"

	"farmfi-backend/internal/apperr"
	"farmfi-backend/internal/models"
	"farmfi-backend/internal/services"
	"farmfi-backend/pkg/utils"

	"go.uber.org/zap"
)

// maxImportBytes bounds spreadsheet uploads.
const maxImportBytes = 10 << 20

type CropHandler struct {
	Service   *services.CropService
	Importer  *services.CropImportService
	Locations *services.LocationService
	Approvals ApprovalLogLister
	log       *zap.Logger
}

func NewCropHandler(s *services.CropService, importer *services.CropImportService,
	locations *services.LocationService, approvals ApprovalLogLister, log *zap.Logger) *CropHandler {
	return &CropHandler{Service: s, Importer: importer, Locations: locations, Approvals: approvals, log: log}
}

// Catalog lists the crops that can be planted
func (h *CropHandler) Catalog(w http.ResponseWriter, r *http.Request) {
	crops, err := h.Locations.CropCatalog(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, crops)
}

// Create returns the record and the field's land info after the write. A
// land use violation is a 400 whose details carry the rule and the numbers.
func (h *CropHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CropDataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.Service.Create(r.Context(), identity(r), &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusCreated, res)
}

// List accepts ?field_id=&crop_year=&status=
func (h *CropHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := models.CropDataFilter{Status: r.URL.Query().Get("status")}
	var err error
	if filter.FieldID, err = queryInt(r, "field_id"); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if filter.CropYear, err = queryInt(r, "crop_year"); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if filter.FarmerID, err = queryInt(r, "farmer_id"); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	crops, err := h.Service.List(r.Context(), identity(r), filter)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, crops)
}

func (h *CropHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c, err := h.Service.Get(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

func (h *CropHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req models.CropDataRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	res, err := h.Service.Update(r.Context(), identity(r), id, &req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *CropHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if err := h.Service.Delete(r.Context(), identity(r), id); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LandInfo handles GET /api/crops/land-info?field_id=&crop_year=
func (h *CropHandler) LandInfo(w http.ResponseWriter, r *http.Request) {
	fieldID, err := queryInt(r, "field_id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if fieldID == 0 {
		writeError(w, r, h.log, apperr.Validation("field_id is required"))
		return
	}
	year, err := queryInt(r, "crop_year")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	snap, err := h.Service.LandInfo(r.Context(), identity(r), fieldID, year)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, snap)
}

// Import handles a multipart upload with the workbook in the "file" part
func (h *CropHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		writeError(w, r, h.log, apperr.Validation("expected a multipart upload of at most 10 MB"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.log, apperr.Validation("file is required"))
		return
	}
	defer file.Close()

	res, err := h.Importer.Import(r.Context(), identity(r), file)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *CropHandler) Verify(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Verify)
}

func (h *CropHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Approve)
}

func (h *CropHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	var req models.RejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, apperr.Validation("rejection reason is required"))
		return
	}
	c, err := h.Service.Reject(r.Context(), identity(r), id, req.Reason)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}

// History lists the approval trail of a crop record
func (h *CropHandler) History(w http.ResponseWriter, r *http.Request) {
	approvalHistory(w, r, h.log, h.Approvals, models.EntityCrop,
		func(ctx context.Context, actor models.Identity, id int) error {
			_, err := h.Service.Get(ctx, actor, id)
			return err
		})
}

func (h *CropHandler) transition(w http.ResponseWriter, r *http.Request,
	fn func(ctx context.Context, actor models.Identity, id int) (*models.CropData, error)) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c, err := fn(r.Context(), identity(r), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	utils.JSON(w, http.StatusOK, c)
}
