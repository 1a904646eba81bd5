// Package httpapi exposes the parcel operations and the full data view over
// HTTP. Handlers only decode, call a service and encode; all cache behaviour
// lives below them.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-parcel-cache/aggregate"
	"github.com/goliatone/go-parcel-cache/internal/store"
	"github.com/goliatone/go-parcel-cache/parcels"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	climateDateLayout = "20060102"
	yieldDateLayout   = "2006-01-02"
)

// ParcelService is the write side used by the handlers.
type ParcelService interface {
	GetParcel(ctx context.Context, principal, id uuid.UUID) (*store.Parcel, error)
	ListParcels(ctx context.Context, principal uuid.UUID) ([]store.Parcel, error)
	CreateParcel(ctx context.Context, principal uuid.UUID, in parcels.ParcelInput) (*store.Parcel, error)
	UpdateParcel(ctx context.Context, principal, id uuid.UUID, in parcels.ParcelInput) (*store.Parcel, error)
	DeleteParcel(ctx context.Context, principal, id uuid.UUID) error
	AddPoint(ctx context.Context, principal uuid.UUID, in parcels.PointInput) (*store.ParcelPoint, error)
	DeletePoint(ctx context.Context, principal, id uuid.UUID) error
	AddParcelCrop(ctx context.Context, principal uuid.UUID, in parcels.ParcelCropInput) (*store.ParcelCrop, error)
	DeleteParcelCrop(ctx context.Context, principal, id uuid.UUID) error
	RecordYield(ctx context.Context, principal uuid.UUID, in parcels.YieldInput) (*store.YieldRecord, error)
	UpdateYield(ctx context.Context, principal, id uuid.UUID, in parcels.YieldUpdate) (*store.YieldRecord, error)
	DeleteYield(ctx context.Context, principal, id uuid.UUID) error
	CreateCrop(ctx context.Context, in parcels.CropInput) (*store.Crop, error)
	RenameCrop(ctx context.Context, id uuid.UUID, in parcels.CropInput) (*store.Crop, error)
}

// FullDataService serves the cached composite view.
type FullDataService interface {
	GetFullAggregate(ctx context.Context, principal, parcelID uuid.UUID, rng aggregate.ClimateRange) (*aggregate.FullData, error)
}

// Handler serves the parcel API.
type Handler struct {
	parcels  ParcelService
	fullData FullDataService
	logger   *zap.Logger
	timeout  time.Duration
}

// New creates a Handler. A zero timeout disables the per-request deadline.
func New(parcelService ParcelService, fullData FullDataService, logger *zap.Logger, timeout time.Duration) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		parcels:  parcelService,
		fullData: fullData,
		logger:   logger,
		timeout:  timeout,
	}
}

// Register mounts the API under /api.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		if h.timeout > 0 {
			r.Use(middleware.Timeout(h.timeout))
		}
		r.Use(RequirePrincipal)

		r.Route("/parcels", func(r chi.Router) {
			r.Get("/", h.listParcels)
			r.Post("/", h.createParcel)
			r.Get("/{id}", h.getParcel)
			r.Put("/{id}", h.updateParcel)
			r.Delete("/{id}", h.deleteParcel)
		})
		r.Get("/parcels-full/{id}/full_data", h.getFullData)

		r.Post("/parcel-points", h.addPoint)
		r.Delete("/parcel-points/{id}", h.deletePoint)

		r.Post("/parcel-crops", h.addParcelCrop)
		r.Delete("/parcel-crops/{id}", h.deleteParcelCrop)

		r.Post("/yield-records", h.recordYield)
		r.Put("/yield-records/{id}", h.updateYield)
		r.Delete("/yield-records/{id}", h.deleteYield)

		r.Post("/crops", h.createCrop)
		r.Put("/crops/{id}", h.renameCrop)
	})
}

// Router returns a standalone router with the API registered.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, "id must be a uuid")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.badRequest(w, "invalid request body")
		return false
	}
	return true
}

func principal(r *http.Request) uuid.UUID {
	id, _ := PrincipalFrom(r.Context())
	return id
}

func (h *Handler) getFullData(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	rng := aggregate.ClimateRange{
		Start: r.URL.Query().Get("start"),
		End:   r.URL.Query().Get("end"),
	}
	if err := validation.ValidateStruct(&rng,
		validation.Field(&rng.Start, validation.Date(climateDateLayout)),
		validation.Field(&rng.End, validation.Date(climateDateLayout)),
	); err != nil {
		h.badRequest(w, "start and end must be YYYYMMDD: "+err.Error())
		return
	}

	view, err := h.fullData.GetFullAggregate(r.Context(), principal(r), id, rng)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) listParcels(w http.ResponseWriter, r *http.Request) {
	list, err := h.parcels.ListParcels(r.Context(), principal(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if list == nil {
		list = []store.Parcel{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getParcel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	parcel, err := h.parcels.GetParcel(r.Context(), principal(r), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parcel)
}

func (h *Handler) createParcel(w http.ResponseWriter, r *http.Request) {
	var in parcels.ParcelInput
	if !h.decode(w, r, &in) {
		return
	}
	parcel, err := h.parcels.CreateParcel(r.Context(), principal(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, parcel)
}

func (h *Handler) updateParcel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in parcels.ParcelInput
	if !h.decode(w, r, &in) {
		return
	}
	parcel, err := h.parcels.UpdateParcel(r.Context(), principal(r), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, parcel)
}

func (h *Handler) deleteParcel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.parcels.DeleteParcel(r.Context(), principal(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addPoint(w http.ResponseWriter, r *http.Request) {
	var in parcels.PointInput
	if !h.decode(w, r, &in) {
		return
	}
	point, err := h.parcels.AddPoint(r.Context(), principal(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, point)
}

func (h *Handler) deletePoint(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.parcels.DeletePoint(r.Context(), principal(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type parcelCropRequest struct {
	ParcelID  uuid.UUID `json:"parcel_id"`
	CropID    uuid.UUID `json:"crop_id"`
	PlantedAt string    `json:"planted_at"`
}

func (h *Handler) addParcelCrop(w http.ResponseWriter, r *http.Request) {
	var req parcelCropRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := parcels.ParcelCropInput{ParcelID: req.ParcelID, CropID: req.CropID}
	if req.PlantedAt != "" {
		planted, err := time.Parse(yieldDateLayout, req.PlantedAt)
		if err != nil {
			h.badRequest(w, "planted_at must be YYYY-MM-DD")
			return
		}
		in.PlantedAt = planted
	}

	pc, err := h.parcels.AddParcelCrop(r.Context(), principal(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, pc)
}

func (h *Handler) deleteParcelCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.parcels.DeleteParcelCrop(r.Context(), principal(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type yieldRequest struct {
	ParcelCropID uuid.UUID `json:"parcel_crop_id"`
	YieldAmount  float64   `json:"yield_amount"`
	Date         string    `json:"date"`
}

func (h *Handler) parseYieldDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	date, err := time.Parse(yieldDateLayout, raw)
	if err != nil {
		h.badRequest(w, "date must be YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func (h *Handler) recordYield(w http.ResponseWriter, r *http.Request) {
	var req yieldRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, ok := h.parseYieldDate(w, req.Date)
	if !ok {
		return
	}

	record, err := h.parcels.RecordYield(r.Context(), principal(r), parcels.YieldInput{
		ParcelCropID: req.ParcelCropID,
		YieldAmount:  req.YieldAmount,
		Date:         date,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

func (h *Handler) updateYield(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req yieldRequest
	if !h.decode(w, r, &req) {
		return
	}
	date, ok := h.parseYieldDate(w, req.Date)
	if !ok {
		return
	}

	record, err := h.parcels.UpdateYield(r.Context(), principal(r), id, parcels.YieldUpdate{
		YieldAmount: req.YieldAmount,
		Date:        date,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *Handler) deleteYield(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.parcels.DeleteYield(r.Context(), principal(r), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createCrop(w http.ResponseWriter, r *http.Request) {
	var in parcels.CropInput
	if !h.decode(w, r, &in) {
		return
	}
	crop, err := h.parcels.CreateCrop(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, crop)
}

func (h *Handler) renameCrop(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var in parcels.CropInput
	if !h.decode(w, r, &in) {
		return
	}
	crop, err := h.parcels.RenameCrop(r.Context(), id, in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, crop)
}
