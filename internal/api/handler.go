package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/safar/inventory-store/internal/database"
	"github.com/safar/inventory-store/internal/logger"
	"github.com/safar/inventory-store/internal/metrics"
	"github.com/safar/inventory-store/internal/models"
	"github.com/safar/inventory-store/internal/store"
)

// ItemRepository is the subset of inventory.Repository the handlers use.
type ItemRepository interface {
	CreateItemWithProperties(ctx context.Context, item *models.InventoryItem, props []models.InventoryItemProperty) (*models.InventoryItem, []models.InventoryItemProperty, error)
	UpdateItemWithProperties(ctx context.Context, item *models.InventoryItem, proposedClock int64, retire []string, props []models.InventoryItemProperty) (*models.InventoryItem, []models.InventoryItemProperty, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	ListItemsPage(ctx context.Context, req store.PageRequest) (*store.OffsetPage, error)
	ListProperties(ctx context.Context, itemID uuid.UUID) ([]models.InventoryItemProperty, error)
	ListUnits(ctx context.Context, itemID uuid.UUID) ([]models.ItemUnit, error)
	AddUnit(ctx context.Context, itemID uuid.UUID) (*models.ItemUnit, error)
	RemoveUnit(ctx context.Context, unitID uuid.UUID) (bool, error)
	TotalUnitCount(ctx context.Context, itemID uuid.UUID) (int64, error)
}

const maxBodyBytes = 1 << 20

type Handler struct {
	repo   ItemRepository
	logger *zap.Logger
}

func NewHandler(repo ItemRepository, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, logger: logger.Named("http")}
}

// Router wires the inventory routes, /healthz and /metrics.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Post("/", h.createItem)
			r.Get("/", h.listItems)

			r.Route("/{itemID}", func(r chi.Router) {
				r.Get("/", h.getItem)
				r.Put("/", h.updateItem)
				r.Get("/properties", h.listProperties)
				r.Get("/units", h.listUnits)
				r.Post("/units", h.addUnit)
				r.Get("/count", h.totalUnitCount)
			})
		})

		r.Delete("/units/{unitID}", h.removeUnit)
	})

	return r
}

type propertyRequest struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type itemRequest struct {
	Name            string            `json:"name"`
	Description     string            `json:"description"`
	PartNumber      string            `json:"part_number"`
	SerialNumber    string            `json:"serial_number"`
	QuantityPerUnit int               `json:"quantity_per_unit"`
	UnitName        string            `json:"unit_name"`
	UserAttributes  models.Attributes `json:"user_attributes"`
	Deleted         bool              `json:"deleted"`
	Properties      []propertyRequest `json:"properties"`
}

type updateItemRequest struct {
	itemRequest
	LamportClock     int64    `json:"lamport_clock"`
	RetireProperties []string `json:"retire_properties"`
}

func (req itemRequest) toModel() (*models.InventoryItem, []models.InventoryItemProperty) {
	item := &models.InventoryItem{
		Name:            req.Name,
		Description:     req.Description,
		PartNumber:      req.PartNumber,
		SerialNumber:    req.SerialNumber,
		QuantityPerUnit: req.QuantityPerUnit,
		UnitName:        req.UnitName,
		UserAttributes:  req.UserAttributes,
		Deleted:         req.Deleted,
	}

	props := make([]models.InventoryItemProperty, 0, len(req.Properties))
	for _, p := range req.Properties {
		props = append(props, models.InventoryItemProperty{PropertyName: p.Name, PropertyValue: p.Value})
	}
	return item, props
}

type itemResponse struct {
	*models.InventoryItem
	Properties []models.InventoryItemProperty `json:"properties"`
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, props := req.toModel()
	created, createdProps, err := h.repo.CreateItemWithProperties(r.Context(), item, props)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, itemResponse{InventoryItem: created, Properties: createdProps})
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	page, _ := strconv.Atoi(query.Get("page"))
	pageSize, _ := strconv.Atoi(query.Get("page_size"))

	result, err := h.repo.ListItemsPage(r.Context(), store.PageRequest{
		Page:      page,
		PageSize:  pageSize,
		OrderBy:   query.Get("order_by"),
		Direction: models.SortDirection(query.Get("direction")),
	})
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	item, err := h.repo.GetItem(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}
	if item == nil {
		respondError(w, http.StatusNotFound, database.ErrItemNotFound.Error())
		return
	}

	props, err := h.repo.ListProperties(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, itemResponse{InventoryItem: item, Properties: props})
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	var req updateItemRequest
	if !decodeBody(w, r, &req) {
		return
	}

	item, props := req.toModel()
	item.ID = id

	updated, added, err := h.repo.UpdateItemWithProperties(r.Context(), item, req.LamportClock, req.RetireProperties, props)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, itemResponse{InventoryItem: updated, Properties: added})
}

func (h *Handler) listProperties(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	props, err := h.repo.ListProperties(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, props)
}

func (h *Handler) listUnits(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	units, err := h.repo.ListUnits(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, units)
}

func (h *Handler) addUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	unit, err := h.repo.AddUnit(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, unit)
}

func (h *Handler) removeUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "unitID")
	if !ok {
		return
	}

	removed, err := h.repo.RemoveUnit(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "unit not found or already removed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) totalUnitCount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	total, err := h.repo.TotalUnitCount(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{"item_id": id, "total": total})
}

func (h *Handler) respondRepoError(w http.ResponseWriter, err error) {
	var (
		conflict   *database.ConflictError
		storageErr *database.StorageError
	)

	switch {
	case errors.Is(err, database.ErrValidation):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &conflict):
		respondJSON(w, http.StatusConflict, map[string]interface{}{
			"error":           conflict.Error(),
			"attempted_clock": conflict.Attempted,
			"current_clock":   conflict.Current,
		})
	case errors.Is(err, database.ErrItemNotFound), errors.Is(err, database.ErrUnitNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, database.ErrLockTimeout):
		respondError(w, http.StatusServiceUnavailable, "item is locked by another writer, retry later")
	case errors.As(err, &storageErr) && storageErr.Transient():
		respondError(w, http.StatusServiceUnavailable, "storage temporarily unavailable")
	default:
		h.logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

// observe records request metrics and an access log line.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(started).Seconds())

		h.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", time.Since(started)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Get().Warn("encode JSON response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
