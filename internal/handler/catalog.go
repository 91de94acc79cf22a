package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/AhmedTUD/invoice/internal/middleware"
	"github.com/AhmedTUD/invoice/internal/model"
	"github.com/AhmedTUD/invoice/internal/queue"
	"github.com/AhmedTUD/invoice/internal/repository"
	"github.com/AhmedTUD/invoice/internal/service"
)

// CatalogHandler manages product models. Reads may be served from the Redis
// response cache; every successful mutation invalidates it.
type CatalogHandler struct {
	Catalog     *repository.CatalogRepo
	Redis       *redis.Client
	CachePrefix string
	Audit       service.AuditPublisher
	Now         func() time.Time
}

func NewCatalogHandler(r *repository.CatalogRepo, rdb *redis.Client, cachePrefix string, audit service.AuditPublisher) *CatalogHandler {
	if audit == nil {
		audit = service.NopPublisher{}
	}
	return &CatalogHandler{Catalog: r, Redis: rdb, CachePrefix: cachePrefix, Audit: audit, Now: time.Now}
}

type catalogReq struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

func (r catalogReq) toModel(active bool) (model.CatalogModel, bool) {
	m := model.CatalogModel{
		Name:        strings.TrimSpace(r.Name),
		Category:    strings.TrimSpace(r.Category),
		Description: strings.TrimSpace(r.Description),
		IsActive:    active,
	}
	if r.IsActive != nil {
		m.IsActive = *r.IsActive
	}
	return m, m.Name != "" && m.Category != ""
}

func (h *CatalogHandler) List(c echo.Context) error { return h.list(c, false) }

func (h *CatalogHandler) ListActive(c echo.Context) error { return h.list(c, true) }

func (h *CatalogHandler) list(c echo.Context, activeOnly bool) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	list, err := h.Catalog.List(ctx, activeOnly)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, echo.Map{"data": list})
}

func (h *CatalogHandler) Create(c echo.Context) error {
	var req catalogReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, http.StatusBadRequest, "invalid body")
	}
	m, valid := req.toModel(true)
	if !valid {
		return failMsg(c, http.StatusBadRequest, "name and category are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	created, err := h.Catalog.Create(ctx, m, h.Now())
	if err != nil {
		return fail(c, err)
	}
	h.changed(c, "created", created.Name)
	return ok(c, echo.Map{"message": "model created", "id": created.ID, "data": created})
}

// Update replaces the model's attributes. An omitted isActive keeps the
// current value. Invoices keep the name they were submitted with.
func (h *CatalogHandler) Update(c echo.Context) error {
	var req catalogReq
	if err := c.Bind(&req); err != nil {
		return failMsg(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	id := c.Param("id")
	cur, err := h.Catalog.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	m, valid := req.toModel(cur.IsActive)
	if !valid {
		return failMsg(c, http.StatusBadRequest, "name and category are required")
	}
	updated, err := h.Catalog.Update(ctx, id, m, h.Now())
	if err != nil {
		return fail(c, err)
	}
	h.changed(c, "updated", updated.Name)
	return ok(c, echo.Map{"message": "model updated", "data": updated})
}

// Delete refuses models that invoices still reference and reports how many.
func (h *CatalogHandler) Delete(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	m, err := h.Catalog.Delete(ctx, c.Param("id"))
	if err != nil {
		return fail(c, err)
	}
	h.changed(c, "deleted", m.Name)
	return ok(c, echo.Map{"message": "model " + m.Name + " deleted"})
}

func (h *CatalogHandler) changed(c echo.Context, action, name string) {
	ctx := c.Request().Context()
	if err := middleware.Invalidate(ctx, h.Redis, h.CachePrefix); err != nil {
		middleware.Logger(c).Warn(ctx, "catalog cache invalidation failed", "error", err)
	}
	_ = h.Audit.Publish(ctx, queue.AuditEvent{
		Type:   queue.EventCatalogChanged,
		At:     model.FormatTime(h.Now()),
		Action: action,
		Model:  name,
	})
}

