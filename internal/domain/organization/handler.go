package organization

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medrec/medrec/internal/platform/auth"
	"github.com/medrec/medrec/internal/platform/fhir"
	"github.com/medrec/medrec/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, fhirGroup *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	readGroup.GET("/organizations", h.List)
	readGroup.GET("/organizations/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "registrar"))
	writeGroup.POST("/organizations", h.Create)
	writeGroup.PUT("/organizations/:id", h.Update)
	writeGroup.DELETE("/organizations/:id", h.Delete)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	fhirRead.GET("/Organization", h.SearchFHIR)
	fhirRead.POST("/Organization/_search", h.SearchFHIR)
	fhirRead.GET("/Organization/:id", h.GetFHIR)
	fhirRead.GET("/Organization/:id/_history", h.HistoryFHIR)
	fhirRead.GET("/Organization/:id/_history/:vid", h.VreadFHIR)

	fhirWrite := fhirGroup.Group("", auth.RequireRole("admin", "registrar"))
	fhirWrite.POST("/Organization", h.CreateFHIR)
	fhirWrite.PUT("/Organization/:id", h.UpdateFHIR)
	fhirWrite.PATCH("/Organization/:id", h.PatchFHIR)
	fhirWrite.DELETE("/Organization/:id", h.DeleteFHIR)
}

// -- REST handlers --

func (h *Handler) Create(c echo.Context) error {
	o := Organization{Active: true}
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	o, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "organization not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	orgs, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(orgs, total, pg))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "organization not found")
	}
	var o Organization
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.ID = existing.ID
	o.FHIRID = existing.FHIRID
	o.VersionID = existing.VersionID
	if err := h.svc.Update(c.Request().Context(), &o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- FHIR handlers --

func (h *Handler) SearchFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := fhir.ExtractSearchParams(c)

	orgs, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(orgs))
	for i, o := range orgs {
		resources[i] = o.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/Organization",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetFHIR(c echo.Context) error {
	o, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, o.VersionID, o.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, o.ToFHIR())
}

func (h *Handler) CreateFHIR(c echo.Context) error {
	o := Organization{Active: true}
	if err := c.Bind(&o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.Create(c.Request().Context(), &o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Organization/"+o.FHIRID)
	return c.JSON(http.StatusCreated, o.ToFHIR())
}

func (h *Handler) UpdateFHIR(c echo.Context) error {
	existing, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
	}
	var o Organization
	if err := c.Bind(&o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	o.ID = existing.ID
	o.FHIRID = existing.FHIRID
	o.VersionID = existing.VersionID
	if err := h.svc.Update(c.Request().Context(), &o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, o.ToFHIR())
}

func (h *Handler) PatchFHIR(c echo.Context) error {
	ctx := c.Request().Context()
	existing, err := h.svc.GetByFHIRID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
	}

	patched, httpErr := fhir.ApplyPatchBody(c, existing.ToFHIR())
	if httpErr != nil {
		return httpErr
	}

	applyOrganizationPatch(existing, patched)
	if err := h.svc.Update(ctx, existing); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, existing.ToFHIR())
}

func (h *Handler) DeleteFHIR(c echo.Context) error {
	o, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
	}
	if err := h.svc.Delete(c.Request().Context(), o.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) VreadFHIR(c echo.Context) error {
	vid, err := strconv.Atoi(c.Param("vid"))
	if err != nil || vid < 1 {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid version id"))
	}

	if vt := h.svc.VersionTracker(); vt != nil {
		entry, err := vt.GetVersion(c.Request().Context(), "Organization", c.Param("id"), vid)
		if err != nil {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
		}
		fhir.SetVersionHeaders(c, entry.VersionID, entry.Timestamp.Format(time.RFC3339))
		return c.JSONBlob(http.StatusOK, entry.Resource)
	}

	o, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil || o.VersionID != vid {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, o.VersionID, o.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, o.ToFHIR())
}

func (h *Handler) HistoryFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)

	if vt := h.svc.VersionTracker(); vt != nil {
		entries, total, err := vt.ListVersions(c.Request().Context(), "Organization", c.Param("id"), pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
		}
		if total == 0 {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
		}
		return c.JSON(http.StatusOK, fhir.NewHistoryBundle(entries, total, "/fhir"))
	}

	o, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Organization", c.Param("id")))
	}
	raw, _ := json.Marshal(o.ToFHIR())
	entry := &fhir.HistoryEntry{
		ResourceType: "Organization", ResourceID: o.FHIRID, VersionID: o.VersionID,
		Resource: raw, Action: "create", Timestamp: o.CreatedAt,
	}
	return c.JSON(http.StatusOK, fhir.NewHistoryBundle([]*fhir.HistoryEntry{entry}, 1, "/fhir"))
}

func applyOrganizationPatch(o *Organization, patched map[string]interface{}) {
	if v, ok := patched["active"].(bool); ok {
		o.Active = v
	}
	if v, ok := patched["name"].(string); ok {
		o.Name = &v
	}
	if v, ok := patched["alias"].([]interface{}); ok && len(v) > 0 {
		if alias, ok := v[0].(string); ok {
			o.Alias = &alias
		}
	}
	if v, ok := patched["type"].([]interface{}); ok && len(v) > 0 {
		if cc, ok := v[0].(map[string]interface{}); ok {
			if coding, ok := cc["coding"].([]interface{}); ok && len(coding) > 0 {
				if code, ok := coding[0].(map[string]interface{}); ok {
					if c, ok := code["code"].(string); ok {
						o.TypeCode = &c
					}
					if d, ok := code["display"].(string); ok {
						o.TypeDisplay = &d
					}
				}
			}
		}
	}
}
