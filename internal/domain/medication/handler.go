package medication

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
	readGroup.GET("/medications", h.List)
	readGroup.GET("/medications/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician"))
	writeGroup.POST("/medications", h.Create)
	writeGroup.PUT("/medications/:id", h.Update)
	writeGroup.DELETE("/medications/:id", h.Delete)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	fhirRead.GET("/Medication", h.SearchFHIR)
	fhirRead.POST("/Medication/_search", h.SearchFHIR)
	fhirRead.GET("/Medication/:id", h.GetFHIR)
	fhirRead.GET("/Medication/:id/_history", h.HistoryFHIR)
	fhirRead.GET("/Medication/:id/_history/:vid", h.VreadFHIR)

	fhirWrite := fhirGroup.Group("", auth.RequireRole("admin", "physician"))
	fhirWrite.POST("/Medication", h.CreateFHIR)
	fhirWrite.PUT("/Medication/:id", h.UpdateFHIR)
	fhirWrite.PATCH("/Medication/:id", h.PatchFHIR)
	fhirWrite.DELETE("/Medication/:id", h.DeleteFHIR)
}

// -- REST handlers --

func (h *Handler) Create(c echo.Context) error {
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	medications, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(medications, total, pg))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "medication not found")
	}
	var m Medication
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m.ID = existing.ID
	m.FHIRID = existing.FHIRID
	m.VersionID = existing.VersionID
	if err := h.svc.Update(c.Request().Context(), &m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, m)
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

	medications, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(medications))
	for i, m := range medications {
		resources[i] = m.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/Medication",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetFHIR(c echo.Context) error {
	m, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Medication", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, m.VersionID, m.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, m.ToFHIR())
}

func (h *Handler) CreateFHIR(c echo.Context) error {
	var m Medication
	if err := c.Bind(&m); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.Create(c.Request().Context(), &m); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Medication/"+m.FHIRID)
	return c.JSON(http.StatusCreated, m.ToFHIR())
}

func (h *Handler) UpdateFHIR(c echo.Context) error {
	existing, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Medication", c.Param("id")))
	}
	var m Medication
	if err := c.Bind(&m); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	m.ID = existing.ID
	m.FHIRID = existing.FHIRID
	m.VersionID = existing.VersionID
	if err := h.svc.Update(c.Request().Context(), &m); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, m.ToFHIR())
}

func (h *Handler) PatchFHIR(c echo.Context) error {
	ctx := c.Request().Context()
	existing, err := h.svc.GetByFHIRID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Medication", c.Param("id")))
	}

	patched, httpErr := fhir.ApplyPatchBody(c, existing.ToFHIR())
	if httpErr != nil {
		return httpErr
	}

	applyMedicationPatch(existing, patched)
	if err := h.svc.Update(ctx, existing); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, existing.ToFHIR())
}

func (h *Handler) DeleteFHIR(c echo.Context) error {
	m, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Medication", c.Param("id")))
	}
	if err := h.svc.Delete(c.Request().Context(), m.ID); err != nil {
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
		entry, err := vt.GetVersion(c.Request().Context(), "Medication", c.Param("id"), vid)
		if err != nil {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Medication", c.Param("id")))
		}
		fhir.SetVersionHeaders(c, entry.VersionID, entry.Timestamp.Format(time.RFC3339))
		return c.JSONBlob(http.StatusOK, entry.Resource)
	}

	m, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil || m.VersionID != vid {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Medication", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, m.VersionID, m.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, m.ToFHIR())
}

func (h *Handler) HistoryFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)

	if vt := h.svc.VersionTracker(); vt != nil {
		entries, total, err := vt.ListVersions(c.Request().Context(), "Medication", c.Param("id"), pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
		}
		if total == 0 {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Medication", c.Param("id")))
		}
		return c.JSON(http.StatusOK, fhir.NewHistoryBundle(entries, total, "/fhir"))
	}

	m, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Medication", c.Param("id")))
	}
	raw, _ := json.Marshal(m.ToFHIR())
	entry := &fhir.HistoryEntry{
		ResourceType: "Medication", ResourceID: m.FHIRID, VersionID: m.VersionID,
		Resource: raw, Action: "create", Timestamp: m.CreatedAt,
	}
	return c.JSON(http.StatusOK, fhir.NewHistoryBundle([]*fhir.HistoryEntry{entry}, 1, "/fhir"))
}

func applyMedicationPatch(m *Medication, patched map[string]interface{}) {
	if v, ok := patched["status"].(string); ok {
		m.Status = &v
	}
	if v, ok := patched["code"].(map[string]interface{}); ok {
		if coding, ok := v["coding"].([]interface{}); ok && len(coding) > 0 {
			if code, ok := coding[0].(map[string]interface{}); ok {
				if cd, ok := code["code"].(string); ok {
					m.Code = cd
				}
				if d, ok := code["display"].(string); ok {
					m.CodeDisplay = &d
				}
			}
		}
	}
	if v, ok := patched["batch"].(map[string]interface{}); ok {
		if lot, ok := v["lotNumber"].(string); ok {
			m.LotNumber = &lot
		}
		if exp, ok := v["expirationDate"].(string); ok {
			if t, err := time.Parse("2006-01-02", exp); err == nil {
				m.ExpirationDate = &t
			}
		}
	}
}
