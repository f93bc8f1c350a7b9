package encounter

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
	readGroup.GET("/encounters", h.List)
	readGroup.GET("/encounters/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	writeGroup.POST("/encounters", h.Create)
	writeGroup.PUT("/encounters/:id", h.Update)
	writeGroup.DELETE("/encounters/:id", h.Delete)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	fhirRead.GET("/Encounter", h.SearchFHIR)
	fhirRead.POST("/Encounter/_search", h.SearchFHIR)
	fhirRead.GET("/Encounter/:id", h.GetFHIR)
	fhirRead.GET("/Encounter/:id/_history", h.HistoryFHIR)
	fhirRead.GET("/Encounter/:id/_history/:vid", h.VreadFHIR)

	fhirWrite := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse"))
	fhirWrite.POST("/Encounter", h.CreateFHIR)
	fhirWrite.PUT("/Encounter/:id", h.UpdateFHIR)
	fhirWrite.PATCH("/Encounter/:id", h.PatchFHIR)
	fhirWrite.DELETE("/Encounter/:id", h.DeleteFHIR)
}

// -- REST handlers --

func (h *Handler) Create(c echo.Context) error {
	var e Encounter
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.Create(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		encounters, total, err := h.svc.ListByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(encounters, total, pg))
	}

	encounters, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(encounters, total, pg))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
	}
	var e Encounter
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.ID = existing.ID
	e.FHIRID = existing.FHIRID
	e.PatientID = existing.PatientID
	e.VersionID = existing.VersionID
	if err := h.svc.Update(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
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

	encounters, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(encounters))
	for i, e := range encounters {
		resources[i] = e.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/Encounter",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetFHIR(c echo.Context) error {
	e, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Encounter", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, e.VersionID, e.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, e.ToFHIR())
}

func (h *Handler) CreateFHIR(c echo.Context) error {
	var e Encounter
	if err := c.Bind(&e); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.Create(c.Request().Context(), &e); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Encounter/"+e.FHIRID)
	return c.JSON(http.StatusCreated, e.ToFHIR())
}

func (h *Handler) UpdateFHIR(c echo.Context) error {
	existing, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Encounter", c.Param("id")))
	}
	var e Encounter
	if err := c.Bind(&e); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	e.ID = existing.ID
	e.FHIRID = existing.FHIRID
	e.PatientID = existing.PatientID
	e.VersionID = existing.VersionID
	if err := h.svc.Update(c.Request().Context(), &e); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, e.ToFHIR())
}

func (h *Handler) PatchFHIR(c echo.Context) error {
	ctx := c.Request().Context()
	existing, err := h.svc.GetByFHIRID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Encounter", c.Param("id")))
	}

	patched, httpErr := fhir.ApplyPatchBody(c, existing.ToFHIR())
	if httpErr != nil {
		return httpErr
	}

	applyEncounterPatch(existing, patched)
	if err := h.svc.Update(ctx, existing); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, existing.ToFHIR())
}

func (h *Handler) DeleteFHIR(c echo.Context) error {
	e, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Encounter", c.Param("id")))
	}
	if err := h.svc.Delete(c.Request().Context(), e.ID); err != nil {
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
		entry, err := vt.GetVersion(c.Request().Context(), "Encounter", c.Param("id"), vid)
		if err != nil {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Encounter", c.Param("id")))
		}
		fhir.SetVersionHeaders(c, entry.VersionID, entry.Timestamp.Format(time.RFC3339))
		return c.JSONBlob(http.StatusOK, entry.Resource)
	}

	e, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil || e.VersionID != vid {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Encounter", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, e.VersionID, e.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, e.ToFHIR())
}

func (h *Handler) HistoryFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)

	if vt := h.svc.VersionTracker(); vt != nil {
		entries, total, err := vt.ListVersions(c.Request().Context(), "Encounter", c.Param("id"), pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
		}
		if total == 0 {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Encounter", c.Param("id")))
		}
		return c.JSON(http.StatusOK, fhir.NewHistoryBundle(entries, total, "/fhir"))
	}

	e, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Encounter", c.Param("id")))
	}
	raw, _ := json.Marshal(e.ToFHIR())
	entry := &fhir.HistoryEntry{
		ResourceType: "Encounter", ResourceID: e.FHIRID, VersionID: e.VersionID,
		Resource: raw, Action: "create", Timestamp: e.CreatedAt,
	}
	return c.JSON(http.StatusOK, fhir.NewHistoryBundle([]*fhir.HistoryEntry{entry}, 1, "/fhir"))
}

func applyEncounterPatch(e *Encounter, patched map[string]interface{}) {
	if v, ok := patched["status"].(string); ok {
		e.Status = v
	}
	if v, ok := patched["class"].([]interface{}); ok && len(v) > 0 {
		if cc, ok := v[0].(map[string]interface{}); ok {
			if coding, ok := cc["coding"].([]interface{}); ok && len(coding) > 0 {
				if code, ok := coding[0].(map[string]interface{}); ok {
					if cls, ok := code["code"].(string); ok {
						e.ClassCode = cls
					}
					if d, ok := code["display"].(string); ok {
						e.ClassDisplay = &d
					}
				}
			}
		}
	}
	if v, ok := patched["actualPeriod"].(map[string]interface{}); ok {
		if start, ok := v["start"].(string); ok {
			if t, err := time.Parse(time.RFC3339, start); err == nil {
				e.ActualStart = &t
			}
		}
		if end, ok := v["end"].(string); ok {
			if t, err := time.Parse(time.RFC3339, end); err == nil {
				e.ActualEnd = &t
			}
		}
	}
}
