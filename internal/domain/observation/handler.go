package observation

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
	readGroup.GET("/observations", h.List)
	readGroup.GET("/observations/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	writeGroup.POST("/observations", h.Create)
	writeGroup.PUT("/observations/:id", h.Update)
	writeGroup.DELETE("/observations/:id", h.Delete)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	fhirRead.GET("/Observation", h.SearchFHIR)
	fhirRead.POST("/Observation/_search", h.SearchFHIR)
	fhirRead.GET("/Observation/:id", h.GetFHIR)
	fhirRead.GET("/Observation/:id/_history", h.HistoryFHIR)
	fhirRead.GET("/Observation/:id/_history/:vid", h.VreadFHIR)

	fhirWrite := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse"))
	fhirWrite.POST("/Observation", h.CreateFHIR)
	fhirWrite.PUT("/Observation/:id", h.UpdateFHIR)
	fhirWrite.PATCH("/Observation/:id", h.PatchFHIR)
	fhirWrite.DELETE("/Observation/:id", h.DeleteFHIR)
}

// -- REST handlers --

func (h *Handler) Create(c echo.Context) error {
	var o Observation
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
		return echo.NewHTTPError(http.StatusNotFound, "observation not found")
	}
	return c.JSON(http.StatusOK, o)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)

	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		observations, total, err := h.svc.ListByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(observations, total, pg))
	}

	observations, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(observations, total, pg))
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "observation not found")
	}
	var o Observation
	if err := c.Bind(&o); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	o.ID = existing.ID
	o.FHIRID = existing.FHIRID
	o.PatientID = existing.PatientID
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

	observations, total, err := h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(observations))
	for i, o := range observations {
		resources[i] = o.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/Observation",
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
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Observation", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, o.VersionID, o.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, o.ToFHIR())
}

func (h *Handler) CreateFHIR(c echo.Context) error {
	var o Observation
	if err := c.Bind(&o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.Create(c.Request().Context(), &o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Observation/"+o.FHIRID)
	return c.JSON(http.StatusCreated, o.ToFHIR())
}

func (h *Handler) UpdateFHIR(c echo.Context) error {
	existing, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Observation", c.Param("id")))
	}
	var o Observation
	if err := c.Bind(&o); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	o.ID = existing.ID
	o.FHIRID = existing.FHIRID
	o.PatientID = existing.PatientID
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
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Observation", c.Param("id")))
	}

	patched, httpErr := fhir.ApplyPatchBody(c, existing.ToFHIR())
	if httpErr != nil {
		return httpErr
	}

	applyObservationPatch(existing, patched)
	if err := h.svc.Update(ctx, existing); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, existing.ToFHIR())
}

func (h *Handler) DeleteFHIR(c echo.Context) error {
	o, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Observation", c.Param("id")))
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
		entry, err := vt.GetVersion(c.Request().Context(), "Observation", c.Param("id"), vid)
		if err != nil {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Observation", c.Param("id")))
		}
		fhir.SetVersionHeaders(c, entry.VersionID, entry.Timestamp.Format(time.RFC3339))
		return c.JSONBlob(http.StatusOK, entry.Resource)
	}

	o, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil || o.VersionID != vid {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Observation", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, o.VersionID, o.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, o.ToFHIR())
}

func (h *Handler) HistoryFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)

	if vt := h.svc.VersionTracker(); vt != nil {
		entries, total, err := vt.ListVersions(c.Request().Context(), "Observation", c.Param("id"), pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
		}
		if total == 0 {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Observation", c.Param("id")))
		}
		return c.JSON(http.StatusOK, fhir.NewHistoryBundle(entries, total, "/fhir"))
	}

	o, err := h.svc.GetByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Observation", c.Param("id")))
	}
	raw, _ := json.Marshal(o.ToFHIR())
	entry := &fhir.HistoryEntry{
		ResourceType: "Observation", ResourceID: o.FHIRID, VersionID: o.VersionID,
		Resource: raw, Action: "create", Timestamp: o.CreatedAt,
	}
	return c.JSON(http.StatusOK, fhir.NewHistoryBundle([]*fhir.HistoryEntry{entry}, 1, "/fhir"))
}

func applyObservationPatch(o *Observation, patched map[string]interface{}) {
	if v, ok := patched["status"].(string); ok {
		o.Status = v
	}
	if v, ok := patched["valueQuantity"].(map[string]interface{}); ok {
		if val, ok := v["value"].(float64); ok {
			o.ValueQuantity = &val
			o.ValueString = nil
			o.ValueBoolean = nil
			o.ValueConceptCode = nil
		}
		if unit, ok := v["unit"].(string); ok {
			o.ValueUnit = &unit
		}
	}
	if v, ok := patched["valueString"].(string); ok {
		o.ValueString = &v
		o.ValueQuantity = nil
		o.ValueBoolean = nil
		o.ValueConceptCode = nil
	}
	if v, ok := patched["valueBoolean"].(bool); ok {
		o.ValueBoolean = &v
		o.ValueQuantity = nil
		o.ValueString = nil
		o.ValueConceptCode = nil
	}
	if v, ok := patched["note"].([]interface{}); ok && len(v) > 0 {
		if note, ok := v[0].(map[string]interface{}); ok {
			if text, ok := note["text"].(string); ok {
				o.Note = &text
			}
		}
	}
}
