package clinical

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
	readGroup.GET("/conditions", h.ListConditions)
	readGroup.GET("/conditions/:id", h.GetCondition)
	readGroup.GET("/allergies", h.ListAllergies)
	readGroup.GET("/allergies/:id", h.GetAllergy)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	writeGroup.POST("/conditions", h.CreateCondition)
	writeGroup.PUT("/conditions/:id", h.UpdateCondition)
	writeGroup.DELETE("/conditions/:id", h.DeleteCondition)
	writeGroup.POST("/allergies", h.CreateAllergy)
	writeGroup.PUT("/allergies/:id", h.UpdateAllergy)
	writeGroup.DELETE("/allergies/:id", h.DeleteAllergy)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	fhirRead.GET("/Condition", h.SearchConditionsFHIR)
	fhirRead.POST("/Condition/_search", h.SearchConditionsFHIR)
	fhirRead.GET("/Condition/:id", h.GetConditionFHIR)
	fhirRead.GET("/Condition/:id/_history", h.HistoryConditionFHIR)
	fhirRead.GET("/Condition/:id/_history/:vid", h.VreadConditionFHIR)
	fhirRead.GET("/AllergyIntolerance", h.SearchAllergiesFHIR)
	fhirRead.POST("/AllergyIntolerance/_search", h.SearchAllergiesFHIR)
	fhirRead.GET("/AllergyIntolerance/:id", h.GetAllergyFHIR)

	fhirWrite := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse"))
	fhirWrite.POST("/Condition", h.CreateConditionFHIR)
	fhirWrite.PUT("/Condition/:id", h.UpdateConditionFHIR)
	fhirWrite.PATCH("/Condition/:id", h.PatchConditionFHIR)
	fhirWrite.DELETE("/Condition/:id", h.DeleteConditionFHIR)
	fhirWrite.POST("/AllergyIntolerance", h.CreateAllergyFHIR)
	fhirWrite.PUT("/AllergyIntolerance/:id", h.UpdateAllergyFHIR)
	fhirWrite.DELETE("/AllergyIntolerance/:id", h.DeleteAllergyFHIR)
}

// -- REST Condition handlers --

func (h *Handler) CreateCondition(c echo.Context) error {
	var cond Condition
	if err := c.Bind(&cond); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCondition(c.Request().Context(), &cond); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, cond)
}

func (h *Handler) GetCondition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cond, err := h.svc.GetCondition(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "condition not found")
	}
	return c.JSON(http.StatusOK, cond)
}

func (h *Handler) ListConditions(c echo.Context) error {
	pg := pagination.FromContext(c)

	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		conditions, total, err := h.svc.ListConditionsByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(conditions, total, pg))
	}

	conditions, total, err := h.svc.ListConditions(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(conditions, total, pg))
}

func (h *Handler) UpdateCondition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetCondition(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "condition not found")
	}
	var cond Condition
	if err := c.Bind(&cond); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cond.ID = existing.ID
	cond.FHIRID = existing.FHIRID
	cond.PatientID = existing.PatientID
	cond.VersionID = existing.VersionID
	if err := h.svc.UpdateCondition(c.Request().Context(), &cond); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, cond)
}

func (h *Handler) DeleteCondition(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCondition(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- REST AllergyIntolerance handlers --

func (h *Handler) CreateAllergy(c echo.Context) error {
	var a AllergyIntolerance
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateAllergy(c.Request().Context(), &a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAllergy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAllergy(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "allergy not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAllergies(c echo.Context) error {
	pg := pagination.FromContext(c)

	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		allergies, total, err := h.svc.ListAllergiesByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(allergies, total, pg))
	}

	allergies, total, err := h.svc.ListAllergies(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(allergies, total, pg))
}

func (h *Handler) UpdateAllergy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetAllergy(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "allergy not found")
	}
	var a AllergyIntolerance
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = existing.ID
	a.FHIRID = existing.FHIRID
	a.PatientID = existing.PatientID
	a.VersionID = existing.VersionID
	if err := h.svc.UpdateAllergy(c.Request().Context(), &a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAllergy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteAllergy(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- FHIR Condition handlers --

func (h *Handler) SearchConditionsFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := fhir.ExtractSearchParams(c)

	conditions, total, err := h.svc.SearchConditions(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(conditions))
	for i, cond := range conditions {
		resources[i] = cond.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/Condition",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetConditionFHIR(c echo.Context) error {
	cond, err := h.svc.GetConditionByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Condition", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, cond.VersionID, cond.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, cond.ToFHIR())
}

func (h *Handler) CreateConditionFHIR(c echo.Context) error {
	var cond Condition
	if err := c.Bind(&cond); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreateCondition(c.Request().Context(), &cond); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Condition/"+cond.FHIRID)
	return c.JSON(http.StatusCreated, cond.ToFHIR())
}

func (h *Handler) UpdateConditionFHIR(c echo.Context) error {
	existing, err := h.svc.GetConditionByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Condition", c.Param("id")))
	}
	var cond Condition
	if err := c.Bind(&cond); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	cond.ID = existing.ID
	cond.FHIRID = existing.FHIRID
	cond.PatientID = existing.PatientID
	cond.VersionID = existing.VersionID
	if err := h.svc.UpdateCondition(c.Request().Context(), &cond); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, cond.ToFHIR())
}

func (h *Handler) PatchConditionFHIR(c echo.Context) error {
	ctx := c.Request().Context()
	existing, err := h.svc.GetConditionByFHIRID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Condition", c.Param("id")))
	}

	patched, httpErr := fhir.ApplyPatchBody(c, existing.ToFHIR())
	if httpErr != nil {
		return httpErr
	}

	applyConditionPatch(existing, patched)
	if err := h.svc.UpdateCondition(ctx, existing); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, existing.ToFHIR())
}

func (h *Handler) DeleteConditionFHIR(c echo.Context) error {
	cond, err := h.svc.GetConditionByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Condition", c.Param("id")))
	}
	if err := h.svc.DeleteCondition(c.Request().Context(), cond.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) VreadConditionFHIR(c echo.Context) error {
	vid, err := strconv.Atoi(c.Param("vid"))
	if err != nil || vid < 1 {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid version id"))
	}

	if vt := h.svc.VersionTracker(); vt != nil {
		entry, err := vt.GetVersion(c.Request().Context(), "Condition", c.Param("id"), vid)
		if err != nil {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Condition", c.Param("id")))
		}
		fhir.SetVersionHeaders(c, entry.VersionID, entry.Timestamp.Format(time.RFC3339))
		return c.JSONBlob(http.StatusOK, entry.Resource)
	}

	cond, err := h.svc.GetConditionByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil || cond.VersionID != vid {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Condition", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, cond.VersionID, cond.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, cond.ToFHIR())
}

func (h *Handler) HistoryConditionFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)

	if vt := h.svc.VersionTracker(); vt != nil {
		entries, total, err := vt.ListVersions(c.Request().Context(), "Condition", c.Param("id"), pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
		}
		if total == 0 {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Condition", c.Param("id")))
		}
		return c.JSON(http.StatusOK, fhir.NewHistoryBundle(entries, total, "/fhir"))
	}

	cond, err := h.svc.GetConditionByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Condition", c.Param("id")))
	}
	raw, _ := json.Marshal(cond.ToFHIR())
	entry := &fhir.HistoryEntry{
		ResourceType: "Condition", ResourceID: cond.FHIRID, VersionID: cond.VersionID,
		Resource: raw, Action: "create", Timestamp: cond.CreatedAt,
	}
	return c.JSON(http.StatusOK, fhir.NewHistoryBundle([]*fhir.HistoryEntry{entry}, 1, "/fhir"))
}

// -- FHIR AllergyIntolerance handlers --

func (h *Handler) SearchAllergiesFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := fhir.ExtractSearchParams(c)

	allergies, total, err := h.svc.SearchAllergies(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(allergies))
	for i, a := range allergies {
		resources[i] = a.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/AllergyIntolerance",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetAllergyFHIR(c echo.Context) error {
	a, err := h.svc.GetAllergyByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("AllergyIntolerance", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, a.VersionID, a.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, a.ToFHIR())
}

func (h *Handler) CreateAllergyFHIR(c echo.Context) error {
	var a AllergyIntolerance
	if err := c.Bind(&a); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreateAllergy(c.Request().Context(), &a); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/AllergyIntolerance/"+a.FHIRID)
	return c.JSON(http.StatusCreated, a.ToFHIR())
}

func (h *Handler) UpdateAllergyFHIR(c echo.Context) error {
	existing, err := h.svc.GetAllergyByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("AllergyIntolerance", c.Param("id")))
	}
	var a AllergyIntolerance
	if err := c.Bind(&a); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	a.ID = existing.ID
	a.FHIRID = existing.FHIRID
	a.PatientID = existing.PatientID
	a.VersionID = existing.VersionID
	if err := h.svc.UpdateAllergy(c.Request().Context(), &a); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, a.ToFHIR())
}

func (h *Handler) DeleteAllergyFHIR(c echo.Context) error {
	a, err := h.svc.GetAllergyByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("AllergyIntolerance", c.Param("id")))
	}
	if err := h.svc.DeleteAllergy(c.Request().Context(), a.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

func applyConditionPatch(cond *Condition, patched map[string]interface{}) {
	if v, ok := patched["clinicalStatus"].(map[string]interface{}); ok {
		if coding, ok := v["coding"].([]interface{}); ok && len(coding) > 0 {
			if code, ok := coding[0].(map[string]interface{}); ok {
				if cs, ok := code["code"].(string); ok {
					cond.ClinicalStatus = cs
				}
			}
		}
	}
	if v, ok := patched["abatementDateTime"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			cond.AbatementDateTime = &t
		}
	}
	if v, ok := patched["note"].([]interface{}); ok && len(v) > 0 {
		if note, ok := v[0].(map[string]interface{}); ok {
			if text, ok := note["text"].(string); ok {
				cond.Note = &text
			}
		}
	}
}
