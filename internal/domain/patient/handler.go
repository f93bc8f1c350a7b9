package patient

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
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/:id", h.GetPatient)
	readGroup.GET("/related-persons", h.ListRelatedPersons)
	readGroup.GET("/related-persons/:id", h.GetRelatedPerson)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "registrar"))
	writeGroup.POST("/patients", h.CreatePatient)
	writeGroup.PUT("/patients/:id", h.UpdatePatient)
	writeGroup.DELETE("/patients/:id", h.DeletePatient)
	writeGroup.POST("/related-persons", h.CreateRelatedPerson)
	writeGroup.PUT("/related-persons/:id", h.UpdateRelatedPerson)
	writeGroup.DELETE("/related-persons/:id", h.DeleteRelatedPerson)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	fhirRead.GET("/Patient", h.SearchPatientsFHIR)
	fhirRead.POST("/Patient/_search", h.SearchPatientsFHIR)
	fhirRead.GET("/Patient/:id", h.GetPatientFHIR)
	fhirRead.GET("/Patient/:id/_history", h.HistoryPatientFHIR)
	fhirRead.GET("/Patient/:id/_history/:vid", h.VreadPatientFHIR)
	fhirRead.GET("/RelatedPerson", h.SearchRelatedPersonsFHIR)
	fhirRead.POST("/RelatedPerson/_search", h.SearchRelatedPersonsFHIR)
	fhirRead.GET("/RelatedPerson/:id", h.GetRelatedPersonFHIR)

	fhirWrite := fhirGroup.Group("", auth.RequireRole("admin", "physician", "registrar"))
	fhirWrite.POST("/Patient", h.CreatePatientFHIR)
	fhirWrite.PUT("/Patient/:id", h.UpdatePatientFHIR)
	fhirWrite.PATCH("/Patient/:id", h.PatchPatientFHIR)
	fhirWrite.DELETE("/Patient/:id", h.DeletePatientFHIR)
	fhirWrite.POST("/RelatedPerson", h.CreateRelatedPersonFHIR)
	fhirWrite.PUT("/RelatedPerson/:id", h.UpdateRelatedPersonFHIR)
	fhirWrite.DELETE("/RelatedPerson/:id", h.DeleteRelatedPersonFHIR)
}

// -- REST handlers --

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = existing.ID
	p.FHIRID = existing.FHIRID
	p.VersionID = existing.VersionID
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateRelatedPerson(c echo.Context) error {
	var rp RelatedPerson
	if err := c.Bind(&rp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateRelatedPerson(c.Request().Context(), &rp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rp)
}

func (h *Handler) GetRelatedPerson(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rp, err := h.svc.GetRelatedPerson(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "related person not found")
	}
	return c.JSON(http.StatusOK, rp)
}

func (h *Handler) ListRelatedPersons(c echo.Context) error {
	pg := pagination.FromContext(c)

	if patientID := c.QueryParam("patient_id"); patientID != "" {
		pid, err := uuid.Parse(patientID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		related, total, err := h.svc.ListRelatedPersonsByPatient(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(related, total, pg))
	}

	related, total, err := h.svc.ListRelatedPersons(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(related, total, pg))
}

func (h *Handler) UpdateRelatedPerson(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetRelatedPerson(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "related person not found")
	}
	var rp RelatedPerson
	if err := c.Bind(&rp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rp.ID = existing.ID
	rp.FHIRID = existing.FHIRID
	rp.PatientID = existing.PatientID
	rp.VersionID = existing.VersionID
	if err := h.svc.UpdateRelatedPerson(c.Request().Context(), &rp); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rp)
}

func (h *Handler) DeleteRelatedPerson(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRelatedPerson(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- FHIR Patient handlers --

func (h *Handler) SearchPatientsFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := fhir.ExtractSearchParams(c)

	patients, total, err := h.svc.SearchPatients(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(patients))
	for i, p := range patients {
		resources[i] = p.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/Patient",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetPatientFHIR(c echo.Context) error {
	p, err := h.svc.GetPatientByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, p.VersionID, p.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, p.ToFHIR())
}

func (h *Handler) CreatePatientFHIR(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Patient/"+p.FHIRID)
	return c.JSON(http.StatusCreated, p.ToFHIR())
}

func (h *Handler) UpdatePatientFHIR(c echo.Context) error {
	existing, err := h.svc.GetPatientByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	p.ID = existing.ID
	p.FHIRID = existing.FHIRID
	p.VersionID = existing.VersionID
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, p.ToFHIR())
}

func (h *Handler) DeletePatientFHIR(c echo.Context) error {
	p, err := h.svc.GetPatientByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	if err := h.svc.DeletePatient(c.Request().Context(), p.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) PatchPatientFHIR(c echo.Context) error {
	ctx := c.Request().Context()
	existing, err := h.svc.GetPatientByFHIRID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}

	patched, httpErr := fhir.ApplyPatchBody(c, existing.ToFHIR())
	if httpErr != nil {
		return httpErr
	}

	applyPatientPatch(existing, patched)
	if err := h.svc.UpdatePatient(ctx, existing); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, existing.ToFHIR())
}

func (h *Handler) VreadPatientFHIR(c echo.Context) error {
	vid, err := strconv.Atoi(c.Param("vid"))
	if err != nil || vid < 1 {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid version id"))
	}

	if vt := h.svc.VersionTracker(); vt != nil {
		entry, err := vt.GetVersion(c.Request().Context(), "Patient", c.Param("id"), vid)
		if err != nil {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
		}
		fhir.SetVersionHeaders(c, entry.VersionID, entry.Timestamp.Format(time.RFC3339))
		return c.JSONBlob(http.StatusOK, entry.Resource)
	}

	p, err := h.svc.GetPatientByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil || p.VersionID != vid {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, p.VersionID, p.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, p.ToFHIR())
}

func (h *Handler) HistoryPatientFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)

	if vt := h.svc.VersionTracker(); vt != nil {
		entries, total, err := vt.ListVersions(c.Request().Context(), "Patient", c.Param("id"), pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
		}
		if total == 0 {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
		}
		return c.JSON(http.StatusOK, fhir.NewHistoryBundle(entries, total, "/fhir"))
	}

	p, err := h.svc.GetPatientByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Patient", c.Param("id")))
	}
	raw, _ := json.Marshal(p.ToFHIR())
	entry := &fhir.HistoryEntry{
		ResourceType: "Patient", ResourceID: p.FHIRID, VersionID: p.VersionID,
		Resource: raw, Action: "create", Timestamp: p.CreatedAt,
	}
	return c.JSON(http.StatusOK, fhir.NewHistoryBundle([]*fhir.HistoryEntry{entry}, 1, "/fhir"))
}

// -- FHIR RelatedPerson handlers --

func (h *Handler) SearchRelatedPersonsFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := fhir.ExtractSearchParams(c)

	related, total, err := h.svc.SearchRelatedPersons(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(related))
	for i, rp := range related {
		resources[i] = rp.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/RelatedPerson",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetRelatedPersonFHIR(c echo.Context) error {
	rp, err := h.svc.GetRelatedPersonByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("RelatedPerson", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, rp.VersionID, rp.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, rp.ToFHIR())
}

func (h *Handler) CreateRelatedPersonFHIR(c echo.Context) error {
	var rp RelatedPerson
	if err := c.Bind(&rp); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreateRelatedPerson(c.Request().Context(), &rp); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/RelatedPerson/"+rp.FHIRID)
	return c.JSON(http.StatusCreated, rp.ToFHIR())
}

func (h *Handler) UpdateRelatedPersonFHIR(c echo.Context) error {
	existing, err := h.svc.GetRelatedPersonByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("RelatedPerson", c.Param("id")))
	}
	var rp RelatedPerson
	if err := c.Bind(&rp); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	rp.ID = existing.ID
	rp.FHIRID = existing.FHIRID
	rp.PatientID = existing.PatientID
	rp.VersionID = existing.VersionID
	if err := h.svc.UpdateRelatedPerson(c.Request().Context(), &rp); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, rp.ToFHIR())
}

func (h *Handler) DeleteRelatedPersonFHIR(c echo.Context) error {
	rp, err := h.svc.GetRelatedPersonByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("RelatedPerson", c.Param("id")))
	}
	if err := h.svc.DeleteRelatedPerson(c.Request().Context(), rp.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Patch helpers --

func applyPatientPatch(p *Patient, patched map[string]interface{}) {
	if v, ok := patched["active"].(bool); ok {
		p.Active = v
	}
	if v, ok := patched["gender"].(string); ok {
		p.Gender = &v
	}
	if v, ok := patched["birthDate"].(string); ok {
		if t, err := time.Parse("2006-01-02", v); err == nil {
			p.BirthDate = &t
		}
	}
	if v, ok := patched["name"].([]interface{}); ok && len(v) > 0 {
		if name, ok := v[0].(map[string]interface{}); ok {
			if family, ok := name["family"].(string); ok {
				p.FamilyName = &family
			}
			if given, ok := name["given"].([]interface{}); ok && len(given) > 0 {
				if g, ok := given[0].(string); ok {
					p.GivenName = &g
				}
			}
		}
	}
	if v, ok := patched["deceasedBoolean"].(bool); ok {
		p.DeceasedBoolean = &v
		p.DeceasedDateTime = nil
	}
	if v, ok := patched["deceasedDateTime"].(string); ok {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			p.DeceasedDateTime = &t
			p.DeceasedBoolean = nil
		}
	}
	if v, ok := patched["telecom"].([]interface{}); ok {
		for _, item := range v {
			cp, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			value, _ := cp["value"].(string)
			switch cp["system"] {
			case "phone":
				p.Phone = &value
			case "email":
				p.Email = &value
			}
		}
	}
}
