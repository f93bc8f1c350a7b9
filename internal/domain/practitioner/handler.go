package practitioner

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
	readGroup.GET("/practitioners", h.ListPractitioners)
	readGroup.GET("/practitioners/:id", h.GetPractitioner)
	readGroup.GET("/practitioner-roles", h.ListRoles)
	readGroup.GET("/practitioner-roles/:id", h.GetRole)

	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "registrar"))
	writeGroup.POST("/practitioners", h.CreatePractitioner)
	writeGroup.PUT("/practitioners/:id", h.UpdatePractitioner)
	writeGroup.DELETE("/practitioners/:id", h.DeletePractitioner)
	writeGroup.POST("/practitioner-roles", h.CreateRole)
	writeGroup.PUT("/practitioner-roles/:id", h.UpdateRole)
	writeGroup.DELETE("/practitioner-roles/:id", h.DeleteRole)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	fhirRead.GET("/Practitioner", h.SearchPractitionersFHIR)
	fhirRead.POST("/Practitioner/_search", h.SearchPractitionersFHIR)
	fhirRead.GET("/Practitioner/:id", h.GetPractitionerFHIR)
	fhirRead.GET("/Practitioner/:id/_history", h.HistoryPractitionerFHIR)
	fhirRead.GET("/Practitioner/:id/_history/:vid", h.VreadPractitionerFHIR)
	fhirRead.GET("/PractitionerRole", h.SearchRolesFHIR)
	fhirRead.POST("/PractitionerRole/_search", h.SearchRolesFHIR)
	fhirRead.GET("/PractitionerRole/:id", h.GetRoleFHIR)

	fhirWrite := fhirGroup.Group("", auth.RequireRole("admin", "physician", "registrar"))
	fhirWrite.POST("/Practitioner", h.CreatePractitionerFHIR)
	fhirWrite.PUT("/Practitioner/:id", h.UpdatePractitionerFHIR)
	fhirWrite.PATCH("/Practitioner/:id", h.PatchPractitionerFHIR)
	fhirWrite.DELETE("/Practitioner/:id", h.DeletePractitionerFHIR)
	fhirWrite.POST("/PractitionerRole", h.CreateRoleFHIR)
	fhirWrite.PUT("/PractitionerRole/:id", h.UpdateRoleFHIR)
	fhirWrite.DELETE("/PractitionerRole/:id", h.DeleteRoleFHIR)
}

// -- REST handlers --

func (h *Handler) CreatePractitioner(c echo.Context) error {
	var p Practitioner
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePractitioner(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPractitioner(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPractitioner(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "practitioner not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPractitioners(c echo.Context) error {
	pg := pagination.FromContext(c)
	practitioners, total, err := h.svc.ListPractitioners(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(practitioners, total, pg))
}

func (h *Handler) UpdatePractitioner(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetPractitioner(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "practitioner not found")
	}
	var p Practitioner
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p.ID = existing.ID
	p.FHIRID = existing.FHIRID
	p.VersionID = existing.VersionID
	if err := h.svc.UpdatePractitioner(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) DeletePractitioner(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeletePractitioner(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) CreateRole(c echo.Context) error {
	var r PractitionerRole
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateRole(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	r, err := h.svc.GetRole(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "practitioner role not found")
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListRoles(c echo.Context) error {
	pg := pagination.FromContext(c)

	if practitionerID := c.QueryParam("practitioner_id"); practitionerID != "" {
		pid, err := uuid.Parse(practitionerID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid practitioner_id")
		}
		roles, total, err := h.svc.ListRolesByPractitioner(c.Request().Context(), pid, pg.Limit, pg.Offset)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(roles, total, pg))
	}

	roles, total, err := h.svc.ListRoles(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(roles, total, pg))
}

func (h *Handler) UpdateRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetRole(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "practitioner role not found")
	}
	var r PractitionerRole
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.ID = existing.ID
	r.FHIRID = existing.FHIRID
	r.PractitionerID = existing.PractitionerID
	r.VersionID = existing.VersionID
	if err := h.svc.UpdateRole(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) DeleteRole(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRole(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- FHIR Practitioner handlers --

func (h *Handler) SearchPractitionersFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := fhir.ExtractSearchParams(c)

	practitioners, total, err := h.svc.SearchPractitioners(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(practitioners))
	for i, p := range practitioners {
		resources[i] = p.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/Practitioner",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetPractitionerFHIR(c echo.Context) error {
	p, err := h.svc.GetPractitionerByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, p.VersionID, p.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, p.ToFHIR())
}

func (h *Handler) CreatePractitionerFHIR(c echo.Context) error {
	var p Practitioner
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreatePractitioner(c.Request().Context(), &p); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Practitioner/"+p.FHIRID)
	return c.JSON(http.StatusCreated, p.ToFHIR())
}

func (h *Handler) UpdatePractitionerFHIR(c echo.Context) error {
	existing, err := h.svc.GetPractitionerByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
	}
	var p Practitioner
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	p.ID = existing.ID
	p.FHIRID = existing.FHIRID
	p.VersionID = existing.VersionID
	if err := h.svc.UpdatePractitioner(c.Request().Context(), &p); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, p.ToFHIR())
}

func (h *Handler) PatchPractitionerFHIR(c echo.Context) error {
	ctx := c.Request().Context()
	existing, err := h.svc.GetPractitionerByFHIRID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
	}

	patched, httpErr := fhir.ApplyPatchBody(c, existing.ToFHIR())
	if httpErr != nil {
		return httpErr
	}

	applyPractitionerPatch(existing, patched)
	if err := h.svc.UpdatePractitioner(ctx, existing); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, existing.ToFHIR())
}

func (h *Handler) DeletePractitionerFHIR(c echo.Context) error {
	p, err := h.svc.GetPractitionerByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
	}
	if err := h.svc.DeletePractitioner(c.Request().Context(), p.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) VreadPractitionerFHIR(c echo.Context) error {
	vid, err := strconv.Atoi(c.Param("vid"))
	if err != nil || vid < 1 {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid version id"))
	}

	if vt := h.svc.VersionTracker(); vt != nil {
		entry, err := vt.GetVersion(c.Request().Context(), "Practitioner", c.Param("id"), vid)
		if err != nil {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
		}
		fhir.SetVersionHeaders(c, entry.VersionID, entry.Timestamp.Format(time.RFC3339))
		return c.JSONBlob(http.StatusOK, entry.Resource)
	}

	p, err := h.svc.GetPractitionerByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil || p.VersionID != vid {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, p.VersionID, p.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, p.ToFHIR())
}

func (h *Handler) HistoryPractitionerFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)

	if vt := h.svc.VersionTracker(); vt != nil {
		entries, total, err := vt.ListVersions(c.Request().Context(), "Practitioner", c.Param("id"), pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
		}
		if total == 0 {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
		}
		return c.JSON(http.StatusOK, fhir.NewHistoryBundle(entries, total, "/fhir"))
	}

	p, err := h.svc.GetPractitionerByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Practitioner", c.Param("id")))
	}
	raw, _ := json.Marshal(p.ToFHIR())
	entry := &fhir.HistoryEntry{
		ResourceType: "Practitioner", ResourceID: p.FHIRID, VersionID: p.VersionID,
		Resource: raw, Action: "create", Timestamp: p.CreatedAt,
	}
	return c.JSON(http.StatusOK, fhir.NewHistoryBundle([]*fhir.HistoryEntry{entry}, 1, "/fhir"))
}

// -- FHIR PractitionerRole handlers --

func (h *Handler) SearchRolesFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := fhir.ExtractSearchParams(c)

	roles, total, err := h.svc.SearchRoles(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(roles))
	for i, r := range roles {
		resources[i] = r.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/PractitionerRole",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetRoleFHIR(c echo.Context) error {
	r, err := h.svc.GetRoleByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("PractitionerRole", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, r.VersionID, r.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, r.ToFHIR())
}

func (h *Handler) CreateRoleFHIR(c echo.Context) error {
	var r PractitionerRole
	if err := c.Bind(&r); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreateRole(c.Request().Context(), &r); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/PractitionerRole/"+r.FHIRID)
	return c.JSON(http.StatusCreated, r.ToFHIR())
}

func (h *Handler) UpdateRoleFHIR(c echo.Context) error {
	existing, err := h.svc.GetRoleByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("PractitionerRole", c.Param("id")))
	}
	var r PractitionerRole
	if err := c.Bind(&r); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	r.ID = existing.ID
	r.FHIRID = existing.FHIRID
	r.PractitionerID = existing.PractitionerID
	r.VersionID = existing.VersionID
	if err := h.svc.UpdateRole(c.Request().Context(), &r); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, r.ToFHIR())
}

func (h *Handler) DeleteRoleFHIR(c echo.Context) error {
	r, err := h.svc.GetRoleByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("PractitionerRole", c.Param("id")))
	}
	if err := h.svc.DeleteRole(c.Request().Context(), r.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

func applyPractitionerPatch(p *Practitioner, patched map[string]interface{}) {
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
}
