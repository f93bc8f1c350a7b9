package directory

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
	readGroup.GET("/locations", h.ListLocations)
	readGroup.GET("/locations/:id", h.GetLocation)
	readGroup.GET("/healthcare-services", h.ListServices)
	readGroup.GET("/healthcare-services/:id", h.GetService)
	readGroup.GET("/endpoints", h.ListEndpoints)
	readGroup.GET("/endpoints/:id", h.GetEndpoint)

	writeGroup := api.Group("", auth.RequireRole("admin", "registrar"))
	writeGroup.POST("/locations", h.CreateLocation)
	writeGroup.PUT("/locations/:id", h.UpdateLocation)
	writeGroup.DELETE("/locations/:id", h.DeleteLocation)
	writeGroup.POST("/healthcare-services", h.CreateService)
	writeGroup.PUT("/healthcare-services/:id", h.UpdateService)
	writeGroup.DELETE("/healthcare-services/:id", h.DeleteService)
	writeGroup.POST("/endpoints", h.CreateEndpoint)
	writeGroup.PUT("/endpoints/:id", h.UpdateEndpoint)
	writeGroup.DELETE("/endpoints/:id", h.DeleteEndpoint)

	fhirRead := fhirGroup.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	fhirRead.GET("/Location", h.SearchLocationsFHIR)
	fhirRead.POST("/Location/_search", h.SearchLocationsFHIR)
	fhirRead.GET("/Location/:id", h.GetLocationFHIR)
	fhirRead.GET("/Location/:id/_history", h.HistoryLocationFHIR)
	fhirRead.GET("/Location/:id/_history/:vid", h.VreadLocationFHIR)
	fhirRead.GET("/HealthcareService", h.SearchServicesFHIR)
	fhirRead.POST("/HealthcareService/_search", h.SearchServicesFHIR)
	fhirRead.GET("/HealthcareService/:id", h.GetServiceFHIR)
	fhirRead.GET("/Endpoint", h.SearchEndpointsFHIR)
	fhirRead.POST("/Endpoint/_search", h.SearchEndpointsFHIR)
	fhirRead.GET("/Endpoint/:id", h.GetEndpointFHIR)

	fhirWrite := fhirGroup.Group("", auth.RequireRole("admin", "registrar"))
	fhirWrite.POST("/Location", h.CreateLocationFHIR)
	fhirWrite.PUT("/Location/:id", h.UpdateLocationFHIR)
	fhirWrite.PATCH("/Location/:id", h.PatchLocationFHIR)
	fhirWrite.DELETE("/Location/:id", h.DeleteLocationFHIR)
	fhirWrite.POST("/HealthcareService", h.CreateServiceFHIR)
	fhirWrite.PUT("/HealthcareService/:id", h.UpdateServiceFHIR)
	fhirWrite.DELETE("/HealthcareService/:id", h.DeleteServiceFHIR)
	fhirWrite.POST("/Endpoint", h.CreateEndpointFHIR)
	fhirWrite.PUT("/Endpoint/:id", h.UpdateEndpointFHIR)
	fhirWrite.DELETE("/Endpoint/:id", h.DeleteEndpointFHIR)
}

// -- Location REST --

func (h *Handler) CreateLocation(c echo.Context) error {
	var l Location
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateLocation(c.Request().Context(), &l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) GetLocation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	l, err := h.svc.GetLocation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "location not found")
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) ListLocations(c echo.Context) error {
	pg := pagination.FromContext(c)
	locations, total, err := h.svc.ListLocations(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(locations, total, pg))
}

func (h *Handler) UpdateLocation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetLocation(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "location not found")
	}
	var l Location
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l.ID = existing.ID
	l.FHIRID = existing.FHIRID
	l.VersionID = existing.VersionID
	if err := h.svc.UpdateLocation(c.Request().Context(), &l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLocation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteLocation(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Location FHIR --

func (h *Handler) SearchLocationsFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := fhir.ExtractSearchParams(c)

	locations, total, err := h.svc.SearchLocations(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(locations))
	for i, l := range locations {
		resources[i] = l.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/Location",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetLocationFHIR(c echo.Context) error {
	l, err := h.svc.GetLocationByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Location", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, l.VersionID, l.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, l.ToFHIR())
}

func (h *Handler) CreateLocationFHIR(c echo.Context) error {
	var l Location
	if err := c.Bind(&l); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreateLocation(c.Request().Context(), &l); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Location/"+l.FHIRID)
	return c.JSON(http.StatusCreated, l.ToFHIR())
}

func (h *Handler) UpdateLocationFHIR(c echo.Context) error {
	existing, err := h.svc.GetLocationByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Location", c.Param("id")))
	}
	var l Location
	if err := c.Bind(&l); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	l.ID = existing.ID
	l.FHIRID = existing.FHIRID
	l.VersionID = existing.VersionID
	if err := h.svc.UpdateLocation(c.Request().Context(), &l); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, l.ToFHIR())
}

func (h *Handler) PatchLocationFHIR(c echo.Context) error {
	ctx := c.Request().Context()
	existing, err := h.svc.GetLocationByFHIRID(ctx, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Location", c.Param("id")))
	}

	patched, httpErr := fhir.ApplyPatchBody(c, existing.ToFHIR())
	if httpErr != nil {
		return httpErr
	}

	applyLocationPatch(existing, patched)
	if err := h.svc.UpdateLocation(ctx, existing); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, existing.ToFHIR())
}

func (h *Handler) DeleteLocationFHIR(c echo.Context) error {
	l, err := h.svc.GetLocationByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Location", c.Param("id")))
	}
	if err := h.svc.DeleteLocation(c.Request().Context(), l.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) VreadLocationFHIR(c echo.Context) error {
	vid, err := strconv.Atoi(c.Param("vid"))
	if err != nil || vid < 1 {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome("invalid version id"))
	}

	if vt := h.svc.VersionTracker(); vt != nil {
		entry, err := vt.GetVersion(c.Request().Context(), "Location", c.Param("id"), vid)
		if err != nil {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Location", c.Param("id")))
		}
		fhir.SetVersionHeaders(c, entry.VersionID, entry.Timestamp.Format(time.RFC3339))
		return c.JSONBlob(http.StatusOK, entry.Resource)
	}

	l, err := h.svc.GetLocationByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil || l.VersionID != vid {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Location", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, l.VersionID, l.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, l.ToFHIR())
}

func (h *Handler) HistoryLocationFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)

	if vt := h.svc.VersionTracker(); vt != nil {
		entries, total, err := vt.ListVersions(c.Request().Context(), "Location", c.Param("id"), pg.Limit, pg.Offset)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
		}
		if total == 0 {
			return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Location", c.Param("id")))
		}
		return c.JSON(http.StatusOK, fhir.NewHistoryBundle(entries, total, "/fhir"))
	}

	l, err := h.svc.GetLocationByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Location", c.Param("id")))
	}
	raw, _ := json.Marshal(l.ToFHIR())
	entry := &fhir.HistoryEntry{
		ResourceType: "Location", ResourceID: l.FHIRID, VersionID: l.VersionID,
		Resource: raw, Action: "create", Timestamp: l.CreatedAt,
	}
	return c.JSON(http.StatusOK, fhir.NewHistoryBundle([]*fhir.HistoryEntry{entry}, 1, "/fhir"))
}

func applyLocationPatch(l *Location, patched map[string]interface{}) {
	if v, ok := patched["status"].(string); ok {
		l.Status = &v
	}
	if v, ok := patched["name"].(string); ok {
		l.Name = v
	}
	if v, ok := patched["description"].(string); ok {
		l.Description = &v
	}
	if v, ok := patched["mode"].(string); ok {
		l.Mode = &v
	}
}

// -- HealthcareService REST --

func (h *Handler) CreateService(c echo.Context) error {
	hs := HealthcareService{Active: true}
	if err := c.Bind(&hs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateService(c.Request().Context(), &hs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, hs)
}

func (h *Handler) GetService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	hs, err := h.svc.GetService(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "healthcare service not found")
	}
	return c.JSON(http.StatusOK, hs)
}

func (h *Handler) ListServices(c echo.Context) error {
	pg := pagination.FromContext(c)
	services, total, err := h.svc.ListServices(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(services, total, pg))
}

func (h *Handler) UpdateService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetService(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "healthcare service not found")
	}
	var hs HealthcareService
	if err := c.Bind(&hs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hs.ID = existing.ID
	hs.FHIRID = existing.FHIRID
	hs.VersionID = existing.VersionID
	if err := h.svc.UpdateService(c.Request().Context(), &hs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, hs)
}

func (h *Handler) DeleteService(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteService(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- HealthcareService FHIR --

func (h *Handler) SearchServicesFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := fhir.ExtractSearchParams(c)

	services, total, err := h.svc.SearchServices(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(services))
	for i, hs := range services {
		resources[i] = hs.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/HealthcareService",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetServiceFHIR(c echo.Context) error {
	hs, err := h.svc.GetServiceByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("HealthcareService", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, hs.VersionID, hs.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, hs.ToFHIR())
}

func (h *Handler) CreateServiceFHIR(c echo.Context) error {
	hs := HealthcareService{Active: true}
	if err := c.Bind(&hs); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreateService(c.Request().Context(), &hs); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/HealthcareService/"+hs.FHIRID)
	return c.JSON(http.StatusCreated, hs.ToFHIR())
}

func (h *Handler) UpdateServiceFHIR(c echo.Context) error {
	existing, err := h.svc.GetServiceByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("HealthcareService", c.Param("id")))
	}
	var hs HealthcareService
	if err := c.Bind(&hs); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	hs.ID = existing.ID
	hs.FHIRID = existing.FHIRID
	hs.VersionID = existing.VersionID
	if err := h.svc.UpdateService(c.Request().Context(), &hs); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, hs.ToFHIR())
}

func (h *Handler) DeleteServiceFHIR(c echo.Context) error {
	hs, err := h.svc.GetServiceByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("HealthcareService", c.Param("id")))
	}
	if err := h.svc.DeleteService(c.Request().Context(), hs.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Endpoint REST --

func (h *Handler) CreateEndpoint(c echo.Context) error {
	var e Endpoint
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateEndpoint(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

func (h *Handler) GetEndpoint(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.GetEndpoint(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) ListEndpoints(c echo.Context) error {
	pg := pagination.FromContext(c)
	endpoints, total, err := h.svc.ListEndpoints(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(endpoints, total, pg))
}

func (h *Handler) UpdateEndpoint(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	existing, err := h.svc.GetEndpoint(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "endpoint not found")
	}
	var e Endpoint
	if err := c.Bind(&e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	e.ID = existing.ID
	e.FHIRID = existing.FHIRID
	e.VersionID = existing.VersionID
	if err := h.svc.UpdateEndpoint(c.Request().Context(), &e); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteEndpoint(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteEndpoint(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Endpoint FHIR --

func (h *Handler) SearchEndpointsFHIR(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := fhir.ExtractSearchParams(c)

	endpoints, total, err := h.svc.SearchEndpoints(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	resources := make([]interface{}, len(endpoints))
	for i, e := range endpoints {
		resources[i] = e.ToFHIR()
	}
	bundle := fhir.NewSearchBundleWithLinks(resources, fhir.SearchBundleParams{
		ServerBaseURL: fhir.ServerBaseURLFromRequest(c),
		BaseURL:       "/fhir/Endpoint",
		QueryStr:      c.QueryString(),
		Count:         pg.Limit,
		Offset:        pg.Offset,
		Total:         total,
	})
	return c.JSON(http.StatusOK, bundle)
}

func (h *Handler) GetEndpointFHIR(c echo.Context) error {
	e, err := h.svc.GetEndpointByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Endpoint", c.Param("id")))
	}
	fhir.SetVersionHeaders(c, e.VersionID, e.UpdatedAt.Format(time.RFC3339))
	return c.JSON(http.StatusOK, e.ToFHIR())
}

func (h *Handler) CreateEndpointFHIR(c echo.Context) error {
	var e Endpoint
	if err := c.Bind(&e); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	if err := h.svc.CreateEndpoint(c.Request().Context(), &e); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	c.Response().Header().Set("Location", "/fhir/Endpoint/"+e.FHIRID)
	return c.JSON(http.StatusCreated, e.ToFHIR())
}

func (h *Handler) UpdateEndpointFHIR(c echo.Context) error {
	existing, err := h.svc.GetEndpointByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Endpoint", c.Param("id")))
	}
	var e Endpoint
	if err := c.Bind(&e); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	e.ID = existing.ID
	e.FHIRID = existing.FHIRID
	e.VersionID = existing.VersionID
	if err := h.svc.UpdateEndpoint(c.Request().Context(), &e); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, e.ToFHIR())
}

func (h *Handler) DeleteEndpointFHIR(c echo.Context) error {
	e, err := h.svc.GetEndpointByFHIRID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusNotFound, fhir.NotFoundOutcome("Endpoint", c.Param("id")))
	}
	if err := h.svc.DeleteEndpoint(c.Request().Context(), e.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.NoContent(http.StatusNoContent)
}
