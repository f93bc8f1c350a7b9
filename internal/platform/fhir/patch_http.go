package fhir

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// ApplyPatchBody reads a PATCH request body, applies it to the current FHIR
// form of a resource, and returns the patched map. Both JSON Patch (RFC 6902)
// and JSON Merge Patch (RFC 7386) bodies are accepted, selected by
// Content-Type. On failure the error response has already been written and is
// returned for the handler to propagate.
func ApplyPatchBody(c echo.Context, current map[string]interface{}) (map[string]interface{}, error) {
	contentType := c.Request().Header.Get("Content-Type")
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, c.JSON(http.StatusBadRequest, ErrorOutcome("failed to read request body"))
	}

	switch {
	case strings.Contains(contentType, "json-patch+json"):
		ops, err := ParseJSONPatch(body)
		if err != nil {
			return nil, c.JSON(http.StatusBadRequest, ErrorOutcome(err.Error()))
		}
		patched, err := ApplyJSONPatch(current, ops)
		if err != nil {
			return nil, c.JSON(http.StatusUnprocessableEntity, ErrorOutcome(err.Error()))
		}
		return patched, nil
	case strings.Contains(contentType, "merge-patch+json"):
		mp, err := ParseMergePatch(body)
		if err != nil {
			return nil, c.JSON(http.StatusBadRequest, ErrorOutcome(err.Error()))
		}
		patched, err := ApplyMergePatch(current, mp)
		if err != nil {
			return nil, c.JSON(http.StatusUnprocessableEntity, ErrorOutcome(err.Error()))
		}
		return patched, nil
	default:
		return nil, c.JSON(http.StatusUnsupportedMediaType,
			ErrorOutcome("PATCH requires application/json-patch+json or application/merge-patch+json"))
	}
}
