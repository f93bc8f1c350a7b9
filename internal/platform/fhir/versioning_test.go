package fhir

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParseETag(t *testing.T) {
	cases := []struct {
		etag string
		want int
	}{
		{`W/"3"`, 3},
		{`"7"`, 7},
		{"2", 2},
		{` W/"12" `, 12},
	}
	for _, tc := range cases {
		got, err := ParseETag(tc.etag)
		if err != nil {
			t.Errorf("ParseETag(%q) error: %v", tc.etag, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseETag(%q) = %d, want %d", tc.etag, got, tc.want)
		}
	}

	if _, err := ParseETag(`W/"abc"`); err == nil {
		t.Error("expected error for non-numeric ETag")
	}
}

func TestFormatETag(t *testing.T) {
	if got := FormatETag(4); got != `W/"4"` {
		t.Errorf("unexpected ETag: %s", got)
	}
}

func TestSetVersionHeaders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	SetVersionHeaders(c, 3, "Mon, 02 Jan 2006 15:04:05 GMT")

	if got := rec.Header().Get("ETag"); got != `W/"3"` {
		t.Errorf("unexpected ETag header: %s", got)
	}
	if got := rec.Header().Get("Last-Modified"); got == "" {
		t.Error("expected Last-Modified header")
	}
}

func TestCheckIfMatch(t *testing.T) {
	e := echo.New()

	// No header: unconditional.
	req := httptest.NewRequest("PUT", "/", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	if _, err := CheckIfMatch(c, 5); err != nil {
		t.Errorf("expected nil for missing header, got %v", err)
	}

	// Matching version.
	req = httptest.NewRequest("PUT", "/", nil)
	req.Header.Set("If-Match", `W/"5"`)
	c = e.NewContext(req, httptest.NewRecorder())
	v, err := CheckIfMatch(c, 5)
	if err != nil || v != 5 {
		t.Errorf("expected (5, nil), got (%d, %v)", v, err)
	}

	// Version conflict.
	req = httptest.NewRequest("PUT", "/", nil)
	req.Header.Set("If-Match", `W/"3"`)
	c = e.NewContext(req, httptest.NewRecorder())
	_, err = CheckIfMatch(c, 5)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}

	// Invalid header.
	req = httptest.NewRequest("PUT", "/", nil)
	req.Header.Set("If-Match", "garbage")
	c = e.NewContext(req, httptest.NewRecorder())
	_, err = CheckIfMatch(c, 5)
	httpErr, ok = err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestCheckIfNoneMatch(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("If-None-Match", `W/"2"`)
	c := e.NewContext(req, httptest.NewRecorder())
	if !CheckIfNoneMatch(c, 2) {
		t.Error("expected match")
	}
	if CheckIfNoneMatch(c, 3) {
		t.Error("expected no match for different version")
	}

	req = httptest.NewRequest("GET", "/", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	if CheckIfNoneMatch(c, 2) {
		t.Error("expected no match without header")
	}
}
