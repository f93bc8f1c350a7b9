package fhir

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestNewSearchBundleWithLinks(t *testing.T) {
	resources := []interface{}{
		map[string]interface{}{"resourceType": "Patient", "id": "p1"},
		map[string]interface{}{"resourceType": "Patient", "id": "p2"},
	}

	bundle := NewSearchBundleWithLinks(resources, SearchBundleParams{
		ServerBaseURL: "http://localhost:8000",
		BaseURL:       "/fhir/Patient",
		QueryStr:      "gender=female",
		Count:         2,
		Offset:        2,
		Total:         10,
	})

	if bundle.Type != "searchset" {
		t.Errorf("expected searchset, got %s", bundle.Type)
	}
	if *bundle.Total != 10 {
		t.Errorf("expected total 10, got %d", *bundle.Total)
	}
	if len(bundle.Entry) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(bundle.Entry))
	}
	if bundle.Entry[0].FullURL != "Patient/p1" {
		t.Errorf("unexpected fullUrl: %s", bundle.Entry[0].FullURL)
	}
	if bundle.Entry[0].Search == nil || bundle.Entry[0].Search.Mode != "match" {
		t.Error("expected search mode match")
	}

	rels := map[string]string{}
	for _, l := range bundle.Link {
		rels[l.Relation] = l.URL
	}
	self, ok := rels["self"]
	if !ok || !strings.HasPrefix(self, "http://localhost:8000/fhir/Patient?gender=female&") {
		t.Errorf("unexpected self link: %s", self)
	}
	next, ok := rels["next"]
	if !ok || !strings.Contains(next, "_offset=4") {
		t.Errorf("unexpected next link: %s", next)
	}
	prev, ok := rels["previous"]
	if !ok || !strings.Contains(prev, "_offset=0") {
		t.Errorf("unexpected previous link: %s", prev)
	}
}

func TestNewSearchBundleWithLinks_NoNextOnLastPage(t *testing.T) {
	bundle := NewSearchBundleWithLinks(nil, SearchBundleParams{
		BaseURL: "/fhir/Patient",
		Count:   20,
		Offset:  0,
		Total:   5,
	})

	for _, l := range bundle.Link {
		if l.Relation == "next" || l.Relation == "previous" {
			t.Errorf("unexpected %s link on single page", l.Relation)
		}
	}
}

func TestStripPagingParams(t *testing.T) {
	got := stripPagingParams("gender=female&_count=10&_offset=20&status=active")
	if got != "gender=female&status=active" {
		t.Errorf("unexpected result: %s", got)
	}
	if stripPagingParams("") != "" {
		t.Error("expected empty string passthrough")
	}
	if stripPagingParams("_count=5") != "" {
		t.Error("expected paging-only query to strip to empty")
	}
}

func TestServerBaseURLFromRequest(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("GET", "http://example.org/fhir/Patient", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if got := ServerBaseURLFromRequest(c); got != "http://example.org" {
		t.Errorf("unexpected base URL: %s", got)
	}

	req.Header.Set("X-Forwarded-Proto", "https")
	if got := ServerBaseURLFromRequest(c); got != "https://example.org" {
		t.Errorf("expected forwarded proto to win, got %s", got)
	}
}

func TestNewHistoryBundle(t *testing.T) {
	entries := []*HistoryEntry{
		{ResourceType: "Patient", ResourceID: "p1", VersionID: 2, Action: "update"},
		{ResourceType: "Patient", ResourceID: "p1", VersionID: 1, Action: "create"},
	}

	bundle := NewHistoryBundle(entries, 2, "/fhir")
	if bundle.Type != "history" {
		t.Errorf("expected history, got %s", bundle.Type)
	}
	if len(bundle.Entry) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(bundle.Entry))
	}
	if bundle.Entry[0].Request.Method != "PUT" || bundle.Entry[0].Response.Status != "200 OK" {
		t.Errorf("unexpected update entry: %+v", bundle.Entry[0].Request)
	}
	if bundle.Entry[1].Request.Method != "POST" || bundle.Entry[1].Response.Status != "201 Created" {
		t.Errorf("unexpected create entry: %+v", bundle.Entry[1].Request)
	}
	if bundle.Entry[0].FullURL != "/fhir/Patient/p1/_history/2" {
		t.Errorf("unexpected fullUrl: %s", bundle.Entry[0].FullURL)
	}
}
