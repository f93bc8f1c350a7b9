package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(t *testing.T, query string) Params {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest("GET", "/fhir/Patient"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	return FromContext(c)
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", DefaultLimit, 0},
		{"fhir params", "?_count=50&_offset=10", 50, 10},
		{"rest aliases", "?limit=30&offset=5", 30, 5},
		{"fhir wins over aliases", "?_count=40&limit=10", 40, 0},
		{"limit capped", "?_count=500", MaxLimit, 0},
		{"negative ignored", "?_count=-5&_offset=-3", DefaultLimit, 0},
		{"garbage ignored", "?_count=abc&_offset=xyz", DefaultLimit, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := paramsFor(t, tt.query)
			if p.Limit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", p.Limit, tt.wantLimit)
			}
			if p.Offset != tt.wantOffset {
				t.Errorf("offset = %d, want %d", p.Offset, tt.wantOffset)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]string{"a", "b"}, 45, Params{Limit: 20, Offset: 20})
	if resp.Pagination.Total != 45 {
		t.Errorf("total = %d, want 45", resp.Pagination.Total)
	}
	if !resp.Pagination.HasMore {
		t.Error("expected has_more at offset 20 of 45")
	}

	resp = NewResponse(nil, 45, Params{Limit: 20, Offset: 40})
	if resp.Pagination.HasMore {
		t.Error("expected no more results at offset 40 of 45")
	}
}

func TestOffsetHelpers(t *testing.T) {
	p := Params{Limit: 20, Offset: 20}
	if !p.HasNext(45) {
		t.Error("expected next page")
	}
	if p.HasNext(40) {
		t.Error("expected no next page at boundary")
	}
	if !p.HasPrevious() {
		t.Error("expected previous page")
	}
	if p.NextOffset() != 40 {
		t.Errorf("next offset = %d, want 40", p.NextOffset())
	}
	if p.PreviousOffset() != 0 {
		t.Errorf("previous offset = %d, want 0", p.PreviousOffset())
	}

	p = Params{Limit: 20, Offset: 10}
	if p.PreviousOffset() != 0 {
		t.Errorf("previous offset clamped = %d, want 0", p.PreviousOffset())
	}
}
