package fhir

import (
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// SearchParam describes a search parameter for the CapabilityBuilder.
type SearchParam struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Documentation string `json:"documentation,omitempty"`
}

// ResourceCapability is the registered capability of one resource type.
type ResourceCapability struct {
	Type         string
	Interactions []string
	SearchParams []SearchParam
}

// CapabilityBuilder accumulates resource registrations from domain modules
// and builds the CapabilityStatement served at /fhir/metadata. Domains call
// AddResource during server initialization so the statement reflects only
// what is actually mounted.
type CapabilityBuilder struct {
	mu        sync.RWMutex
	resources map[string]*ResourceCapability

	ServerName    string
	ServerVersion string
	FHIRVersion   string
	BaseURL       string
}

// NewCapabilityBuilder creates a builder. baseURL is the FHIR base URL
// (e.g. "http://localhost:8000/fhir") and version the server software version.
func NewCapabilityBuilder(baseURL, version string) *CapabilityBuilder {
	return &CapabilityBuilder{
		resources:     make(map[string]*ResourceCapability),
		ServerName:    "medrec FHIR Server",
		ServerVersion: version,
		FHIRVersion:   "5.0.0",
		BaseURL:       baseURL,
	}
}

// DefaultInteractions returns the interaction set every fully mounted
// resource supports.
func DefaultInteractions() []string {
	return []string{
		"read",
		"vread",
		"search-type",
		"create",
		"update",
		"patch",
		"delete",
		"history-instance",
	}
}

// AddResource registers a resource type. Repeated registrations merge
// interactions and search parameters.
func (b *CapabilityBuilder) AddResource(resourceType string, interactions []string, searchParams []SearchParam) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.resources[resourceType]
	if !ok {
		entry = &ResourceCapability{Type: resourceType}
		b.resources[resourceType] = entry
	}

	seen := make(map[string]bool, len(entry.Interactions))
	for _, i := range entry.Interactions {
		seen[i] = true
	}
	for _, i := range interactions {
		if !seen[i] {
			entry.Interactions = append(entry.Interactions, i)
			seen[i] = true
		}
	}

	seenParams := make(map[string]bool, len(entry.SearchParams))
	for _, p := range entry.SearchParams {
		seenParams[p.Name] = true
	}
	for _, p := range searchParams {
		if !seenParams[p.Name] {
			entry.SearchParams = append(entry.SearchParams, p)
			seenParams[p.Name] = true
		}
	}
}

// Resources returns the registered resources sorted by type.
func (b *CapabilityBuilder) Resources() []ResourceCapability {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]ResourceCapability, 0, len(b.resources))
	for _, entry := range b.resources {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}

// Build assembles the CapabilityStatement as a JSON-ready map.
func (b *CapabilityBuilder) Build() map[string]interface{} {
	resources := b.Resources()

	resourceList := make([]interface{}, 0, len(resources))
	for _, entry := range resources {
		interactions := make([]interface{}, 0, len(entry.Interactions))
		for _, code := range entry.Interactions {
			interactions = append(interactions, map[string]interface{}{"code": code})
		}

		res := map[string]interface{}{
			"type":        entry.Type,
			"interaction": interactions,
			"versioning":  "versioned",
			"readHistory": true,
		}

		if len(entry.SearchParams) > 0 {
			params := make([]interface{}, 0, len(entry.SearchParams))
			for _, p := range entry.SearchParams {
				sp := map[string]interface{}{
					"name": p.Name,
					"type": p.Type,
				}
				if p.Documentation != "" {
					sp["documentation"] = p.Documentation
				}
				params = append(params, sp)
			}
			res["searchParam"] = params
		}

		resourceList = append(resourceList, res)
	}

	return map[string]interface{}{
		"resourceType": "CapabilityStatement",
		"status":       "active",
		"date":         time.Now().UTC().Format("2006-01-02"),
		"kind":         "instance",
		"fhirVersion":  b.FHIRVersion,
		"format":       []string{"application/fhir+json", "json"},
		"software": map[string]interface{}{
			"name":    b.ServerName,
			"version": b.ServerVersion,
		},
		"implementation": map[string]interface{}{
			"description": b.ServerName,
			"url":         b.BaseURL,
		},
		"rest": []interface{}{
			map[string]interface{}{
				"mode":     "server",
				"resource": resourceList,
				"security": map[string]interface{}{
					"cors": true,
					"service": []interface{}{
						map[string]interface{}{
							"coding": []interface{}{
								map[string]interface{}{
									"system": "http://terminology.hl7.org/CodeSystem/restful-security-service",
									"code":   "OAuth",
								},
							},
							"text": "Bearer token (JWT)",
						},
					},
				},
			},
		},
	}
}

// CapabilityHandler serves the CapabilityStatement.
func CapabilityHandler(b *CapabilityBuilder) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, b.Build())
	}
}
