package fhir

import (
	"context"
	"encoding/json"
	"fmt"
)

// VersionTracker wraps HistoryRepository with the calls domain services make
// during create/update/delete.
type VersionTracker struct {
	repo *HistoryRepository
}

func NewVersionTracker(repo *HistoryRepository) *VersionTracker {
	return &VersionTracker{repo: repo}
}

// RecordCreate saves version 1 of a freshly created resource.
func (vt *VersionTracker) RecordCreate(ctx context.Context, resourceType, resourceID string, resource interface{}) error {
	data, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("version tracker: marshal resource: %w", err)
	}
	return vt.repo.SaveVersion(ctx, resourceType, resourceID, 1, json.RawMessage(data), "create")
}

// RecordUpdate saves a snapshot at the next version and returns the new
// version number.
func (vt *VersionTracker) RecordUpdate(ctx context.Context, resourceType, resourceID string, currentVersion int, resource interface{}) (int, error) {
	newVersion := currentVersion + 1
	data, err := json.Marshal(resource)
	if err != nil {
		return 0, fmt.Errorf("version tracker: marshal resource: %w", err)
	}
	if err := vt.repo.SaveVersion(ctx, resourceType, resourceID, newVersion, json.RawMessage(data), "update"); err != nil {
		return 0, err
	}
	return newVersion, nil
}

// RecordDelete saves a deletion marker at the next version.
func (vt *VersionTracker) RecordDelete(ctx context.Context, resourceType, resourceID string, currentVersion int) error {
	return vt.repo.SaveVersion(ctx, resourceType, resourceID, currentVersion+1, json.RawMessage("null"), "delete")
}

// GetVersion retrieves a specific stored version.
func (vt *VersionTracker) GetVersion(ctx context.Context, resourceType, resourceID string, versionID int) (*HistoryEntry, error) {
	return vt.repo.GetVersion(ctx, resourceType, resourceID, versionID)
}

// ListVersions retrieves the stored versions of a resource.
func (vt *VersionTracker) ListVersions(ctx context.Context, resourceType, resourceID string, limit, offset int) ([]*HistoryEntry, int, error) {
	return vt.repo.ListVersions(ctx, resourceType, resourceID, limit, offset)
}
