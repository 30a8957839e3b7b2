package identity

import (
	"context"
	"strings"
)

// Metadata keys the billing service owns in the provider's metadata bag.
// Only these keys are ever patched; the rest of the bag is left alone.
const (
	MetadataKeyPlanID = "planId"
	MetadataKeyStatus = "status"
)

// Roles carried in access tokens
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the view of an identity-provider account the service needs.
// IDs are opaque provider strings.
type User struct {
	ID       string
	Email    string
	Name     string
	Metadata map[string]any
}

// AssignedPlanID returns the planId metadata value, or "" if unset
func (u *User) AssignedPlanID() string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	v, ok := u.Metadata[MetadataKeyPlanID].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// MetadataStatus returns the status metadata value, or "" if unset
func (u *User) MetadataStatus() string {
	if u == nil || u.Metadata == nil {
		return ""
	}
	v, _ := u.Metadata[MetadataKeyStatus].(string)
	return v
}

// MetadataPatch is a partial update of the metadata bag.
// Keys not present are left untouched by the provider.
type MetadataPatch map[string]any

// PlanMetadataPatch builds the patch written after a plan transition
func PlanMetadataPatch(planID, status string) MetadataPatch {
	return MetadataPatch{
		MetadataKeyPlanID: planID,
		MetadataKeyStatus: status,
	}
}

// Apply merges the patch into a copy of metadata
func (p MetadataPatch) Apply(metadata map[string]any) map[string]any {
	out := make(map[string]any, len(metadata)+len(p))
	for k, v := range metadata {
		out[k] = v
	}
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Provider is the external identity/session provider
type Provider interface {
	// GetUser returns shared.ErrNotFound for unknown ids
	GetUser(ctx context.Context, userID string) (*User, error)
	// UpdateMetadata patches the user's metadata bag
	UpdateMetadata(ctx context.Context, userID string, patch MetadataPatch) error
}
