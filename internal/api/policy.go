// ABOUTME: huma handlers for the public role catalog and offline visibility resolution.
// ABOUTME: Neither touches the database; both run the same access.Resolver the org routes use.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/scarson/congregate/internal/access"
)

// registerPolicyRoutes registers the /policy operations with huma:
//
//	GET  /policy/roles    — role catalog with each role's default visibility
//	POST /policy/resolve  — resolve a role plus overrides without persisting
func registerPolicyRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-roles",
		Method:      http.MethodGet,
		Path:        "/policy/roles",
		Summary:     "List roles",
		Description: "Returns every role with the visibility it has when no overrides are set.",
		Tags:        []string{"Policy"},
	}, listRolesHandler)

	huma.Register(api, huma.Operation{
		OperationID: "resolve-visibility",
		Method:      http.MethodPost,
		Path:        "/policy/resolve",
		Summary:     "Resolve visibility",
		Description: "Evaluates a role and an override record and returns every section and child decision.",
		Tags:        []string{"Policy"},
	}, resolveHandler)
}

// ── Response types ────────────────────────────────────────────────────────────

// RoleItem is one entry in the role catalog.
type RoleItem struct {
	Role     access.Role       `json:"role"`
	Defaults access.Visibility `json:"defaults"`
}

// ListRolesOutput is the response for GET /policy/roles.
type ListRolesOutput struct {
	Body struct {
		Roles []RoleItem `json:"roles"`
	}
}

func listRolesHandler(_ context.Context, _ *struct{}) (*ListRolesOutput, error) {
	out := &ListRolesOutput{}
	out.Body.Roles = make([]RoleItem, 0, len(access.Roles))
	for _, role := range access.Roles {
		out.Body.Roles = append(out.Body.Roles, RoleItem{
			Role:     role,
			Defaults: access.NewResolver(role, nil).Snapshot(),
		})
	}
	return out, nil
}

// ResolveInput is the request for POST /policy/resolve.
type ResolveInput struct {
	Body struct {
		Role string `json:"role" doc:"Role key (owner, admin, branch_admin, finance_admin, attendance_manager, attendance_rep, write, read)"`
		// Overrides is re-validated by access.DecodeOverridesStrict; the
		// schema only requires an object.
		Overrides map[string]any `json:"overrides,omitempty" doc:"Visibility override record, same shape as stored overrides"`
	}
}

// ResolveOutput is the response for POST /policy/resolve.
type ResolveOutput struct {
	Body access.Visibility
}

func resolveHandler(_ context.Context, input *ResolveInput) (*ResolveOutput, error) {
	role, ok := access.ParseRole(input.Body.Role)
	if !ok {
		return nil, huma.Error422UnprocessableEntity("unknown role: " + input.Body.Role)
	}

	var overrides *access.VisibilityOverrides
	if input.Body.Overrides != nil {
		raw, err := json.Marshal(input.Body.Overrides)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid overrides", err)
		}
		overrides, err = access.DecodeOverridesStrict(raw)
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
	}

	return &ResolveOutput{Body: access.NewResolver(role, overrides).Snapshot()}, nil
}
