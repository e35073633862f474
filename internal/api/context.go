// ABOUTME: Request context key types and constants for the api package.
// ABOUTME: Used by middleware to inject auth/access state and by handlers to read it.
package api

import (
	"context"

	"github.com/scarson/congregate/internal/access"
	"github.com/scarson/congregate/internal/store"
)

type contextKey int

const (
	ctxUserID   contextKey = iota // uuid.UUID — authenticated user
	ctxOrgID                      // uuid.UUID — org from URL path param
	ctxMember                     // *store.Member — caller's membership in ctxOrgID
	ctxResolver                   // access.Resolver — built once per request from ctxMember
)

// resolverFrom returns the request's access resolver. Requests that never
// passed LoadOrgAccess get the zero Resolver, which denies everything.
func resolverFrom(ctx context.Context) access.Resolver {
	r, _ := ctx.Value(ctxResolver).(access.Resolver)
	return r
}

// memberFrom returns the caller's membership, nil outside LoadOrgAccess.
func memberFrom(ctx context.Context) *store.Member {
	m, _ := ctx.Value(ctxMember).(*store.Member)
	return m
}
