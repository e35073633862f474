// Package access resolves which application sections and sub-features an
// organization member may see.
//
// A decision combines two inputs: the member's [Role] and an optional
// [VisibilityOverrides] record edited by organization admins. A present
// override is authoritative in both directions; an absent one defers to the
// role default table ([DefaultSectionAccess]). The people and finance
// sections have children with their own precedence rules, resolved by
// [Resolver.CanAccessChild].
//
// Everything here is pure. Callers load the role and overrides (see
// internal/store) and build a [Resolver] per request.
package access
