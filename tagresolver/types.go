// Package tagresolver compiles tag expressions ("and"/"or" over named
// rules, no parentheses) into concrete group ID sets, with blacklist
// inversion and bot-scoping. Resolutions are cached for a fixed TTL;
// Resolver.InvalidateAll clears the whole cache namespace, and the tag and
// link mutations in Store do not call it.
package tagresolver

import "context"

// CacheNamespace is the cache namespace tag resolutions are stored under.
const CacheNamespace = "tag_service"

// AllTag is the special tag name that resolves directly to every group the
// bot (or the whole store, if bot-unscoped) knows about.
const AllTag = "@all"

// Predicate is a DB condition a field or custom rule can express, rendered
// as a raw SQL WHERE-clause fragment plus its positional arguments. It
// exists because this module talks to its store through raw database/sql,
// not an ORM — "predicate" here is a string-and-args pair, not a query
// builder object.
type Predicate struct {
	Clause string
	Args   []any
}

// And conjoins two predicates. An empty predicate is the identity.
func (p Predicate) And(other Predicate) Predicate {
	switch {
	case p.Clause == "":
		return other
	case other.Clause == "":
		return p
	default:
		return Predicate{
			Clause: "(" + p.Clause + ") AND (" + other.Clause + ")",
			Args:   append(append([]any{}, p.Args...), other.Args...),
		}
	}
}

// IsEmpty reports whether the predicate carries no condition.
func (p Predicate) IsEmpty() bool { return p.Clause == "" }

// Result is the outcome of evaluating a single atomic rule: an explicit ID
// set in IDs when IsSet is true, otherwise the Query predicate.
type Result struct {
	Query Predicate
	IDs   []string // nil means "not an ID-set result"
	IsSet bool      // true iff IDs (possibly empty) is the result, not Query
}

// GroupStore is the collaborator this package queries groups through. It is
// owned by the platform, not this package; the tag resolver only needs to
// turn predicates and bot scoping into concrete group ID lists.
type GroupStore interface {
	// QueryGroupIDs returns the IDs of all groups matching predicate.
	QueryGroupIDs(ctx context.Context, predicate Predicate) ([]string, error)
	// AllGroupIDs returns every group ID known to the store.
	AllGroupIDs(ctx context.Context) ([]string, error)
	// BotGroupIDs returns the IDs of groups the given bot is a member of.
	BotGroupIDs(ctx context.Context, botID string) ([]string, error)
}
