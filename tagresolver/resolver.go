package tagresolver

import (
	"context"
	"strings"
	"time"

	"github.com/sbvh/botcore/cache"
	"github.com/sbvh/botcore/errors"
)

// cacheTTL is the memoization window for resolved tag → group-ID-set lookups.
const cacheTTL = 300 * time.Second

// Resolver compiles tag expressions into concrete group ID sets.
type Resolver struct {
	tags     *Store
	groups   GroupStore
	rules    *Registry
	resolved *cache.Cache
}

// New creates a Resolver over the given tag store, group collaborator, and
// rule registry, memoizing resolutions in resolved.
func New(tags *Store, groups GroupStore, rules *Registry, resolved *cache.Cache) *Resolver {
	resolved.RegisterNamespace(CacheNamespace, "name", "bot_id")
	return &Resolver{tags: tags, groups: groups, rules: rules, resolved: resolved}
}

// InvalidateAll clears every memoized resolution. The tag and link mutations
// in Store do not call it; without it, a cached resolution is served until
// cacheTTL expires.
func (r *Resolver) InvalidateAll(ctx context.Context) error {
	return r.resolved.Clear(ctx, CacheNamespace)
}

// Resolve returns the group IDs tag name resolves to, optionally scoped to
// botID ("" for unscoped). Results are memoized for cacheTTL.
func (r *Resolver) Resolve(ctx context.Context, name, botID string) ([]string, error) {
	cacheKey := r.resolved.BuildKey(CacheNamespace, map[string]string{"name": name, "bot_id": botID})

	if cached, found, err := r.resolved.Get(ctx, CacheNamespace, cacheKey); err == nil && found {
		if ids, ok := cached.([]string); ok {
			return ids, nil
		}
	}

	ids, err := r.resolve(ctx, name, botID)
	if err != nil {
		return nil, err
	}

	_ = r.resolved.Set(ctx, CacheNamespace, cacheKey, ids, cacheTTL)
	return ids, nil
}

func (r *Resolver) resolve(ctx context.Context, name, botID string) ([]string, error) {
	if name == AllTag {
		return r.allGroups(ctx, botID)
	}

	tag, err := r.tags.GetTag(ctx, name)
	if err != nil {
		return nil, err
	}

	var ids []string
	switch tag.Type {
	case TagStatic:
		ids, err = r.tags.LinkedGroupIDs(ctx, name)
	case TagDynamic:
		ids, err = r.resolveDynamic(ctx, tag.DynamicRule, botID)
	default:
		return nil, errors.Newf("tag %s has unknown type %q", name, tag.Type)
	}
	if err != nil {
		return nil, err
	}

	if tag.IsBlacklist {
		universe, err := r.allGroups(ctx, botID)
		if err != nil {
			return nil, err
		}
		ids = subtract(universe, ids)
	}

	return ids, nil
}

// resolveDynamic evaluates a disjunction of conjunctions: "and" binds
// tighter than "or", no parentheses.
func (r *Resolver) resolveDynamic(ctx context.Context, rule, botID string) ([]string, error) {
	clauses := strings.Split(rule, " or ")

	union := make(map[string]struct{})
	for _, clause := range clauses {
		ids, err := r.resolveConjunction(ctx, clause, botID)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			union[id] = struct{}{}
		}
	}

	result := make([]string, 0, len(union))
	for id := range union {
		result = append(result, id)
	}

	if botID != "" {
		botGroups, err := r.groups.BotGroupIDs(ctx, botID)
		if err != nil {
			return nil, err
		}
		result = intersect(result, botGroups)
	}

	return result, nil
}

func (r *Resolver) resolveConjunction(ctx context.Context, clause, botID string) ([]string, error) {
	rules := strings.Split(clause, " and ")

	var predicate Predicate
	var idSet []string
	haveIDSet := false

	for _, atomicRule := range rules {
		atomicRule = strings.TrimSpace(atomicRule)
		if atomicRule == "" {
			return nil, errors.New("malformed rule: empty clause")
		}

		result, err := r.rules.Execute(ctx, atomicRule, botID)
		if err != nil {
			return nil, err
		}

		if result.IsSet {
			if !haveIDSet {
				idSet = result.IDs
				haveIDSet = true
			} else {
				idSet = intersect(idSet, result.IDs)
			}
			continue
		}

		predicate = predicate.And(result.Query)
	}

	var queryIDs []string
	var err error
	if !predicate.IsEmpty() {
		queryIDs, err = r.groups.QueryGroupIDs(ctx, predicate)
		if err != nil {
			return nil, err
		}
	}

	switch {
	case haveIDSet && !predicate.IsEmpty():
		return intersect(idSet, queryIDs), nil
	case haveIDSet:
		return idSet, nil
	case !predicate.IsEmpty():
		return queryIDs, nil
	default:
		return nil, nil
	}
}

func (r *Resolver) allGroups(ctx context.Context, botID string) ([]string, error) {
	if botID != "" {
		return r.groups.BotGroupIDs(ctx, botID)
	}
	return r.groups.AllGroupIDs(ctx)
}

func intersect(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, id := range b {
		set[id] = struct{}{}
	}

	var out []string
	for _, id := range a {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

func subtract(universe, minus []string) []string {
	set := make(map[string]struct{}, len(minus))
	for _, id := range minus {
		set[id] = struct{}{}
	}

	var out []string
	for _, id := range universe {
		if _, ok := set[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
