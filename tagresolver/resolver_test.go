package tagresolver

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbvh/botcore/cache"
)

// fakeGroupStore is an in-memory GroupStore for tests. levels backs the
// "level" field rule; botRoster backs bot-scoped resolution.
type fakeGroupStore struct {
	groups    []string
	levels    map[string]int
	botRoster map[string][]string
}

// QueryGroupIDs supports only the clauses RegisterFieldRule produces for the
// "level" field: "level >= ?" and "level > ?".
func (f *fakeGroupStore) QueryGroupIDs(_ context.Context, predicate Predicate) ([]string, error) {
	if len(predicate.Args) != 1 {
		return nil, nil
	}
	value, _ := predicate.Args[0].(string)
	threshold, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}

	var op string
	switch {
	case strings.Contains(predicate.Clause, ">="):
		op = ">="
	case strings.Contains(predicate.Clause, ">"):
		op = ">"
	}

	var ids []string
	for _, g := range f.groups {
		level := f.levels[g]
		if (op == ">=" && level >= threshold) || (op == ">" && level > threshold) {
			ids = append(ids, g)
		}
	}
	return ids, nil
}

func (f *fakeGroupStore) AllGroupIDs(_ context.Context) ([]string, error) {
	return f.groups, nil
}

func (f *fakeGroupStore) BotGroupIDs(_ context.Context, botID string) ([]string, error) {
	return f.botRoster[botID], nil
}

func newTestResolver(groups *fakeGroupStore) *Resolver {
	rules := NewRegistry()
	rules.RegisterFieldRule("level", "level")

	resolver := &Resolver{
		groups:   groups,
		rules:    rules,
		resolved: cache.New(cache.NewMemoryBackend(0), 0),
	}
	resolver.resolved.RegisterNamespace(CacheNamespace, "name", "bot_id")
	return resolver
}

func TestResolveConjunction_FieldRuleOnly(t *testing.T) {
	groups := &fakeGroupStore{
		groups: []string{"g1", "g2", "g3"},
		levels: map[string]int{"g1": 1, "g2": 5, "g3": 9},
	}
	resolver := newTestResolver(groups)

	ids, err := resolver.resolveConjunction(context.Background(), "level >= 5", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g2", "g3"}, ids)
}

func TestResolveDynamic_OrUnion(t *testing.T) {
	groups := &fakeGroupStore{
		groups: []string{"g1", "g2", "g3"},
		levels: map[string]int{"g1": 1, "g2": 5, "g3": 9},
	}
	resolver := newTestResolver(groups)

	ids, err := resolver.resolveDynamic(context.Background(), "level >= 9 or level >= 5", "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g2", "g3"}, ids)
}

func TestResolveDynamic_BotScoped(t *testing.T) {
	groups := &fakeGroupStore{
		groups:    []string{"g1", "g2", "g3"},
		levels:    map[string]int{"g1": 1, "g2": 5, "g3": 9},
		botRoster: map[string][]string{"bot1": {"g2"}},
	}
	resolver := newTestResolver(groups)

	ids, err := resolver.resolveDynamic(context.Background(), "level >= 5", "bot1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g2"}, ids)
}

func TestResolve_AllGroups(t *testing.T) {
	groups := &fakeGroupStore{groups: []string{"g1", "g2"}}
	resolver := newTestResolver(groups)

	ids, err := resolver.allGroups(context.Background(), "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"g1", "g2"}, ids)
}

func TestResolve_AllGroupsBotScoped(t *testing.T) {
	groups := &fakeGroupStore{
		groups:    []string{"g1", "g2"},
		botRoster: map[string][]string{"bot1": {"g1"}},
	}
	resolver := newTestResolver(groups)

	ids, err := resolver.allGroups(context.Background(), "bot1")
	require.NoError(t, err)
	assert.Equal(t, []string{"g1"}, ids)
}

func TestSubtract(t *testing.T) {
	out := subtract([]string{"g1", "g2", "g3"}, []string{"g2"})
	assert.ElementsMatch(t, []string{"g1", "g3"}, out)
}

func TestIntersect(t *testing.T) {
	out := intersect([]string{"g1", "g2"}, []string{"g2", "g3"})
	assert.Equal(t, []string{"g2"}, out)
}

func TestRegistry_UnknownRuleReturnsError(t *testing.T) {
	rules := NewRegistry()
	rules.RegisterFieldRule("level", "level")

	_, err := rules.Execute(context.Background(), "unknown_rule 5", "")
	require.Error(t, err)
	var ruleErr *RuleExecutionError
	assert.ErrorAs(t, err, &ruleErr)
}

func TestRegistry_MalformedRuleReturnsError(t *testing.T) {
	rules := NewRegistry()
	rules.RegisterFieldRule("level", "level")

	_, err := rules.Execute(context.Background(), "level >=", "")
	assert.Error(t, err)
}

func TestRegistry_DuplicateRegisterPanics(t *testing.T) {
	rules := NewRegistry()
	rules.RegisterFieldRule("level", "level")

	assert.Panics(t, func() {
		rules.RegisterFieldRule("level", "level")
	})
}

func TestRegistry_ContainsOperator(t *testing.T) {
	rules := NewRegistry()
	rules.RegisterFieldRule("name", "name")

	result, err := rules.Execute(context.Background(), "name contains foo", "")
	require.NoError(t, err)
	assert.Contains(t, result.Query.Clause, "REGEXP")
	assert.Equal(t, []any{"foo"}, result.Query.Args)
}

func TestRegistry_InOperator(t *testing.T) {
	rules := NewRegistry()
	rules.RegisterFieldRule("name", "name")

	result, err := rules.Execute(context.Background(), "name in a,b,c", "")
	require.NoError(t, err)
	assert.Contains(t, result.Query.Clause, "IN (?,?,?)")
	assert.Equal(t, []any{"a", "b", "c"}, result.Query.Args)
}

func TestPredicate_And(t *testing.T) {
	var p Predicate
	assert.True(t, p.IsEmpty())

	p = p.And(Predicate{Clause: "a = ?", Args: []any{"x"}})
	assert.False(t, p.IsEmpty())

	p = p.And(Predicate{Clause: "b = ?", Args: []any{"y"}})
	assert.Equal(t, "(a = ?) AND (b = ?)", p.Clause)
	assert.Equal(t, []any{"x", "y"}, p.Args)
}
