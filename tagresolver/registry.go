package tagresolver

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/sbvh/botcore/errors"
)

// Handler evaluates one atomic rule's arguments (everything after the rule
// name) into a Result. botID is empty when the resolution is bot-unscoped.
type Handler func(ctx context.Context, args []string, botID string) (Result, error)

// Registry holds the named rule handlers atomic rules dispatch to by their
// first whitespace-separated token. It is RWMutex-guarded like the module's
// plugin registry, but Register panics on a duplicate name where the plugin
// registry returns an error.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	formats  map[string]string // name -> human-readable expected format, for error messages
}

// NewRegistry creates an empty rule registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		formats:  make(map[string]string),
	}
}

// Register adds a fully custom rule handler under name. It panics if name
// is already registered — a programming error, not a runtime condition.
func (r *Registry) Register(name string, format string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.handlers[name]; exists {
		panic(fmt.Sprintf("tag rule already registered: %s", name))
	}
	r.handlers[name] = handler
	r.formats[name] = format
}

// fieldOps maps a field rule's operator token to the SQL fragment it builds.
var fieldOps = map[string]string{
	"=":  "=",
	"!=": "!=",
	">":  ">",
	">=": ">=",
	"<":  "<",
	"<=": "<=",
}

// identifierPattern guards dbField against injection, since it is
// interpolated directly into the generated SQL clause.
var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RegisterFieldRule adds a rule named name that maps to dbField, accepting
// `<name> <op> <value>` with op in {=, !=, >, >=, <, <=, contains, in}.
func (r *Registry) RegisterFieldRule(name, dbField string) {
	if !identifierPattern.MatchString(dbField) {
		panic(fmt.Sprintf("tag field rule %s: invalid db field %q", name, dbField))
	}

	format := fmt.Sprintf("%s <op> <value>  (op: =, !=, >, >=, <, <=, contains, in)", name)

	r.Register(name, format, func(_ context.Context, args []string, _ string) (Result, error) {
		if len(args) < 2 {
			return Result{}, errors.Newf("expected `%s <op> <value>`, got %d argument(s)", name, len(args))
		}

		op := args[0]
		value := strings.Join(args[1:], " ")

		switch op {
		case "=", "!=", ">", ">=", "<", "<=":
			return Result{Query: Predicate{
				Clause: fmt.Sprintf("%s %s ?", dbField, fieldOps[op]),
				Args:   []any{value},
			}}, nil

		case "contains":
			// Case-insensitive regex search, not a literal substring match:
			// value is a regex pattern evaluated against dbField via the
			// "regexp" SQL function registered in package db.
			return Result{Query: Predicate{
				Clause: fmt.Sprintf("%s REGEXP ?", dbField),
				Args:   []any{value},
			}}, nil

		case "in":
			values := strings.Split(value, ",")
			placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
			args := make([]any, 0, len(values))
			for _, v := range values {
				args = append(args, strings.TrimSpace(v))
			}
			return Result{Query: Predicate{
				Clause: fmt.Sprintf("%s IN (%s)", dbField, placeholders),
				Args:   args,
			}}, nil

		default:
			return Result{}, errors.Newf("unsupported operator %q for field rule %s", op, name)
		}
	})
}

// Execute parses rule (a whitespace-separated atomic rule string), dispatches
// it to its registered handler, and returns the handler's Result.
func (r *Registry) Execute(ctx context.Context, rule, botID string) (Result, error) {
	tokens := strings.Fields(rule)
	if len(tokens) == 0 {
		return Result{}, errors.New("empty rule")
	}

	name := tokens[0]
	args := tokens[1:]

	r.mu.RLock()
	handler, ok := r.handlers[name]
	format := r.formats[name]
	r.mu.RUnlock()

	if !ok {
		return Result{}, newRuleError(name, "a registered rule name", "", errors.Newf("unknown rule: %s", name))
	}

	result, err := handler(ctx, args, botID)
	if err != nil {
		return Result{}, newRuleError(name, format, "", err)
	}
	return result, nil
}
