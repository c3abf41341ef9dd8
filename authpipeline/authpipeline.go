// Package authpipeline is the pre-handler gate every inbound event passes
// through before its matched plugin runs. It composes independent checks
// (ban lists, allow lists, group admission, admin level, plugin enable
// state, usage limits) behind per-check timeouts and circuit breakers, then
// deducts currency on success. Checks run concurrently; any one of them can
// veto the event without blocking or cancelling the others.
package authpipeline

import (
	"context"

	"github.com/sbvh/botcore/errors"
)

// Event is the inbound invocation the pipeline decides on.
type Event struct {
	PluginName string
	UserID     string
	GroupID    string // empty for private/DM events
	BotID      string
	ChannelID  string
}

// Plugin is the subset of a plugin's registration the pipeline needs.
type Plugin struct {
	Name               string
	CostGold           int
	SuperuserOnly      bool
	SuperuserExempt    bool
	RequiredAdminLevel int
	PrivateBlocked     bool
	GroupBlocked       bool
}

// Outcome is what the pipeline decided.
type Outcome int

const (
	// Continue means the platform should dispatch to the handler.
	Continue Outcome = iota
	// Ignored means the platform must suppress the handler silently.
	Ignored
)

// Result is the pipeline's verdict plus the user-facing message to show
// when Outcome is Ignored (may be empty).
type Result struct {
	Outcome Outcome
	Message string
}

// Collaborators the pipeline queries. Each is supplied by the platform;
// this package only orchestrates timeouts, concurrency, and veto semantics
// over whatever they return.
type (
	// PluginResolver looks up a plugin's registration by name.
	PluginResolver interface {
		ResolvePlugin(ctx context.Context, name string) (Plugin, bool, error)
	}

	// UserResolver looks up whether a user exists and their gold balance.
	UserResolver interface {
		ResolveUser(ctx context.Context, userID string) (exists bool, goldBalance int, isSuperuser bool, err error)
	}

	// Check is one concurrently-evaluated gate. It returns an error to veto
	// the pipeline (SkipPlugin), an *Exempt for a free pass (see Exempt),
	// or nil to allow. Any other error is logged and treated as fail-open.
	Check interface {
		Name() string
		Evaluate(ctx context.Context, event Event, plugin Plugin) error
	}

	// GoldLedger deducts gold atomically, clamping to zero rather than going
	// negative.
	GoldLedger interface {
		Deduct(ctx context.Context, userID string, amount int) error
	}
)

// SkipPlugin vetoes the pipeline with a user-facing reason.
type SkipPlugin struct{ Info string }

func (e *SkipPlugin) Error() string { return e.Info }

// Exempt marks a non-fatal absence of prerequisites: the plugin runs. Run
// treats an Exempt returned by a Check as a plain allow and still deducts
// the plugin's cost; deduction is skipped only when the plugin or user
// record is missing or the UserResolver reports a superuser.
type Exempt struct{ Info string }

func (e *Exempt) Error() string { return e.Info }

// Superuser marks the caller as a superuser; the plugin runs. Run treats a
// Superuser returned by a Check as a plain allow and does not skip the cost
// step for it.
type Superuser struct{}

func (e *Superuser) Error() string { return "superuser" }

func asSkip(err error) (*SkipPlugin, bool) {
	var skip *SkipPlugin
	return skip, errors.As(err, &skip)
}

func asExempt(err error) (*Exempt, bool) {
	var exempt *Exempt
	return exempt, errors.As(err, &exempt)
}

func asSuperuser(err error) (*Superuser, bool) {
	var su *Superuser
	return su, errors.As(err, &su)
}
