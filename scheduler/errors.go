package scheduler

import (
	"strings"

	"github.com/sbvh/botcore/errors"
)

var errInvalidOptions = errors.New("scheduler: interval and spread are mutually exclusive")

// oneOffPluginPrefix marks the synthetic plugin key scheduleOnce registers
// for a one-off job; live-scheduler cleanup on completion checks this
// prefix to know whether to deregister the synthetic handler too.
const oneOffPluginPrefix = "__one_off__:"

func isOneOffPluginKey(name string) bool {
	return strings.HasPrefix(name, oneOffPluginPrefix)
}
