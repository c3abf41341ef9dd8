// Package commands implements the botcore CLI's scheduler administration
// surface: view, set, delete, pause, resume, trigger, update, status, and
// plugins, plus the serve subcommand that runs the daemon.
package commands

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sbvh/botcore/config"
	"github.com/sbvh/botcore/db"
	"github.com/sbvh/botcore/errors"
	"github.com/sbvh/botcore/logger"
	"github.com/sbvh/botcore/scheduler"
)

// openDatabase loads configuration and opens the migrated database,
// mirroring every admin subcommand's standard setup.
func openDatabase() (*config.Config, *sql.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.OpenWithMigrations(cfg.Database.Path, logger.Logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return cfg, database, nil
}

// targetFlags are the target-selection flags shared by view/set/delete/
// pause/resume.
type targetFlags struct {
	plugin string
	group  string
	user   string
	tag    string
	all    bool
	global bool
	bot    string
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("plugin", "p", "", "plugin name")
	cmd.Flags().StringP("group", "g", "", "group id target")
	cmd.Flags().StringP("user", "u", "", "user id target")
	cmd.Flags().StringP("tag", "t", "", "tag name target")
	cmd.Flags().Bool("all", false, "target ALL_GROUPS")
	cmd.Flags().Bool("global", false, "target GLOBAL")
	cmd.Flags().String("bot", "", "bot id")
}

func readTargetFlags(cmd *cobra.Command) targetFlags {
	plugin, _ := cmd.Flags().GetString("plugin")
	group, _ := cmd.Flags().GetString("group")
	user, _ := cmd.Flags().GetString("user")
	tag, _ := cmd.Flags().GetString("tag")
	all, _ := cmd.Flags().GetBool("all")
	global, _ := cmd.Flags().GetBool("global")
	bot, _ := cmd.Flags().GetString("bot")
	return targetFlags{plugin: plugin, group: group, user: user, tag: tag, all: all, global: global, bot: bot}
}

// targetType resolves the mutually-exclusive -g/-u/-t/--all/--global flags
// into a TargetType/identifier pair.
func (f targetFlags) targetType() (scheduler.TargetType, string, error) {
	set := 0
	var targetType scheduler.TargetType
	var identifier string
	if f.group != "" {
		set++
		targetType, identifier = scheduler.TargetGroup, f.group
	}
	if f.user != "" {
		set++
		targetType, identifier = scheduler.TargetUser, f.user
	}
	if f.tag != "" {
		set++
		targetType, identifier = scheduler.TargetTag, f.tag
	}
	if f.all {
		set++
		targetType, identifier = scheduler.TargetAllGroups, ""
	}
	if f.global {
		set++
		targetType, identifier = scheduler.TargetGlobal, ""
	}
	if set > 1 {
		return "", "", errors.New("specify only one of -g, -u, -t, --all, --global")
	}
	return targetType, identifier, nil
}

// hasAnyFilter reports whether at least one target-selection flag was set,
// used to refuse bulk operations that would otherwise silently match every
// schedule.
func (f targetFlags) hasAnyFilter() bool {
	return f.plugin != "" || f.group != "" || f.user != "" || f.tag != "" || f.all || f.global || f.bot != ""
}

// filter builds a scheduler.TargetFilter from whichever flags were set.
func (f targetFlags) filter() (scheduler.TargetFilter, error) {
	filter := scheduler.TargetFilter{PluginName: f.plugin, BotID: f.bot}
	targetType, identifier, err := f.targetType()
	if err != nil {
		return filter, err
	}
	filter.TargetType = targetType
	filter.TargetIdentifier = identifier
	return filter, nil
}

// addTriggerFlags registers the --cron/--interval/--date/--daily trigger
// flags and --kwargs, shared by set and update.
func addTriggerFlags(cmd *cobra.Command) {
	cmd.Flags().String("cron", "", "cron trigger expression, e.g. \"*/5 * * * *\"")
	cmd.Flags().Int64("interval", 0, "interval trigger, in seconds")
	cmd.Flags().String("date", "", "date trigger, RFC3339 timestamp")
	cmd.Flags().Bool("daily", false, "shortcut for --cron \"0 0 * * *\"")
	cmd.Flags().String("kwargs", "", "job kwargs as k=v;k=v pairs")
}

// readTrigger resolves the mutually-exclusive trigger flags into a
// TriggerType and its encoded trigger_config.
func readTrigger(cmd *cobra.Command, timezone string) (scheduler.TriggerType, json.RawMessage, error) {
	cronExpr, _ := cmd.Flags().GetString("cron")
	intervalSeconds, _ := cmd.Flags().GetInt64("interval")
	date, _ := cmd.Flags().GetString("date")
	daily, _ := cmd.Flags().GetBool("daily")

	set := 0
	if cronExpr != "" {
		set++
	}
	if intervalSeconds > 0 {
		set++
	}
	if date != "" {
		set++
	}
	if daily {
		set++
	}
	if set == 0 {
		return "", nil, nil
	}
	if set > 1 {
		return "", nil, errors.New("specify only one of --cron, --interval, --date, --daily")
	}

	switch {
	case daily:
		cfg, _ := json.Marshal(map[string]string{"expr": "0 0 * * *", "timezone": timezone})
		return scheduler.TriggerCron, cfg, nil
	case cronExpr != "":
		cfg, _ := json.Marshal(map[string]string{"expr": cronExpr, "timezone": timezone})
		return scheduler.TriggerCron, cfg, nil
	case intervalSeconds > 0:
		cfg, _ := json.Marshal(map[string]int64{"seconds": intervalSeconds})
		return scheduler.TriggerInterval, cfg, nil
	default:
		at, err := time.Parse(time.RFC3339, date)
		if err != nil {
			return "", nil, errors.Wrapf(err, "parse --date %q as RFC3339", date)
		}
		cfg, _ := json.Marshal(map[string]time.Time{"at": at})
		return scheduler.TriggerDate, cfg, nil
	}
}

// parseKwargs turns a "k=v;k=v" string into a json object payload.
func parseKwargs(raw string) (json.RawMessage, error) {
	if raw == "" {
		return json.RawMessage("{}"), nil
	}

	pairs := make(map[string]string)
	for _, part := range strings.Split(raw, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return nil, errors.Newf("malformed kwargs pair %q, expected k=v", part)
		}
		pairs[kv[0]] = kv[1]
	}
	return json.Marshal(pairs)
}

// parseID parses a positional schedule id argument.
func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid schedule id %q", arg)
	}
	return id, nil
}

// truncate truncates s to maxLen characters, following the host CLI's table
// formatting convention.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
