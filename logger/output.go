package logger

// Output controls what categories of information are shown at each verbosity level.
//
// Unlike log levels (which filter by severity), output categories control
// WHAT types of information are displayed regardless of severity.
//
// Verbosity Levels:
//
//	0 (default) - User-facing output only: results, errors with hints
//	1 (-v)      - + Progress, startup info, schedule/tag status
//	2 (-vv)     - + Per-check timings, config loaded, cache stats
//	3 (-vvv)    - + Per-target fan-out flow, circuit-breaker transitions
//	4 (-vvvv)   - + SQL queries, full job_kwargs/trigger_config dumps

// OutputCategory defines a category of output that can be enabled/disabled
type OutputCategory int

const (
	// Level 0 (default) - Always shown
	OutputResults    OutputCategory = iota // Query results, command output
	OutputErrors                           // Errors with hints and resolution steps
	OutputUserStatus                       // Final success/failure status

	// Level 1 (-v) - Informational
	OutputProgress      // Progress indicators (e.g. fan-out target counts)
	OutputStartup       // Startup banners, config summary
	OutputScheduleState // Schedule enabled/disabled/triggered transitions
	OutputOperationInfo // High-level operation summaries

	// Level 2 (-vv) - Detailed
	OutputTiming    // Per-check and per-target timing
	OutputConfig    // Config values loaded/applied
	OutputDBStats   // Database statistics and connection info
	OutputCacheStat // Cache hit/miss/null-hit counters

	// Level 3 (-vvv) - Debug
	OutputInternalFlow   // Internal operation flow (function entry/exit)
	OutputBreakerTrip    // Circuit breaker open/close transitions
	OutputFanOutSchedule // Per-target fan-out scheduling decisions

	// Level 4 (-vvvv) - Full dump
	OutputSQLQueries // Full SQL queries executed
	OutputSQLResults // SQL query result summaries
	OutputDataDump   // Full job_kwargs / trigger_config / rule AST dumps
)

// categoryLevels maps each output category to its minimum verbosity level
var categoryLevels = map[OutputCategory]int{
	OutputResults:    VerbosityUser,
	OutputErrors:     VerbosityUser,
	OutputUserStatus: VerbosityUser,

	OutputProgress:      VerbosityInfo,
	OutputStartup:       VerbosityInfo,
	OutputScheduleState: VerbosityInfo,
	OutputOperationInfo: VerbosityInfo,

	OutputTiming:    VerbosityDebug,
	OutputConfig:    VerbosityDebug,
	OutputDBStats:   VerbosityDebug,
	OutputCacheStat: VerbosityDebug,

	OutputInternalFlow:   VerbosityTrace,
	OutputBreakerTrip:    VerbosityTrace,
	OutputFanOutSchedule: VerbosityTrace,

	OutputSQLQueries: VerbosityAll,
	OutputSQLResults: VerbosityAll,
	OutputDataDump:   VerbosityAll,
}

// ShouldOutput returns true if the given category should be shown at the given verbosity
func ShouldOutput(verbosity int, category OutputCategory) bool {
	minLevel, ok := categoryLevels[category]
	if !ok {
		return verbosity >= VerbosityAll
	}
	return verbosity >= minLevel
}

// categoryNames provides human-readable names for output categories
var categoryNames = map[OutputCategory]string{
	OutputResults:        "results",
	OutputErrors:         "errors",
	OutputUserStatus:     "status",
	OutputProgress:       "progress",
	OutputStartup:        "startup",
	OutputScheduleState:  "schedule-state",
	OutputOperationInfo:  "operation-info",
	OutputTiming:         "timing",
	OutputConfig:         "config",
	OutputDBStats:        "db-stats",
	OutputCacheStat:      "cache-stats",
	OutputInternalFlow:   "internal-flow",
	OutputBreakerTrip:    "breaker-trip",
	OutputFanOutSchedule: "fan-out-schedule",
	OutputSQLQueries:     "sql-queries",
	OutputSQLResults:     "sql-results",
	OutputDataDump:       "data-dump",
}

// CategoryName returns the human-readable name for an output category
func CategoryName(category OutputCategory) string {
	if name, ok := categoryNames[category]; ok {
		return name
	}
	return "unknown"
}

// EnabledCategories returns all output categories enabled at the given verbosity
func EnabledCategories(verbosity int) []OutputCategory {
	var enabled []OutputCategory
	for cat, minLevel := range categoryLevels {
		if verbosity >= minLevel {
			enabled = append(enabled, cat)
		}
	}
	return enabled
}

// VerbosityDescription returns a description of what's shown at each level
func VerbosityDescription(verbosity int) string {
	switch verbosity {
	case VerbosityUser:
		return "results and errors only"
	case VerbosityInfo:
		return "results, errors, progress, schedule state"
	case VerbosityDebug:
		return "above + per-check timing, config, cache stats"
	case VerbosityTrace:
		return "above + fan-out scheduling, breaker transitions"
	case VerbosityAll:
		return "above + SQL queries, full data dumps"
	default:
		if verbosity > VerbosityAll {
			return "maximum verbosity"
		}
		return "unknown verbosity level"
	}
}
