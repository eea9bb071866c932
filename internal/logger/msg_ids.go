package logger

// Most non-error log messages are given a message ID that can be used to set
// the log level for that message. Errors do not get a message ID because you
// cannot turn errors into non-errors (otherwise the build would incorrectly
// succeed). Some internal log messages do not get a message ID because they
// are part of verbose and/or internal debugging output. These messages use
// "MsgID_None" instead.
//
// This enum mirrors the error-kind taxonomy of the bundler core: resolution
// failures and parse errors attach to a module and let dependents keep
// building; validation errors, order conflicts, invariant violations and
// plugin errors attach to the compilation as a whole.
type MsgID = uint8

const (
	MsgID_None MsgID = iota

	// Resolution failure: a module could not be resolved. Rendered as a
	// MissingModule so dependents still build; the diagnostic travels with
	// the module's build_info.
	MsgID_Bundler_ModuleNotFound

	// Parse error: fatal for the module that failed, not for the build.
	MsgID_Bundler_ModuleParseError

	// Validation error: duplicate entry names, circular entry "runtime"
	// chains, inconsistent ModuleRule options.
	MsgID_Bundler_EntryRuntimeCycle
	MsgID_Bundler_DuplicateEntryName
	MsgID_Bundler_InvalidModuleRule

	// CSS modules that cannot be totally ordered. Suppressible via
	// ignoreOrder; always carries the two conflicting module names and the
	// chunk-group list.
	MsgID_Bundler_CssOrderConflict

	// Internal invariant violation. Always fatal.
	MsgID_Bundler_InvariantViolation

	// Any plugin hook error that isn't marked fatal by the hook's own
	// contract becomes a compilation error with this ID.
	MsgID_Bundler_PluginHookError

	MsgID_END // Keep this at the end (used only for tests)
)

func StringToMsgIDs(str string, logLevel LogLevel, overrides map[MsgID]LogLevel) {
	switch str {
	case "module-not-found":
		overrides[MsgID_Bundler_ModuleNotFound] = logLevel
	case "module-parse-error":
		overrides[MsgID_Bundler_ModuleParseError] = logLevel
	case "entry-runtime-cycle":
		overrides[MsgID_Bundler_EntryRuntimeCycle] = logLevel
	case "duplicate-entry-name":
		overrides[MsgID_Bundler_DuplicateEntryName] = logLevel
	case "invalid-module-rule":
		overrides[MsgID_Bundler_InvalidModuleRule] = logLevel
	case "css-order-conflict":
		overrides[MsgID_Bundler_CssOrderConflict] = logLevel
	case "invariant-violation":
		overrides[MsgID_Bundler_InvariantViolation] = logLevel
	case "plugin-hook-error":
		overrides[MsgID_Bundler_PluginHookError] = logLevel
	}
}

func MsgIDToString(id MsgID) string {
	switch id {
	case MsgID_Bundler_ModuleNotFound:
		return "module-not-found"
	case MsgID_Bundler_ModuleParseError:
		return "module-parse-error"
	case MsgID_Bundler_EntryRuntimeCycle:
		return "entry-runtime-cycle"
	case MsgID_Bundler_DuplicateEntryName:
		return "duplicate-entry-name"
	case MsgID_Bundler_InvalidModuleRule:
		return "invalid-module-rule"
	case MsgID_Bundler_CssOrderConflict:
		return "css-order-conflict"
	case MsgID_Bundler_InvariantViolation:
		return "invariant-violation"
	case MsgID_Bundler_PluginHookError:
		return "plugin-hook-error"
	}
	return ""
}

// StringToMaximumMsgID is used to implement a log level cutoff: every ID at
// or below the returned value is affected by the same string.
func StringToMaximumMsgID(id string) MsgID {
	overrides := make(map[MsgID]LogLevel)
	StringToMsgIDs(id, LevelInfo, overrides)
	max := MsgID_None
	for k := range overrides {
		if k > max {
			max = k
		}
	}
	return max
}
