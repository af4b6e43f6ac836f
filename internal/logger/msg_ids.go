package logger

// Warnings get a message ID so callers can tell the classes apart without
// parsing the text. Errors do not need one: every error stops the file it
// belongs to, and the typed Go error carries the class instead.
type MsgID = uint8

const (
	MsgID_None MsgID = iota

	// Bundle model
	MsgID_Registry_NotFound
	MsgID_Registry_AmbiguousFallback

	// Tree shaking
	MsgID_Shake_NoEntryPoints
	MsgID_Shake_UnknownEntryPoint
	MsgID_Shake_UndeterminedRequire

	// Macros
	MsgID_Macro_UnresolvedCondition
	MsgID_Macro_InvalidCondition

	// Usage manifest
	MsgID_Manifest_IncompleteExports
	MsgID_Manifest_UnknownExports

	// Internal
	MsgID_Timing

	MsgID_END // Keep this at the end
)

func MsgIDToString(id MsgID) string {
	switch id {
	case MsgID_Registry_NotFound:
		return "registry-not-found"
	case MsgID_Registry_AmbiguousFallback:
		return "ambiguous-registry"

	case MsgID_Shake_NoEntryPoints:
		return "no-entry-points"
	case MsgID_Shake_UnknownEntryPoint:
		return "unknown-entry-point"
	case MsgID_Shake_UndeterminedRequire:
		return "undetermined-require"

	case MsgID_Macro_UnresolvedCondition:
		return "unresolved-condition"
	case MsgID_Macro_InvalidCondition:
		return "invalid-condition"

	case MsgID_Manifest_IncompleteExports:
		return "incomplete-exports"
	case MsgID_Manifest_UnknownExports:
		return "unknown-exports"

	case MsgID_Timing:
		return "timing"
	}

	return ""
}

func StringToMsgID(str string) (MsgID, bool) {
	for id := MsgID_None; id < MsgID_END; id++ {
		if name := MsgIDToString(id); name != "" && name == str {
			return id, true
		}
	}
	return MsgID_None, false
}
