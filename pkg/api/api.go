// This API exposes the optimizer as a library. Every entry point takes the
// text of one chunk and an options struct and returns the new text together
// with the errors and warnings that were produced. Nothing is written to
// disk, and nothing is logged unless "LogLevel" asks for it.
//
// Optimize is what most callers want. It evaluates the marker regions of a
// chunk against a set of flags and then removes the modules that are no
// longer reachable, repeating until the text stops changing:
//
//	result := api.Optimize(code, api.OptimizeOptions{
//		Config: map[string]interface{}{
//			"treeShake": map[string]interface{}{
//				"lodash-es": map[string]interface{}{"map": true, "filter": false},
//			},
//		},
//	})
//	if len(result.Errors) == 0 {
//		fmt.Println(result.Code)
//	}
package api

type StderrColor uint8

const (
	ColorIfTerminal StderrColor = iota
	ColorNever
	ColorAlways
)

type LogLevel uint8

const (
	LogLevelSilent LogLevel = iota
	LogLevelVerbose
	LogLevelInfo
	LogLevelWarning
	LogLevelError
)

type Location struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Message struct {
	// A name for the class of warning, such as "undetermined-require", or
	// empty for errors
	ID string

	Text     string
	Location *Location
	Notes    []Note
}

type Note struct {
	Text     string
	Location *Location
}

type InputFormat uint8

const (
	FormatJSON InputFormat = iota
	FormatYAML
	FormatTOML
)

type PossiblyUnused uint8

const (
	PossiblyUnusedKeep PossiblyUnused = iota
	PossiblyUnusedRemove
)

// What happened to one chunk. The JSON field names match the report the
// command-line tool writes.
type Report struct {
	File          string `json:"file"`
	OriginalSize  int    `json:"original_size"`
	OptimizedSize int    `json:"optimized_size"`
	Iterations    int    `json:"iterations"`
	RegistryShape string `json:"registry_shape"`

	OriginalCount       int      `json:"original_count"`
	KeptModules         []string `json:"kept_modules"`
	RemovedModules      []string `json:"removed_modules"`
	UndeterminedModules []string `json:"undetermined_modules"`

	EntryPoints []string `json:"entry_points"`
	EntrySource string   `json:"entry_source"`

	RemovedConditions    []string `json:"removed_conditions"`
	KeptConditions       []string `json:"kept_conditions"`
	UnresolvedConditions []string `json:"unresolved_conditions"`

	SkipReason string `json:"skip_reason,omitempty"`
	Error      string `json:"error,omitempty"`
}

////////////////////////////////////////////////////////////////////////////////
// Optimize API

type OptimizeOptions struct {
	Color    StderrColor
	LogLevel LogLevel

	// The name used for this chunk in messages and the report
	Sourcefile string

	// Flags keyed by condition name, either nested
	// ({"treeShake": {"lib": {"map": false}}}) or flat
	// ({"treeShake.lib.map": false}). Conditions that aren't set are kept.
	Config map[string]interface{}

	// Module ids to start from. When empty, the entry hints that name a
	// module of this chunk are used, and then the chunk's own top-level
	// require calls.
	EntryPoints []string
	EntryHints  []string

	// Stop with an error if the text still changes after this many passes.
	// The default is 8.
	MaxIterations int

	NoShake               bool
	KeepUnresolvedMarkers bool
	SkipValidation        bool
}

type OptimizeResult struct {
	Errors   []Message
	Warnings []Message

	Code   string
	Report Report
}

func Optimize(code string, options OptimizeOptions) OptimizeResult {
	return optimizeImpl(code, options)
}

////////////////////////////////////////////////////////////////////////////////
// Evaluate API

type EvaluateOptions struct {
	Color    StderrColor
	LogLevel LogLevel

	Sourcefile string
	Config     map[string]interface{}

	KeepUnresolvedMarkers bool
	SkipValidation        bool
}

type EvaluateResult struct {
	Errors   []Message
	Warnings []Message

	Code string

	// One entry per region, in source order
	RemovedConditions    []string
	KeptConditions       []string
	UnresolvedConditions []string
}

// Evaluate resolves the marker regions of a chunk without removing modules
func Evaluate(code string, options EvaluateOptions) EvaluateResult {
	return evaluateImpl(code, options)
}

////////////////////////////////////////////////////////////////////////////////
// Shake API

type ShakeOptions struct {
	Color    StderrColor
	LogLevel LogLevel

	Sourcefile  string
	EntryPoints []string

	SkipValidation bool
}

type ShakeResult struct {
	Errors   []Message
	Warnings []Message

	Code string

	OriginalCount int
	EntryPoints   []string
	EntrySource   string

	KeptModules         []string
	RemovedModules      []string
	UndeterminedModules []string
}

// Shake removes the modules that can't be reached from the entry points in
// a single pass. Marker regions are left alone.
func Shake(code string, options ShakeOptions) ShakeResult {
	return shakeImpl(code, options)
}

////////////////////////////////////////////////////////////////////////////////
// Annotate API

type AnnotateOptions struct {
	Color    StderrColor
	LogLevel LogLevel

	Sourcefile string

	// Conditions are named "<Namespace>.<ShareKey>.<export>". The namespace
	// defaults to "treeShake".
	ShareKey  string
	Namespace string

	// Only annotate the exports of these modules. All modules are
	// annotated when empty.
	Modules []string
}

type AnnotateResult struct {
	Errors   []Message
	Warnings []Message

	Code       string
	Conditions []string
}

// Annotate wraps each removable export binding of a chunk in a marker region
func Annotate(code string, options AnnotateOptions) AnnotateResult {
	return annotateImpl(code, options)
}

////////////////////////////////////////////////////////////////////////////////
// Flags API

type FlagsOptions struct {
	Color    StderrColor
	LogLevel LogLevel

	// Optimization flags in JSON, YAML or TOML, picked by file extension
	ConfigFiles []string

	// Usage manifests in JSON or YAML. Several manifests are merged so that
	// an export used by any of them is kept.
	ManifestFiles []string

	// Only derive flags for this package from the manifests
	ShareKey string

	// The first segment of derived condition names, "treeShake" by default
	Namespace string

	PossiblyUnused PossiblyUnused
}

type FlagsResult struct {
	Errors   []Message
	Warnings []Message

	// Flat flags ready for "OptimizeOptions.Config". Config files override
	// flags derived from manifests.
	Config map[string]interface{}

	// Entry module ids named by the inputs, ready for
	// "OptimizeOptions.EntryHints"
	EntryHints []string
}

func LoadFlags(options FlagsOptions) FlagsResult {
	return loadFlagsImpl(options)
}
