package errors

import "sort"

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
	DocURL   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Component Runtime Errors (E100-E109)
	// ============================================

	"E100": {
		Category: CategoryValidation,
		Message:  "Invalid component configuration",
		Detail:   "A configuration entry has a value whose shape does not match its key (style must be a map, hooks and event handlers must be functions, ref must be an *el.ElementRef).",
		DocURL:   "https://chatui.dev/docs/errors/E100",
	},
	"E101": {
		Category: CategoryValidation,
		Message:  "Unsupported child",
		Detail:   "Children must be text or a mount function returned by an element factory.",
		DocURL:   "https://chatui.dev/docs/errors/E101",
	},

	// ============================================
	// Storage Errors (E110-E119)
	// ============================================

	"E110": {
		Category: CategoryStorage,
		Message:  "Connection closed",
		Detail:   "The database handle was closed. Open a new handle with webdb.Open before issuing further operations.",
		DocURL:   "https://chatui.dev/docs/errors/E110",
	},
	"E111": {
		Category: CategoryStorage,
		Message:  "Invalid database version",
		Detail:   "Database versions are positive integers starting at 1.",
		DocURL:   "https://chatui.dev/docs/errors/E111",
	},
	"E112": {
		Category: CategoryStorage,
		Message:  "Invalid schema definition",
		Detail:   "Every store needs a unique non-empty name and every index needs a name and a key path.",
		DocURL:   "https://chatui.dev/docs/errors/E112",
	},
	"E113": {
		Category: CategoryStorage,
		Message:  "Snapshot failed",
		Detail:   "The database contents could not be exported.",
		DocURL:   "https://chatui.dev/docs/errors/E113",
	},

	// ============================================
	// Config Errors (E120-E149)
	// ============================================

	"E120": {
		Category: CategoryConfig,
		Message:  "Invalid chatui.json",
		Detail:   "The configuration file could not be read or parsed.",
		DocURL:   "https://chatui.dev/docs/errors/E120",
	},
	"E121": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or malformed.",
		DocURL:   "https://chatui.dev/docs/errors/E121",
	},
	"E141": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "No chatui.json was found in the given directory.",
		DocURL:   "https://chatui.dev/docs/errors/E141",
	},

	// ============================================
	// Protocol Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryProtocol,
		Message:  "Model backend failure",
		Detail:   "The chat backend failed to list models or produce a reply.",
		DocURL:   "https://chatui.dev/docs/errors/E150",
	},
	"E151": {
		Category: CategoryProtocol,
		Message:  "Malformed chat request",
		Detail:   `Chat requests are JSON objects of the form {"model": "...", "prompt": "..."}.`,
		DocURL:   "https://chatui.dev/docs/errors/E151",
	},

	// ============================================
	// CLI Errors (E160-E169)
	// ============================================

	"E160": {
		Category: CategoryCLI,
		Message:  "Unknown store",
		Detail:   "The requested object store does not exist in the database.",
		DocURL:   "https://chatui.dev/docs/errors/E160",
	},
}

// Lookup returns the template registered for code.
func Lookup(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Codes returns every registered code in ascending order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
