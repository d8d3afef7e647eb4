package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// Registered error codes.
const (
	ErrConfigNotFound    = "E101"
	ErrInvalidConfig     = "E102"
	ErrInvalidPort       = "E103"
	ErrMissingBackendURL = "E104"
	ErrUnknownUpload     = "E105"
	ErrBackendRequest    = "E201"
	ErrBackendRejected   = "E202"
	ErrInvalidRequest    = "E203"
	ErrWebSocket         = "E204"
	ErrSessionStore      = "E205"
	ErrChangeRejected    = "E301"
	ErrChangeRolledBack  = "E302"
	ErrViewClosed        = "E303"
	ErrUploadFailed      = "E401"
	ErrUnsupportedFile   = "E402"
	ErrSearchUnavailable = "E501"
	ErrConfigExists      = "E601"
)

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E199)
	// ============================================

	"E101": {
		Category: CategoryConfig,
		Message:  "Config file not found",
		Detail:   "The configuration file could not be located.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid config file",
		Detail:   "The configuration file could not be read or parsed.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid port",
		Detail:   "The listen port must be between 0 and 65535.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Missing backend URL",
		Detail:   "The marketplace REST backend URL is required.",
	},
	"E105": {
		Category: CategoryConfig,
		Message:  "Unknown upload backend",
		Detail:   "The upload backend must be one of: disk, s3, minio.",
	},

	// ============================================
	// Transport Errors (E200-E299)
	// ============================================

	"E201": {
		Category: CategoryTransport,
		Message:  "Backend request failed",
		Detail:   "The request to the marketplace backend could not be completed.",
	},
	"E202": {
		Category: CategoryTransport,
		Message:  "Backend rejected request",
		Detail:   "The marketplace backend answered with a non-2xx status.",
	},
	"E203": {
		Category: CategoryTransport,
		Message:  "Invalid request",
		Detail:   "The request failed validation before it was sent.",
	},
	"E204": {
		Category: CategoryTransport,
		Message:  "WebSocket connection failed",
		Detail:   "Unable to establish the WebSocket connection with the browser.",
	},
	"E205": {
		Category: CategoryTransport,
		Message:  "Session store unavailable",
		Detail:   "The Redis session store could not be reached.",
	},

	// ============================================
	// Mutation Errors (E300-E399)
	// ============================================

	"E301": {
		Category: CategoryMutation,
		Message:  "Change rejected",
		Detail:   "The change violates a constraint and was not applied.",
	},
	"E302": {
		Category: CategoryMutation,
		Message:  "Change rolled back",
		Detail:   "The backend write failed and the local state was restored.",
	},
	"E303": {
		Category: CategoryMutation,
		Message:  "View closed",
		Detail:   "The view owning this change was closed before the write completed.",
	},

	// ============================================
	// Upload Errors (E400-E499)
	// ============================================

	"E401": {
		Category: CategoryUpload,
		Message:  "Upload failed",
		Detail:   "The image could not be stored by the image hosting service.",
	},
	"E402": {
		Category: CategoryUpload,
		Message:  "Unsupported file type",
		Detail:   "Only image uploads are accepted.",
	},

	// ============================================
	// Search Errors (E500-E599)
	// ============================================

	"E501": {
		Category: CategorySearch,
		Message:  "Search unavailable",
		Detail:   "The search engine could not be reached.",
	},

	// ============================================
	// CLI Errors (E600-E699)
	// ============================================

	"E601": {
		Category: CategoryCLI,
		Message:  "Config already exists",
		Detail:   "A configuration file already exists at this location.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
