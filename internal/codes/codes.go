package codes

import "github.com/rotisserie/eris"

// Error kinds surfaced by buildenv. Call sites wrap these with eris so the
// chain can be mapped back to an exit code.
var (
	ErrInvalidConfiguration  = eris.New("invalid configuration")
	ErrDirectoryNotFound     = eris.New("directory not found")
	ErrDuplicateRegistration = eris.New("duplicate registration")
	ErrToolNotFound          = eris.New("tool not found")
	ErrSuiteLinked           = eris.New("test suite already linked")
	ErrUnknownArtifact       = eris.New("unknown artifact")
	ErrProfileFrozen         = eris.New("profile is frozen")
	ErrDescriptor            = eris.New("descriptor failed")
	ErrActionFailed          = eris.New("build action failed")
)

// Process exit codes
const (
	Success            = 0
	Failure            = 1
	ConfigurationError = 2
	DirectoryNotFound  = 3
	DescriptorError    = 4
	ActionFailed       = 5
)

// ErrorCodes maps buildenv exit codes to their descriptions
var ErrorCodes = map[int]string{
	Success:            "Success",
	Failure:            "General failure",
	ConfigurationError: "Invalid configuration",
	DirectoryNotFound:  "Source or library directory not found",
	DescriptorError:    "Build descriptor failed",
	ActionFailed:       "Build action failed",
}

// IsSuccess returns true if the exit code indicates a successful run
func IsSuccess(code int) bool {
	return code == Success
}

// GetErrorMessage returns the message for a given exit code, or a generic message if unknown
func GetErrorMessage(code int) string {
	if msg, ok := ErrorCodes[code]; ok {
		return msg
	}

	return "Unknown error"
}

// ExitCode maps an error chain to the exit code the process should end with.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return Success
	case eris.Is(err, ErrInvalidConfiguration), eris.Is(err, ErrProfileFrozen):
		return ConfigurationError
	case eris.Is(err, ErrDirectoryNotFound):
		return DirectoryNotFound
	case eris.Is(err, ErrDescriptor), eris.Is(err, ErrUnknownArtifact), eris.Is(err, ErrSuiteLinked):
		return DescriptorError
	case eris.Is(err, ErrActionFailed):
		return ActionFailed
	}

	return Failure
}
