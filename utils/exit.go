package utils

import "os"

// Operational exit codes. 0 = success, 1 = configuration invalid,
// 2 = external dependency unreachable, 3 = partial success.
const (
	ExitOK            = 0
	ExitBadConfig     = 1
	ExitDepUnreached  = 2
	ExitPartialErrors = 3
)

// ExitDependencyUnreachable terminates the process with the dependency code.
func ExitDependencyUnreachable() {
	os.Exit(ExitDepUnreached)
}
