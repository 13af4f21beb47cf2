// Package procinfo resolves process ids to their main executable path.
package procinfo

import (
	"errors"
	"fmt"

	"github.com/shirou/gopsutil/v4/process"
)

// ErrNoProcess wraps every resolution failure: the process exited, access
// was denied, or the executable could not be read.
var ErrNoProcess = errors.New("owning process not resolvable")

// Resolver maps a process id to its executable's absolute path.
type Resolver interface {
	Executable(pid int) (string, error)
}

// GopsutilResolver resolves executables through gopsutil.
type GopsutilResolver struct{}

// NewResolver returns the default resolver.
func NewResolver() GopsutilResolver {
	return GopsutilResolver{}
}

// Executable returns the absolute path of pid's executable.
func (GopsutilResolver) Executable(pid int) (string, error) {
	if pid <= 0 {
		return "", fmt.Errorf("%w: invalid pid %d", ErrNoProcess, pid)
	}
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", fmt.Errorf("%w: pid %d: %v", ErrNoProcess, pid, err)
	}
	exe, err := p.Exe()
	if err != nil {
		return "", fmt.Errorf("%w: pid %d: %v", ErrNoProcess, pid, err)
	}
	if exe == "" {
		return "", fmt.Errorf("%w: pid %d has no executable path", ErrNoProcess, pid)
	}
	return exe, nil
}
