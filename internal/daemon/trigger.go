package daemon

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// TriggerMode selects what ends the listening state.
type TriggerMode string

const (
	// TriggerAuto picks TriggerConsole when stdin is a terminal, else TriggerService.
	TriggerAuto TriggerMode = "auto"
	// TriggerConsole exits on a line (or EOF) from stdin.
	TriggerConsole TriggerMode = "console"
	// TriggerService exits on a signal or an IPC stop request only.
	TriggerService TriggerMode = "service"
)

// ParseTriggerMode validates a configured trigger name.
func ParseTriggerMode(s string) (TriggerMode, error) {
	switch TriggerMode(s) {
	case "", TriggerAuto:
		return TriggerAuto, nil
	case TriggerConsole, TriggerService:
		return TriggerMode(s), nil
	default:
		return "", fmt.Errorf("unknown shutdown trigger %q (want auto, console or service)", s)
	}
}

// ResolveTrigger turns TriggerAuto into a concrete mode for stdin.
func ResolveTrigger(mode TriggerMode, stdin *os.File) TriggerMode {
	if mode != TriggerAuto {
		return mode
	}
	if stdin != nil && term.IsTerminal(int(stdin.Fd())) {
		return TriggerConsole
	}
	return TriggerService
}

// WaitForShutdown blocks until ctx is cancelled (signals), stop is closed
// (IPC), or, in console mode, a line is read from stdin. It returns a short
// description of what ended the wait.
func WaitForShutdown(ctx context.Context, mode TriggerMode, stdin io.Reader, stop <-chan struct{}) string {
	var console chan struct{}
	if mode == TriggerConsole && stdin != nil {
		console = make(chan struct{})
		go func() {
			// A line or EOF both count as an exit request.
			bufio.NewReader(stdin).ReadString('\n')
			close(console)
		}()
	}

	select {
	case <-ctx.Done():
		return "signal"
	case <-stop:
		return "stop request"
	case <-console:
		return "console input"
	}
}
