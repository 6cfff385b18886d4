package safety

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Confirmer supplies the human challenge-response before a destructive
// operation. Implementations may be interactive or scripted; the dispatcher
// only requires it for real-mode execution.
type Confirmer interface {
	Confirm(path, method string) (bool, error)
}

// TerminalConfirmer reads the confirmation from an input stream. The
// challenge is exact and case-sensitive: anything other than "YES" declines.
type TerminalConfirmer struct {
	In  io.Reader
	Out io.Writer
}

func (c *TerminalConfirmer) Confirm(path, method string) (bool, error) {
	fmt.Fprintf(c.Out, "\nWARNING: DESTRUCTIVE OPERATION\n")
	fmt.Fprintf(c.Out, "Device: %s\n", path)
	fmt.Fprintf(c.Out, "Method: %s\n", method)
	fmt.Fprintf(c.Out, "This operation will PERMANENTLY ERASE all data on this device and cannot be undone.\n")
	fmt.Fprintf(c.Out, "Type 'YES' to confirm: ")

	reader := bufio.NewReader(c.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	return strings.TrimRight(line, "\r\n") == "YES", nil
}

// ScriptedConfirmer returns a fixed answer; used by tests and non-terminal
// frontends that collected the confirmation elsewhere.
type ScriptedConfirmer struct {
	Answer bool
}

func (c *ScriptedConfirmer) Confirm(path, method string) (bool, error) {
	return c.Answer, nil
}
