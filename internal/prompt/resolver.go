package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"lipsync/internal/config"
	"lipsync/internal/services"
)

// FolderPrompt is shown when no folder argument was supplied.
const FolderPrompt = "Please enter the path to the folder containing the video (.mp4) and audio (.mp3) files: "

// Resolver reads operator input. Folder resolution and the final pause share
// one buffered reader so typed-ahead input is not lost between them.
type Resolver struct {
	in  *bufio.Reader
	out io.Writer
}

// NewResolver reads from in and writes prompts and echoes to out.
func NewResolver(in io.Reader, out io.Writer) *Resolver {
	if in == nil {
		in = strings.NewReader("")
	}
	if out == nil {
		out = io.Discard
	}
	return &Resolver{in: bufio.NewReader(in), out: out}
}

// Resolve returns arg verbatim when non-empty. Otherwise it prompts once and
// uses the entered line with only the line terminator removed. The resolved
// path is echoed; it is never checked for existence.
func (r *Resolver) Resolve(arg string) (string, error) {
	folder := arg
	if folder == "" {
		fmt.Fprint(r.out, FolderPrompt)
		line, err := r.readLine()
		if err != nil {
			return "", services.Wrap(services.ErrInvalidFolder, services.StepResolve, "read folder path", "", err)
		}
		if line == "" {
			return "", services.Wrap(services.ErrInvalidFolder, services.StepResolve, "read folder path", "no folder path entered", nil)
		}
		folder = line
	}
	fmt.Fprintf(r.out, "Folder path: %s\n", folder)
	return folder, nil
}

// Pause prints message and waits for one line of input. End of input counts
// as acknowledgment.
func (r *Resolver) Pause(message string) {
	if message == "" {
		message = "Press Enter to exit..."
	}
	fmt.Fprint(r.out, message)
	_, _ = r.readLine()
	fmt.Fprintln(r.out)
}

func (r *Resolver) readLine() (string, error) {
	line, err := r.in.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		} else {
			return "", err
		}
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

// ShouldPause applies the pause policy. auto pauses only when stdin is a
// terminal, so automation never blocks.
func ShouldPause(mode string, stdin io.Reader) bool {
	switch mode {
	case config.PauseAlways:
		return true
	case config.PauseNever:
		return false
	default:
		return IsTerminal(stdin)
	}
}

// IsTerminal reports whether r is an interactive terminal.
func IsTerminal(r any) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
