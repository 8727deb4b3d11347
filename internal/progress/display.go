package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

var stageLabels = map[string]string{
	"configure": "Checking configuration",
	"load":      "Reading commit history",
	"analyze":   "Classifying commits",
	"version":   "Computing next version",
	"notes":     "Rendering release notes",
	"prepare":   "Updating release artifacts",
	"commit":    "Committing and tagging",
	"publish":   "Publishing release",
}

// Label returns the human-readable description of a stage.
func Label(stage string) string {
	if l, ok := stageLabels[stage]; ok {
		return l
	}
	return stage
}

// Display prints one line per stage and animates a spinner while the
// stage runs on a TTY. It implements lifecycle.StageObserver.
type Display struct {
	out     io.Writer
	caps    TerminalCapabilities
	symbols Symbols
	spin    *spinner.Spinner
}

// NewDisplay creates a display writing to out.
func NewDisplay(out io.Writer, caps TerminalCapabilities) *Display {
	return &Display{
		out:     out,
		caps:    caps,
		symbols: SelectSymbols(caps),
	}
}

// OnStageStart starts the spinner, or does nothing on non-TTY output.
func (d *Display) OnStageStart(name string) {
	if !d.caps.IsTTY {
		return
	}
	d.spin = spinner.New(spinner.CharSets[d.symbols.SpinnerSet], 100*time.Millisecond, spinner.WithWriter(d.out))
	d.spin.Suffix = " " + Label(name) + "..."
	d.spin.Start()
}

// OnStageComplete stops the spinner and prints the outcome.
func (d *Display) OnStageComplete(name string, err error, duration time.Duration) {
	if d.spin != nil {
		d.spin.Stop()
		d.spin = nil
	}

	mark := d.symbols.Checkmark
	paint := color.New(color.FgGreen, color.Bold).SprintFunc()
	if err != nil {
		mark = d.symbols.Failure
		paint = color.New(color.FgRed, color.Bold).SprintFunc()
	}
	if !d.caps.SupportsColor {
		paint = fmt.Sprint
	}

	dim := color.New(color.Faint).SprintFunc()
	if !d.caps.SupportsColor {
		dim = fmt.Sprint
	}
	fmt.Fprintf(d.out, "%s %s %s\n", paint(mark), Label(name), dim(formatDuration(duration)))
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return "(<1ms)"
	case d < time.Second:
		return fmt.Sprintf("(%dms)", d.Milliseconds())
	default:
		return fmt.Sprintf("(%.1fs)", d.Seconds())
	}
}
