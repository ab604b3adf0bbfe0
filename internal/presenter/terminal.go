package presenter

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/BTreeMap/PayFlow/internal/flow"
	"github.com/fatih/color"
)

// Terminal prints publications, result screens and alerts in color.
type Terminal struct {
	mu  sync.Mutex
	out io.Writer
}

var _ flow.Presenter = (*Terminal)(nil)

// NewTerminal creates a Terminal writing to out, or stdout when out is nil.
func NewTerminal(out io.Writer) *Terminal {
	if out == nil {
		out = os.Stdout
	}
	return &Terminal{out: out}
}

// Present prints the widget and its data set, one key per line.
func (t *Terminal) Present(_ context.Context, pub flow.Publication) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	header := color.New(color.FgCyan, color.Bold)
	header.Fprintf(t.out, "%s (%s)\n", pub.Widget, pub.Kind)
	if pub.Schema.Title != "" {
		fmt.Fprintf(t.out, "  %s\n", pub.Schema.Title)
	}
	if len(pub.Data) == 0 {
		color.New(color.FgYellow).Fprintln(t.out, "  no prefilled fields")
		return nil
	}
	key := color.New(color.FgGreen)
	for _, k := range pub.Data.Keys() {
		key.Fprintf(t.out, "  %s", k)
		fmt.Fprintf(t.out, " = %s\n", MaskValue(k, pub.Data[k]))
	}
	return nil
}

// PresentResult prints the result screen.
func (t *Terminal) PresentResult(_ context.Context, screen flow.ResultScreen) {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := color.New(color.FgRed, color.Bold)
	if screen.Success {
		c = color.New(color.FgGreen, color.Bold)
	}
	title := screen.Title
	if title == "" {
		title = "Result"
	}
	c.Fprintln(t.out, title)
	if screen.Message != "" {
		fmt.Fprintf(t.out, "  %s\n", screen.Message)
	}
	for _, k := range sortedKeys(screen.Result) {
		fmt.Fprintf(t.out, "  %s: %v\n", k, screen.Result[k])
	}
	if screen.ButtonTitle != "" {
		color.New(color.Faint).Fprintf(t.out, "  [%s]\n", screen.ButtonTitle)
	}
}

// PresentAlert prints the alert.
func (t *Terminal) PresentAlert(_ context.Context, alert flow.Alert) {
	t.mu.Lock()
	defer t.mu.Unlock()
	color.New(color.FgRed).Fprintf(t.out, "%s: ", alert.Title)
	fmt.Fprintln(t.out, alert.Message)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
