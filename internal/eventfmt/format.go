// Package eventfmt renders bridge events for a terminal.
package eventfmt

import (
	"fmt"
	"io"
	"sync"

	"github.com/adaptyteam/AdaptySDK-Capacitor-sub000/events"
	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
)

// Printer writes a header line per event followed by a dump of the record.
// It is safe for concurrent use.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	dump   *pp.PrettyPrinter
	source *color.Color
	name   *color.Color
	view   *color.Color
}

// New returns a Printer writing to w. colored toggles ANSI colors for both
// the header and the dump.
func New(w io.Writer, colored bool) *Printer {
	dump := pp.New()
	dump.SetOutput(w)
	dump.SetColoringEnabled(colored)
	dump.SetExportedOnly(true)

	p := &Printer{
		w:      w,
		dump:   dump,
		source: color.New(color.FgMagenta, color.Bold),
		name:   color.New(color.FgCyan),
		view:   color.New(color.FgYellow),
	}
	for _, c := range []*color.Color{p.source, p.name, p.view} {
		if colored {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Session prints an event delivered to a session listener of family.
func (p *Printer) Session(family string, ev events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s\n", p.source.Sprint("session"), p.name.Sprint(family))
	p.dump.Println(ev)
}

// View prints an event delivered to slot of a view router of kind.
func (p *Printer) View(kind, slot string, ev events.ViewEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ref := ev.ViewRef()
	fmt.Fprintf(p.w, "%s %s %s %s\n",
		p.source.Sprint(kind),
		p.name.Sprint(slot),
		p.view.Sprint("view="+ref.ID),
		ev.NativeEvent(),
	)
	p.dump.Println(ev)
}
