package cli

import (
	"io"

	"github.com/pterm/pterm"
)

// progressBar shows the advance of a search as a terminal progress bar.
type progressBar struct {
	out   io.Writer
	title string
	bar   *pterm.ProgressbarPrinter
}

func newProgressBar(out io.Writer, title string) *progressBar {
	return &progressBar{out: out, title: title}
}

func (p *progressBar) Start(total int) {
	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle(p.title).
		WithWriter(p.out).
		Start()
	if err != nil {
		return
	}
	p.bar = bar
}

func (p *progressBar) Update(done int) {
	if p.bar == nil || done <= p.bar.Current {
		return
	}
	p.bar.Add(done - p.bar.Current)
}

func (p *progressBar) Finish() {
	if p.bar == nil {
		return
	}
	//nolint:errcheck
	p.bar.Stop()
}
