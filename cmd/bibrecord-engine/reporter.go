// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
)

// consoleReporter renders batch progress as a single redrawn line.
type consoleReporter struct {
	w       io.Writer
	lastLen int
}

func newConsoleReporter(w io.Writer) *consoleReporter {
	return &consoleReporter{w: w}
}

func (r *consoleReporter) ReportFraction(_, _ int, text string) {
	// Pad with spaces so a shorter line fully overwrites the previous one.
	pad := r.lastLen - len(text)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintf(r.w, "\r%s%*s", text, pad, "")
	r.lastLen = len(text)
}

func (r *consoleReporter) ReportDone() {
	fmt.Fprintln(r.w)
	r.lastLen = 0
}
