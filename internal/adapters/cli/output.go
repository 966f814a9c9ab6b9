package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
	bold   = color.New(color.Bold)
)

type printer struct {
	w io.Writer
}

// Header prints a title underlined to its width.
func (p printer) Header(text string) {
	bold.Fprintln(p.w, text)
	fmt.Fprintln(p.w, strings.Repeat("=", len([]rune(text))))
}

func (p printer) Success(text string) {
	green.Fprintf(p.w, "✓ %s\n", text)
}

func (p printer) Info(text string) {
	fmt.Fprintf(p.w, "  → %s\n", text)
}

func (p printer) Warning(text string) {
	yellow.Fprintf(p.w, "  ⚠ %s\n", text)
}

func (p printer) Error(text string) {
	red.Fprintf(p.w, "  ✗ %s\n", text)
}

// Table writes rows aligned on tab stops. The first row is the header.
func (p printer) Table(rows [][]string) {
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}
