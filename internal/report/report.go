// Package report renders refinement histories for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/rwcarlsen/hfem"
)

var (
	ColorAccent = lipgloss.Color("#20B9B4")
	ColorMuted  = lipgloss.Color("#2C4A54")
	ColorWarn   = lipgloss.Color("#F4D03F")
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1).Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(ColorMuted)
	warnStyle   = lipgloss.NewStyle().Foreground(ColorWarn)
)

// Headers are the columns of the history table.
var Headers = []string{"step", "nodes", "primal", "dual", "load", "error"}

func num(v float64) string { return strconv.FormatFloat(v, 'g', 6, 64) }

// Rows returns one row of the history table per step.
func Rows(h *hfem.History) [][]string {
	rows := make([][]string, 0, h.Len())
	for i, s := range h.All() {
		rows = append(rows, []string{
			strconv.Itoa(i),
			strconv.Itoa(s.Size()),
			num(s.PrimalTotal()),
			num(s.DualTotal()),
			num(s.LoadNorm()),
			num(s.Error()),
		})
	}
	return rows
}

// Table renders the history as a bordered table titled with the run outcome.
func Table(h *hfem.History) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(Headers...).
		Rows(Rows(h)...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	title := titleStyle.Render(fmt.Sprintf("refinement %v after %v steps", h.Outcome(), h.Len()))
	if h.Outcome() == hfem.Iterate {
		title = warnStyle.Render(fmt.Sprintf("refinement stopped after %v steps", h.Len()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, title, t.String())
}

// WriteTable writes Table(h) followed by a newline.
func WriteTable(w io.Writer, h *hfem.History) error {
	_, err := fmt.Fprintln(w, Table(h))
	return err
}

// WriteElements writes the per-element quantities of s in tab-separated form
// in the form:
//
//	[x1]	[x2]	[primal]	[dual]	[load]	[error]
//	...
func WriteElements(w io.Writer, s hfem.State) error {
	primal, dual, load, errs := s.PrimalNorms(), s.DualNorms(), s.LoadNorms(), s.Errors()
	m := s.Mesh()
	for i := 0; i < s.Elements(); i++ {
		x1, x2 := m.Element(i)
		if _, err := fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\n", x1, x2, primal[i], dual[i], load[i], errs[i]); err != nil {
			return err
		}
	}
	return nil
}

// WriteSamples writes a comment line naming the mesh size followed by
// nsamples+1 samples of the primal and dual solutions of s.
func WriteSamples(w io.Writer, s hfem.State, nsamples int) error {
	if _, err := fmt.Fprintf(w, "# nodes=%v error=%v\n", s.Size(), num(s.Error())); err != nil {
		return err
	}
	return s.PrintFunc(w, nsamples)
}
