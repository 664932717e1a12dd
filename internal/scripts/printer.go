package scripts

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// Printer writes command output, coloured when the terminal allows it.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

func NewPrinter(out, errOut io.Writer, useColors bool) *Printer {
	return &Printer{out: out, err: errOut, useColors: useColors}
}

// resolveColors honours NO_COLOR and dumb terminals.
func resolveColors(noColor bool) bool {
	if noColor {
		return false
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

func (p *Printer) Info(format string, args ...any) {
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

func (p *Printer) Success(format string, args ...any) {
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
}

func (p *Printer) Warning(format string, args ...any) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "! "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
}

func (p *Printer) Error(format string, args ...any) {
	if p.useColors {
		color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
}

// Table renders rows under headers without borders.
func (p *Printer) Table(headers []string, rows [][]string) error {
	table := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(headers)
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
