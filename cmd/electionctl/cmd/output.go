// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/danielhkuo/campus-vote/chain"
	"github.com/danielhkuo/campus-vote/ledger"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	dimColor  = color.New(color.Faint)
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(true)
	t.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	t.SetBorder(false)
	t.SetCenterSeparator("")
	t.SetColumnSeparator("")
	t.SetRowSeparator("")
	t.SetHeaderLine(false)
	t.SetTablePadding("  ")
	t.SetNoWhiteSpace(true)
	return t
}

// when renders a time with its distance from now, e.g. "2025-09-01 09:00 UTC (3 days ago)"
func when(t time.Time) string {
	return fmt.Sprintf("%s (%s)", t.UTC().Format("2006-01-02 15:04 MST"), humanize.Time(t))
}

func statusText(s ledger.Status) string {
	switch s {
	case ledger.Active:
		return color.GreenString(s.String())
	case ledger.Cancelled:
		return color.RedString(s.String())
	case ledger.Completed:
		return color.CyanString(s.String())
	}
	return s.String()
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// printReceipt reports an included transaction.
func printReceipt(w io.Writer, what string, r *chain.Receipt) {
	okColor.Fprintf(w, "%s\n", what)
	fmt.Fprintf(w, "  tx:    %s\n", r.TxHash.Hex())
	fmt.Fprintf(w, "  block: %s\n", humanize.Comma(int64(r.BlockNumber)))
	if r.GasUsed > 0 {
		fmt.Fprintf(w, "  gas:   %s\n", humanize.Comma(int64(r.GasUsed)))
	}
}
