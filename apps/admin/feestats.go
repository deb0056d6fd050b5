package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"text/tabwriter"

	"github.com/officialmikal/elimusmart/core/messaging"
)

// feeStats summarizes the balances of the roster & the payments collected.
func (cli *commandLine) feeStats(ctx context.Context, studentsPath, paymentsPath string) error {
	if err := cli.load(ctx, studentsPath, cli.bulk.ImportStudents); err != nil {
		return err
	}
	if paymentsPath != "" {
		if err := cli.load(ctx, paymentsPath, cli.bulk.ImportPayments); err != nil {
			return err
		}
	}

	stats, err := cli.finance.Stats(ctx)
	if err != nil {
		return err
	}

	if isTerminalFunc() {
		tw := tabwriter.NewWriter(cli.stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintf(tw, "Total owed\tKES %s\t\n", messaging.FormatKES(stats.TotalOwed))
		fmt.Fprintf(tw, "Total collected\tKES %s\t\n", messaging.FormatKES(stats.TotalCollected))
		fmt.Fprintf(tw, "Collection efficiency\t%.1f%%\t\n", stats.Efficiency)
		return tw.Flush()
	}

	cw := csv.NewWriter(cli.stdout)
	_ = cw.Write([]string{"total_owed", "total_collected", "efficiency"})
	_ = cw.Write([]string{stats.TotalOwed.String(), stats.TotalCollected.String(), fmt.Sprintf("%.1f", stats.Efficiency)})
	cw.Flush()
	return cw.Error()
}
