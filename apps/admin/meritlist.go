package main

import (
	"context"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/officialmikal/elimusmart/core/bulk"
	"github.com/officialmikal/elimusmart/core/student"
)

// meritList ranks the students of the roster by the mean of their marks.
// Subjects missing from the default list are created from the marks file.
func (cli *commandLine) meritList(ctx context.Context, studentsPath, marksPath, grade, out string) error {
	if err := cli.subjects.EnsureDefaults(ctx); err != nil {
		return err
	}
	if err := cli.load(ctx, studentsPath, cli.bulk.ImportStudents); err != nil {
		return err
	}
	if err := cli.load(ctx, marksPath, cli.bulk.ImportSubjects); err != nil {
		return err
	}
	if err := cli.load(ctx, marksPath, cli.bulk.ImportMarks); err != nil {
		return err
	}

	entries, err := cli.academics.MeritList(ctx, student.QueryFilter{Grade: strings.TrimSpace(grade)})
	if err != nil {
		return err
	}

	switch {
	case out != "":
		format, err := bulk.DetectFormat(out)
		if err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := bulk.ExportMeritList(f, format, entries); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	case isTerminalFunc():
		tw := tabwriter.NewWriter(cli.stdout, 0, 0, 2, ' ', 0)
		writeRow(tw, bulk.MeritListColumns)
		for _, e := range entries {
			writeRow(tw, bulk.MeritListRow(e))
		}
		return tw.Flush()
	default:
		return bulk.ExportMeritList(cli.stdout, bulk.FormatCSV, entries)
	}
}

func writeRow(tw *tabwriter.Writer, cells []string) {
	_, _ = tw.Write([]byte(strings.Join(cells, "\t") + "\n"))
}
