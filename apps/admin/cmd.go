package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/academics"
	"github.com/officialmikal/elimusmart/core/bulk"
	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
	logsvc "github.com/officialmikal/elimusmart/services/logger"
	mpesasvc "github.com/officialmikal/elimusmart/services/mpesa"
	inmemdb "github.com/officialmikal/elimusmart/storage/database/inmem"
)

var (
	isTerminalFunc = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) } // mockable

	errHelp = errors.New("help provided")
)

// commandLine works on files only: records are loaded into an in-memory store for each run.
type commandLine struct {
	stdout io.Writer
	logger core.Logger

	subjects  *subject.Service
	academics *academics.Service
	finance   *finance.Service
	bulk      *bulk.Service
}

func newCommandLine(conf *core.Config, stdout io.Writer, std *log.Logger) *commandLine {
	db, _ := inmemdb.Open()
	logger := logsvc.NewRollbarLogger(std, conf)

	markRepo := inmemdb.NewMarkRepository(db)
	studentSvc := student.NewService(inmemdb.NewStudentRepository(db))
	subjectSvc := subject.NewService(inmemdb.NewSubjectRepository(db), markRepo)
	academicsSvc := academics.NewService(markRepo, studentSvc, subjectSvc)
	financeSvc := finance.NewService(
		inmemdb.NewLedgerRepository(db),
		studentSvc,
		mpesasvc.NewSimulatedGateway(conf.Mpesa),
		logger,
		finance.Options{Term: conf.CurrentTerm, Year: conf.CurrentYear},
	)

	return &commandLine{
		stdout:    stdout,
		logger:    logger,
		subjects:  subjectSvc,
		academics: academicsSvc,
		finance:   financeSvc,
		bulk:      bulk.NewService(studentSvc, subjectSvc, academicsSvc, financeSvc),
	}
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.stdout, "Usage:")
	fmt.Fprintln(cli.stdout, "  meritlist -students FILE -marks FILE [-grade GRADE] [-out FILE.csv|FILE.xlsx] - rank students by mean score")
	fmt.Fprintln(cli.stdout, "  feestats -students FILE [-payments FILE] - summarize fee balances & collections")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	meritListCmd := flag.NewFlagSet("meritlist", flag.ContinueOnError)
	meritListCmd.SetOutput(cli.stdout)
	meritListStudents := meritListCmd.String("students", "", "The student roster (.csv or .xlsx).")
	meritListMarks := meritListCmd.String("marks", "", "The marks file: ADM, Subject, Score columns (.csv or .xlsx).")
	meritListGrade := meritListCmd.String("grade", "", "Rank the students of this grade only.")
	meritListOut := meritListCmd.String("out", "", "Write the merit list to this file (.csv or .xlsx).")

	feeStatsCmd := flag.NewFlagSet("feestats", flag.ContinueOnError)
	feeStatsCmd.SetOutput(cli.stdout)
	feeStatsStudents := feeStatsCmd.String("students", "", "The student roster with a Fee Balance column (.csv or .xlsx).")
	feeStatsPayments := feeStatsCmd.String("payments", "", "The payments collected: ADM, Amount columns (.csv or .xlsx).")

	ctx := context.Background()

	switch args[1] {
	case "meritlist":
		if err := meritListCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *meritListStudents == "" || *meritListMarks == "" {
			meritListCmd.Usage()
			return errHelp
		}
		return cli.meritList(ctx, *meritListStudents, *meritListMarks, *meritListGrade, *meritListOut)
	case "feestats":
		if err := feeStatsCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *feeStatsStudents == "" {
			feeStatsCmd.Usage()
			return errHelp
		}
		return cli.feeStats(ctx, *feeStatsStudents, *feeStatsPayments)
	default:
		cli.printUsage()
		return errHelp
	}
}

type importFunc func(ctx context.Context, r io.Reader, format string) (bulk.ImportResult, error)

// load imports a file & logs the rows it skipped.
func (cli *commandLine) load(ctx context.Context, path string, fn importFunc) error {
	format, err := bulk.DetectFormat(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	res, err := fn(ctx, f, format)
	if err != nil {
		return errors.Wrapf(err, "importing %s", path)
	}
	for _, skipped := range res.Skipped {
		cli.logger.Warn(fmt.Sprintf("%s: row %d skipped: %s", path, skipped.Row, skipped.Reason))
	}
	return nil
}
