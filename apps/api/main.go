package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"

	echoapi "github.com/officialmikal/elimusmart/apps/api/echo"
	"github.com/officialmikal/elimusmart/core"
	"github.com/officialmikal/elimusmart/core/academics"
	"github.com/officialmikal/elimusmart/core/bulk"
	"github.com/officialmikal/elimusmart/core/finance"
	"github.com/officialmikal/elimusmart/core/messaging"
	"github.com/officialmikal/elimusmart/core/seed"
	"github.com/officialmikal/elimusmart/core/student"
	"github.com/officialmikal/elimusmart/core/subject"
	emailsvc "github.com/officialmikal/elimusmart/services/email"
	logsvc "github.com/officialmikal/elimusmart/services/logger"
	mpesasvc "github.com/officialmikal/elimusmart/services/mpesa"
	smssvc "github.com/officialmikal/elimusmart/services/sms"
	inmemdb "github.com/officialmikal/elimusmart/storage/database/inmem"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// set up loggers
	stdFlags := log.LstdFlags | log.Lmicroseconds | log.Lshortfile
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "API : ", stdFlags), conf)

	// set up DB
	db, err := inmemdb.Open()
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, log.New(os.Stdout, "EMAIL : ", stdFlags))
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	smsSvc := smssvc.NewConsoleService(log.New(os.Stdout, "SMS : ", stdFlags))

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
	messagingSvc := messaging.NewService(
		inmemdb.NewBroadcastRepository(db),
		studentSvc,
		financeSvc,
		smsSvc,
		mailSvc,
		logger,
		messaging.Options{SchoolName: conf.SchoolName, FromEmail: conf.DefaultFromEmail(), Term: conf.CurrentTerm},
	)
	if conf.AutoMessaging {
		financeSvc.SetNotifier(messagingSvc)
	}
	bulkSvc := bulk.NewService(studentSvc, subjectSvc, academicsSvc, financeSvc)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate, translator := core.NewValidator()
	student.RegisterValidators(validate, translator)
	subject.RegisterValidators(validate, translator)
	finance.RegisterValidators(validate, translator)

	if err = subjectSvc.EnsureDefaults(context.Background()); err != nil {
		logger.Fatal(fmt.Sprintf("creating default subjects: %v", err), err)
	}
	if conf.SeedDemoData {
		if err = seed.Run(context.Background(), studentSvc, subjectSvc, financeSvc); err != nil {
			logger.Fatal(fmt.Sprintf("seeding demo data: %v", err), err)
		}
		logger.Info("Demo data seeded")
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)
	expvar.NewString("school").Set(conf.SchoolName)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugAddress, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			StudentSvc:   studentSvc,
			SubjectSvc:   subjectSvc,
			AcademicsSvc: academicsSvc,
			FinanceSvc:   financeSvc,
			MessagingSvc: messagingSvc,
			BulkSvc:      bulkSvc,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}
