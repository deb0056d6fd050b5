package main

import (
	"log"
	"os"

	"github.com/officialmikal/elimusmart/core"
)

func main() {
	logger := log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	if err != nil {
		logger.Fatal(err)
	}

	// start CLI
	cli := newCommandLine(conf, os.Stdout, logger)
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
