package testutil

import (
	"flag"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
)

var (
	logFile   = ""
	logLevel  = "info"
	logStderr = false

	logMutex   sync.Mutex
	logWriters = map[string]*os.File{}
)

func init() {
	flag.StringVar(&logFile, "log-file", logFile, "`file` to use for logging")
	flag.StringVar(&logLevel, "log-level", logLevel,
		"log level: trace, debug, info, warn, error, fatal, or panic")
	flag.BoolVar(&logStderr, "log-stderr", logStderr, "log to standard error")
}

// SetupLogger sends the standard logger to file, unless -log-file or -log-stderr was given,
// and returns it. Each file is opened once per test binary.
func SetupLogger(file string) *log.Logger {
	logMutex.Lock()
	defer logMutex.Unlock()

	if !logStderr {
		if logFile != "" {
			file = logFile
		}

		w, ok := logWriters[file]
		if !ok {
			var err error
			w, err = os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
			if err != nil {
				panic(err)
			}
			fmt.Fprintln(w)
			logWriters[file] = w
		}
		log.SetOutput(w)
	}

	ll, err := log.ParseLevel(logLevel)
	if err != nil {
		panic(err)
	}
	log.SetLevel(ll)

	log.WithFields(log.Fields{
		"pid":  os.Getpid(),
		"file": file,
	}).Info("tests starting")
	return log.StandardLogger()
}
