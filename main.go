package main

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/storelens/storelens-ingestion-backend/cmd"
	cmdUtils "github.com/storelens/storelens-ingestion-backend/cmd/utils"
)

// Version is the official version of this application.
const Version = "1.4.0"

// GitCommit is populated at build time by
// go build -ldflags "-X main.GitCommit=$GIT_COMMIT"
var GitCommit string

func main() {
	preConfigureLogger()

	if err := cmdUtils.LoadEnvFile(os.Args[1:]); err != nil {
		log.Fatalf("Error loading env file: %s", err.Error())
	}

	if err := cmd.SetupCLI(Version, GitCommit).Execute(); err != nil {
		log.Fatalf("Error executing CLI: %s", err.Error())
	}
}

// preConfigureLogger sets the log level to Trace so logs work from the start. This is
// overwritten in cmd/root.go once the log-level flag is parsed.
func preConfigureLogger() {
	log.SetLevel(log.TraceLevel)
}
