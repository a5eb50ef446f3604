package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/temirov/codeprompt/internal/cli"
	"github.com/temirov/codeprompt/internal/utils"
)

const cancelledExitCode = 1

// main is the entry point for the codeprompt command.
func main() {
	loggerInstance, loggerInitializationError := utils.NewApplicationLogger(false)
	if loggerInitializationError != nil {
		panic(fmt.Errorf(utils.LoggerInitializationFailedMessageFormat, loggerInitializationError))
	}
	defer loggerInstance.Sync()
	if applicationExecutionError := cli.Execute(); applicationExecutionError != nil {
		if errors.Is(applicationExecutionError, cli.ErrCancelled) {
			loggerInstance.Sync()
			os.Exit(cancelledExitCode)
		}
		loggerInstance.Fatal(utils.ApplicationExecutionFailedMessage + ": " + applicationExecutionError.Error())
	}
}
