package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/codeprompt/internal/config"
)

const (
	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write a configuration file with the default flag values.
The file is created in the working directory, or in the home directory with --global.`
	globalFlagName        = "global"
	globalFlagDescription = "write the configuration into the home directory"
	forceFlagName         = "force"
	forceFlagDescription  = "overwrite an existing configuration file"
	initSuccessFormat     = "Configuration written to %s"
)

// createInitCommand returns the init subcommand.
func createInitCommand(dependencies Dependencies) *cobra.Command {
	var writeGlobal bool
	var overwrite bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if writeGlobal {
				target = config.InitTargetGlobal
			}
			writtenPath, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            overwrite,
				WorkingDirectory: dependencies.WorkingDirectory,
			})
			if initError != nil {
				return initError
			}
			fmt.Fprintf(command.OutOrStdout(), initSuccessFormat+"\n", writtenPath)
			return nil
		},
	}
	registerBooleanFlag(initCommand.Flags(), &writeGlobal, globalFlagName, "", false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &overwrite, forceFlagName, "", false, forceFlagDescription)
	return initCommand
}
