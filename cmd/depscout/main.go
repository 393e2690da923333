package main

import (
	"os"

	"github.com/fatih/color"

	"github.com/mattn/go-isatty"

	"github.com/spf13/cobra"

	"github.com/depscout/depscout/cmd"
)

// rootMain is the entry point for the root command.
func rootMain(command *cobra.Command, arguments []string) error {
	// If no commands were given, then print help information and bail. We
	// don't have to worry about warning about arguments being present here
	// (since we do want the root command to accept arguments for the sake of
	// help information), because arguments can't be represented by Cobra
	// without a subcommand being present.
	command.Help()

	// Success.
	return nil
}

// rootCommand is the root command.
var rootCommand = &cobra.Command{
	Use:   "depscout",
	Short: "Discover project files by category, obeying ignore rules",
	Run:   cmd.Mainify(rootMain),
}

// rootConfiguration stores configuration for the root command.
var rootConfiguration struct {
	// help indicates whether or not help information should be shown for the
	// command.
	help bool
}

func init() {
	// Grab a handle for the command line flags.
	flags := rootCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message. Cobra will
	// still implement its logic automatically.
	flags.BoolVarP(&rootConfiguration.help, "help", "h", false, "Show help information")

	// Register commands.
	rootCommand.AddCommand(
		scanCommand,
		versionCommand,
	)
}

func main() {
	// Disable color output if standard output isn't a terminal.
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		color.NoColor = true
	}

	// Execute the root command.
	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}
