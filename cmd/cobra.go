package cmd

import (
	"github.com/spf13/cobra"
)

// Mainify adapts an error-returning command entry point into the signature
// that Cobra expects. Entry points return errors rather than terminating the
// process themselves so that their deferred cleanup still runs; Mainify
// handles the final reporting and exit.
func Mainify(entry func(*cobra.Command, []string) error) func(*cobra.Command, []string) {
	return func(command *cobra.Command, arguments []string) {
		if err := entry(command, arguments); err != nil {
			Fatal(err)
		}
	}
}
