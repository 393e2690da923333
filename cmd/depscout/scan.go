package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/fatih/color"

	"github.com/pkg/errors"

	"github.com/spf13/cobra"

	"github.com/depscout/depscout/cmd"
	"github.com/depscout/depscout/pkg/configuration"
	"github.com/depscout/depscout/pkg/discovery"
	"github.com/depscout/depscout/pkg/logging"
)

// scanMain is the entry point for the scan command.
func scanMain(command *cobra.Command, arguments []string) error {
	// Load the configuration file, which yields defaults if it doesn't exist.
	config, err := configuration.Load(scanConfiguration.configuration)
	if err != nil {
		return errors.Wrap(err, "unable to load configuration")
	}

	// Configure logging. The command line flag overrides the configuration
	// file.
	levelName := config.Log
	if scanConfiguration.logLevel != "" {
		levelName = scanConfiguration.logLevel
	}
	if levelName != "" {
		level, ok := logging.NameToLevel(levelName)
		if !ok {
			return errors.Errorf("invalid log level: %s", levelName)
		}
		logging.SetLevel(level)
	}
	logger := logging.RootLogger.Sublogger("scan")

	// Compose the categories. If none are configured, collect everything
	// under a single catch-all category.
	categories := make([]discovery.Category, 0, len(config.Categories))
	categoryNames := make([]string, 0, len(config.Categories))
	for _, category := range config.Categories {
		categories = append(categories, discovery.Category{
			Name:     category.Name,
			Patterns: category.Patterns,
		})
		categoryNames = append(categoryNames, category.Name)
	}
	if len(categories) == 0 {
		categories = []discovery.Category{{Name: "files", Patterns: []string{"*"}}}
		categoryNames = []string{"files"}
	}

	// Create the scanner.
	scanner := discovery.NewScanner(discovery.Options{
		Categories:             categories,
		Excludes:               append(append([]string{}, config.Excludes...), scanConfiguration.excludes...),
		ExcludeFrom:            append(append([]string{}, config.ExcludeFrom...), scanConfiguration.excludeFrom...),
		DisableDefaultExcludes: config.NoDefaultExcludes || scanConfiguration.noDefaultExcludes,
	}, logger)

	// Register roots: command line arguments override configured roots, and
	// the working directory is the fallback. Roots named on the command line
	// are tagged with every category.
	if len(arguments) > 0 {
		for _, path := range arguments {
			scanner.AddRoot(path, categoryNames...)
		}
	} else if len(config.Roots) > 0 {
		for _, root := range config.Roots {
			names := root.Categories
			if len(names) == 0 {
				names = categoryNames
			}
			scanner.AddRoot(root.Path, names...)
		}
	} else {
		scanner.AddRoot(".", categoryNames...)
	}

	// Perform the scan.
	result, err := scanner.Scan()
	if err != nil {
		return errors.Wrap(err, "scan failed")
	}

	// Print the files for each category.
	header := color.New(color.FgGreen, color.Bold)
	names := make([]string, 0, len(result.FilesByCategory))
	for name := range result.FilesByCategory {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		header.Printf("%s:\n", name)
		for _, file := range result.FilesByCategory[name] {
			fmt.Println("\t" + file)
		}
	}

	// Print a summary.
	fmt.Printf(
		"Visited %s directories (%s files) [%s]\n",
		humanize.Comma(int64(result.Directories)),
		humanize.Comma(int64(result.Files)),
		result.RunID,
	)

	// Success.
	return nil
}

// scanCommand is the scan command.
var scanCommand = &cobra.Command{
	Use:   "scan [<root>...]",
	Short: "Scan project trees for files by category",
	Run:   cmd.Mainify(scanMain),
}

// scanConfiguration stores configuration for the scan command.
var scanConfiguration struct {
	// help indicates whether or not help information should be shown for the
	// command.
	help bool
	// configuration is the path of the configuration file.
	configuration string
	// excludes are additional inline exclude patterns.
	excludes []string
	// excludeFrom are additional paths of files with exclude patterns.
	excludeFrom []string
	// noDefaultExcludes disables the implicit hidden-entry excludes.
	noDefaultExcludes bool
	// logLevel is the log level name.
	logLevel string
}

func init() {
	// Grab a handle for the command line flags.
	flags := scanCommand.Flags()

	// Disable alphabetical sorting of flags in help output.
	flags.SortFlags = false

	// Manually add a help flag to override the default message. Cobra will
	// still implement its logic automatically.
	flags.BoolVarP(&scanConfiguration.help, "help", "h", false, "Show help information")

	// Wire up scan flags.
	flags.StringVarP(&scanConfiguration.configuration, "config", "c", configuration.DefaultConfigurationName, "Specify the configuration file")
	flags.StringSliceVarP(&scanConfiguration.excludes, "exclude", "e", nil, "Add an exclude pattern (gitignore syntax)")
	flags.StringSliceVar(&scanConfiguration.excludeFrom, "exclude-from", nil, "Add a file with exclude patterns")
	flags.BoolVar(&scanConfiguration.noDefaultExcludes, "no-default-excludes", false, "Don't exclude hidden entries by default")
	flags.StringVarP(&scanConfiguration.logLevel, "log", "l", "", "Set the log level (error|warn|info|debug|trace)")
}
