package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/raymyers/ralph-c2rust/pkg/ctypes"
	"github.com/raymyers/ralph-c2rust/pkg/transpile"
)

var version = "0.1.0"

// Debug flags selecting a single section of the output
var (
	dTypes    bool
	dExprs    bool
	dFeatures bool
)

// Run options; zero values defer to the config file
var (
	configPath  string
	logLevel    string
	failOnError bool
	emitNoStd   bool
	invalidCode string
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Accept single-dash debug flags such as -dtypes
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// debugFlagNames lists the debug flags that also accept single-dash style
var debugFlagNames = []string{"dtypes", "dexprs", "dfeatures"}

// normalizeFlags converts single-dash debug flags like -dtypes to --dtypes
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = arg
		for _, flagName := range debugFlagNames {
			if arg == "-"+flagName {
				result[i] = "--" + flagName
				break
			}
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ralph-c2rust [file.yaml]",
		Short: "ralph-c2rust translates typed C units to Rust",
		Long: `ralph-c2rust reads the typed AST of a C translation unit (as YAML)
and prints the equivalent Rust: record and typedef definitions, the
translation of each top-level expression, and the feature gates the
result needs.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				fmt.Fprintf(errOut, "ralph-c2rust: %v\n", err)
				return err
			}
			logger, err := cfg.NewLogger(errOut)
			if err != nil {
				fmt.Fprintf(errOut, "ralph-c2rust: %v\n", err)
				return err
			}

			if dTypes || dExprs || dFeatures {
				sections := transpile.Sections{Types: dTypes, Exprs: dExprs, Features: dFeatures}
				return doTranslate(filename, cfg, sections, logger, out, errOut)
			}
			return doTranslateFile(filename, cfg, logger, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	// Add debug flags
	rootCmd.Flags().BoolVarP(&dTypes, "dtypes", "", false, "Dump converted records, enums and typedefs")
	rootCmd.Flags().BoolVarP(&dExprs, "dexprs", "", false, "Dump translated root expressions")
	rootCmd.Flags().BoolVarP(&dFeatures, "dfeatures", "", false, "Dump the feature gates the output needs")

	// Add run options
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Read settings from a YAML config file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (off, error, warn, info, debug, trace)")
	rootCmd.Flags().BoolVar(&failOnError, "fail-on-error", false, "Stop at the first untranslatable item")
	rootCmd.Flags().BoolVar(&emitNoStd, "emit-no-std", false, "Refer to ::core instead of ::std")
	rootCmd.Flags().StringVar(&invalidCode, "invalid-code", "", "Spelling of values that must not be read (panic, compile_error)")

	return rootCmd
}

// loadConfig reads the config file, if any, and applies the flags the
// user set on top of it
func loadConfig(flags *pflag.FlagSet) (transpile.Config, error) {
	cfg := transpile.DefaultConfig()
	if configPath != "" {
		var err error
		cfg, err = transpile.LoadConfig(configPath)
		if err != nil {
			return cfg, err
		}
	}

	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("fail-on-error") {
		cfg.FailOnError = failOnError
	}
	if flags.Changed("emit-no-std") {
		cfg.EmitNoStd = emitNoStd
	}
	if flags.Changed("invalid-code") {
		cfg.InvalidCode = invalidCode
	}
	return cfg, cfg.Validate()
}

// readUnit loads the typed AST of a translation unit
func readUnit(filename string, errOut io.Writer) (*ctypes.Context, error) {
	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-c2rust: error reading %s: %v\n", filename, err)
		return nil, err
	}
	defer f.Close()

	ctx, err := ctypes.LoadYAML(f)
	if err != nil {
		fmt.Fprintf(errOut, "ralph-c2rust: %s: %v\n", filename, err)
		return nil, err
	}
	return ctx, nil
}

// doTranslate translates the unit and prints the selected sections
func doTranslate(filename string, cfg transpile.Config, sections transpile.Sections, logger *logrus.Logger, out, errOut io.Writer) error {
	ctx, err := readUnit(filename, errOut)
	if err != nil {
		return err
	}

	tp := transpile.New(cfg, logrus.NewEntry(logger).WithField("file", filename))
	tp.Sections = sections
	if err := tp.Run(ctx, out); err != nil {
		fmt.Fprintf(errOut, "ralph-c2rust: %v\n", err)
		return err
	}
	if problems := tp.Problems(); len(problems) > 0 {
		fmt.Fprintf(errOut, "ralph-c2rust: %d item(s) left untranslated\n", len(problems))
	}
	return nil
}

// doTranslateFile translates the whole unit, writing it to a .rs file next
// to the input
func doTranslateFile(filename string, cfg transpile.Config, logger *logrus.Logger, out, errOut io.Writer) error {
	var sb strings.Builder
	if err := doTranslate(filename, cfg, transpile.AllSections(), logger, &sb, errOut); err != nil {
		return err
	}

	outputFilename := rustOutputFilename(filename)
	if err := os.WriteFile(outputFilename, []byte(sb.String()), 0644); err != nil {
		fmt.Fprintf(errOut, "ralph-c2rust: error creating %s: %v\n", outputFilename, err)
		return err
	}

	// Also print to stdout for convenience
	fmt.Fprint(out, sb.String())
	return nil
}

// rustOutputFilename returns the output filename: unit.yaml -> unit.rs
func rustOutputFilename(filename string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		if strings.HasSuffix(filename, ext) {
			return filename[:len(filename)-len(ext)] + ".rs"
		}
	}
	return filename + ".rs"
}
