package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dentalai/dentalsynth/internal/config"
	"github.com/dentalai/dentalsynth/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	stdout io.Writer
}

type command struct {
	name    string
	summary string
	run     func(a *app, args []string) error
}

var commands = []command{
	{"generate", "generate a synthetic YOLO dataset", runGenerate},
	{"validate", "check a dataset's layout, manifest and labels", runValidate},
	{"train", "train a YOLO model on a dataset", runTrain},
	{"export", "export trained weights to CoreML or ONNX", runExport},
	{"placeholder", "write a placeholder .mlpackage for the app", runPlaceholder},
	{"inspect", "report ONNX model inputs, outputs and YOLO likelihood", runInspect},
	{"preview", "draw a sample's label boxes onto its image", runPreview},
	{"review", "ask a vision model to confirm generated labels", runReview},
}

// errUsage is returned after flag parsing already printed the problem.
var errUsage = errors.New("usage error")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 1
	}

	switch args[0] {
	case "help", "-h", "-help", "--help":
		usage(stdout)
		return 0
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "dentalsynth %s\n", version)
		return 0
	}

	cmd, ok := findCommand(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 1
	}

	cfg, err := config.Load(configPathFromArgs(args[1:]))
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	log := logger.New(stderr)
	if cfg.LogFile != "" {
		fileLog, err := logger.NewWithFile(stderr, cfg.LogFile)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		log = fileLog
	}
	defer log.Close()

	a := &app{cfg: cfg, log: log, stdout: stdout}
	if err := cmd.run(a, args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		if !errors.Is(err, errUsage) {
			log.Error("%s failed: %v", cmd.name, err)
		}
		return 1
	}
	return 0
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [flags]\n\nCommands:\n", filepath.Base(os.Args[0]))
	for _, c := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun '%s <command> -h' for command flags.\n", filepath.Base(os.Args[0]))
}

// configPathFromArgs finds -config before the command's flag set exists, so
// config values can become flag defaults.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		if v, ok := strings.CutPrefix(name, "config="); ok {
			return v
		}
		if name == "config" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

// newFlagSet returns a flag set that reports errors instead of exiting and
// accepts -config, already consumed by run.
func (a *app) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.String("config", "", "config file (default "+config.GetConfigPath()+")")
	fs.BoolFunc("v", "enable debug logging", func(string) error {
		a.log.SetDebug(true)
		return nil
	})
	return fs
}

// parse parses args and maps flag errors to errUsage.
func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return errUsage
	}
	return nil
}

// firstArg returns the flag value, or the first positional argument when the flag is empty.
func firstArg(fs *flag.FlagSet, value string) string {
	if value == "" && fs.NArg() > 0 {
		return fs.Arg(0)
	}
	return value
}
