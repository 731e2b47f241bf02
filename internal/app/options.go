package app

import (
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/log"

	"github.com/ndproxy6/ndppd/internal/version"
)

// defaultConfigPath is the configuration file path used when -c/--config is
// not given.
const defaultConfigPath = "/etc/ndppd.conf"

// Options holds the parsed command-line arguments.
type Options struct {
	ConfigPath string
	PIDFile    string
	Daemon     bool
	Verbose    bool
}

// effect is a side-effecting action deferred until after parsing completes,
// mirroring options parsed purely for their side effect (--version, --help).
type effect func() error

type arg struct {
	description string
	longName    string
	shortName   string

	updateWithValue func(o Options, v string) (Options, error)
	updateNoValue   func(o Options) (Options, error)
	effect          func(o Options, exec string) (f effect, err error)
}

var configArg = arg{
	description: "Path to the configuration file.",
	longName:    "config",
	shortName:   "c",
	updateWithValue: func(o Options, v string) (Options, error) {
		o.ConfigPath = v

		return o, nil
	},
}

var daemonArg = arg{
	description: "Run as a daemon.",
	longName:    "daemon",
	shortName:   "d",
	updateNoValue: func(o Options) (Options, error) {
		o.Daemon = true

		return o, nil
	},
}

var pidfileArg = arg{
	description: "Path to a file to store the running process's PID in.",
	longName:    "pidfile",
	shortName:   "p",
	updateWithValue: func(o Options, v string) (Options, error) {
		o.PIDFile = v

		return o, nil
	},
}

var verboseArg = arg{
	description: "Enable verbose (debug) logging.",
	longName:    "verbose",
	shortName:   "v",
	updateNoValue: func(o Options) (Options, error) {
		o.Verbose = true

		return o, nil
	},
}

var versionArg = arg{
	description: "Show the version and exit.",
	longName:    "version",
	effect: func(_ Options, _ string) (f effect, err error) {
		return func() error {
			fmt.Println(version.Full())
			os.Exit(0)

			return nil
		}, nil
	},
}

var helpArg = arg{
	description: "Print this help.",
	longName:    "help",
	effect: func(_ Options, exec string) (f effect, err error) {
		return func() error {
			printUsage(exec)
			os.Exit(64)

			return nil
		}, nil
	},
}

var args = []arg{configArg, daemonArg, pidfileArg, verboseArg, versionArg, helpArg}

func argMatches(a arg, v string) (ok bool) {
	return v == "--"+a.longName || (a.shortName != "" && v == "-"+a.shortName)
}

func printUsage(exec string) {
	fmt.Printf("Usage:\n\n%s [options]\n\nOptions:\n", exec)

	for _, a := range args {
		val := ""
		if a.updateWithValue != nil {
			val = " VALUE"
		}

		if a.shortName != "" {
			fmt.Printf("  -%s, %-30s %s\n", a.shortName, "--"+a.longName+val, a.description)
		} else {
			fmt.Printf("  %-34s %s\n", "--"+a.longName+val, a.description)
		}
	}
}

// ParseArgs parses command-line arguments (excluding the executable name)
// into an Options, applying [defaultConfigPath] when -c/--config is absent.
// Any side-effecting option (--version, --help) runs and exits the process
// before ParseArgs returns.
func ParseArgs(exec string, argv []string) (o Options, err error) {
	o.ConfigPath = defaultConfigPath

	for i := 0; i < len(argv); i++ {
		v := argv[i]

		var matched bool

		for _, a := range args {
			if !argMatches(a, v) {
				continue
			}

			matched = true

			switch {
			case a.updateWithValue != nil:
				if i+1 >= len(argv) {
					return o, fmt.Errorf("%s requires a value", v)
				}

				i++

				if o, err = a.updateWithValue(o, argv[i]); err != nil {
					return o, err
				}
			case a.updateNoValue != nil:
				if o, err = a.updateNoValue(o); err != nil {
					return o, err
				}
			case a.effect != nil:
				var eff effect

				if eff, err = a.effect(o, exec); err != nil {
					return o, err
				}

				if eff != nil {
					if err = eff(); err != nil {
						return o, err
					}
				}
			}

			break
		}

		if !matched {
			return o, fmt.Errorf("unknown option %s", v)
		}
	}

	if o.Verbose {
		log.SetLevel(log.DEBUG)
	}

	return o, nil
}
