// Command ndppd is an IPv6 Neighbor Discovery proxy daemon.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/AdguardTeam/golibs/log"

	"github.com/ndproxy6/ndppd/internal/app"
	"github.com/ndproxy6/ndppd/internal/ndconfig"
	"github.com/ndproxy6/ndppd/internal/version"
)

func main() {
	exec := filepath.Base(os.Args[0])

	opts, err := app.ParseArgs(exec, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", exec, err)
		os.Exit(64)
	}

	log.Info("%s, using configuration file %q", version.Full(), opts.ConfigPath)

	cfg, err := ndconfig.Load(opts.ConfigPath)
	if err != nil {
		log.Error("%s", err)
		os.Exit(1)
	}

	if opts.Daemon {
		var isChild bool
		if isChild, err = app.Daemonize(); err != nil {
			log.Error("daemonizing: %s", err)
			os.Exit(1)
		}

		if !isChild {
			// The parent has started the detached child before ever opening
			// an interface or touching kernel flags; its job is done.
			os.Exit(0)
		}
	}

	// app.Build opens real sockets and flips ALLMULTI/PROMISC on every parent
	// interface, so it must run once, in whichever process ends up actually
	// serving: the daemon child when -d is given, this process otherwise.
	a, err := app.Build(cfg)
	if err != nil {
		log.Error("building proxies: %s", err)
		os.Exit(1)
	}

	if opts.PIDFile != "" {
		if err = app.WritePIDFile(opts.PIDFile); err != nil {
			log.Error("%s", err)
			os.Exit(1)
		}
	}

	if err = app.RunUntilSignal(a); err != nil {
		log.Error("%s", err)
		a.Close()
		os.Exit(1)
	}

	a.Close()
}
