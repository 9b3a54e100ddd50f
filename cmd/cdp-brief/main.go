// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/sapcc/go-api-declarations/bininfo"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/ironcore-dev/nxos-guestshell/internal/cdp"
	"github.com/ironcore-dev/nxos-guestshell/internal/vty"
)

var (
	version  = flag.Bool("v", false, "Include neighbor version in printout.")
	platform = flag.Bool("p", false, "Include neighbor platform in printout.")
	file     = flag.String("file", "", "Read the output of '"+cdp.Command+"' from a file (\"-\" for stdin)")
	dohost   = flag.Bool("dohost", false, "Run the command on the local switch through 'dohost' (guestshell only)")
	address  = flag.String("address", "", "Address of a remote switch to query over SSH")
	username = flag.String("username", "admin", "Username for the remote switch")
	password = flag.String("password", "", "Password for the remote switch (defaults to $NXOS_PASSWORD)")
	timeout  = flag.Duration("timeout", 30*time.Second, "Timeout for fetching the neighbor table")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Print a brief table of CDP neighbors.\n\n")
	fmt.Fprintf(os.Stderr, "Exactly one of -file, -dohost or -address selects the source.\n")
	fmt.Fprintf(os.Stderr, "Without any of them, the output is read from stdin.\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExample:\n")
	fmt.Fprintf(os.Stderr, "  %s -dohost -v\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  %s -address=192.168.1.1 -username=admin -p\n", os.Args[0])
}

func validateFlags() error {
	n := 0
	for _, set := range []bool{*file != "", *dohost, *address != ""} {
		if set {
			n++
		}
	}
	if n > 1 {
		return errors.New("-file, -dohost and -address are mutually exclusive")
	}
	if flag.NArg() != 0 {
		return fmt.Errorf("unexpected arguments: %v", flag.Args())
	}
	return nil
}

func fetch(ctx context.Context) ([]byte, error) {
	switch {
	case *dohost:
		out, err := exec.CommandContext(ctx, "dohost", cdp.Command).Output() // #nosec G204
		if err != nil {
			return nil, fmt.Errorf("failed to run dohost: %w", err)
		}
		return out, nil
	case *address != "":
		pass := *password
		if pass == "" {
			pass = os.Getenv("NXOS_PASSWORD")
		}
		ep := vty.Endpoint{Address: *address, Username: *username, Password: pass}
		s, err := vty.Dial(ctx, ep, vty.WithLogger(zap.New(zap.UseDevMode(false))))
		if err != nil {
			return nil, err
		}
		defer s.Close() //nolint:errcheck
		out, err := s.Send(ctx, cdp.Command)
		if err != nil {
			return nil, fmt.Errorf("failed to query %s: %w", *address, err)
		}
		return []byte(out), nil
	case *file != "" && *file != "-":
		return os.ReadFile(*file)
	default:
		return io.ReadAll(os.Stdin)
	}
}

func main() {
	bininfo.HandleVersionArgument()
	flag.Usage = usage
	flag.Parse()

	if err := validateFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(signals.SetupSignalHandler(), *timeout)
	defer cancel()

	data, err := fetch(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := cdp.Options{Platform: *platform, Version: *version}
	if err := cdp.Brief(os.Stdout, data, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
