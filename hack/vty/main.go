// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	"github.com/ironcore-dev/nxos-guestshell/internal/vty"
)

var (
	address     = flag.String("address", "", "SSH address of the device (required)")
	username    = flag.String("username", "", "Username for authentication (required)")
	password    = flag.String("password", "", "Password for authentication")
	keyFile     = flag.String("key-file", "", "Private key for authentication")
	file        = flag.String("file", "", "File with one command per line (\"-\" for stdin)")
	config      = flag.Bool("config", false, "Send the commands in configuration mode")
	timing      = flag.Bool("timing", false, "Wait for the output to settle instead of the prompt")
	delayFactor = flag.Int("delay-factor", 1, "Multiplier for all read timeouts")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] [command...]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "A debug tool for sending commands through the virtual terminal of a device.\n\n")
	fmt.Fprintf(os.Stderr, "Arguments:\n")
	fmt.Fprintf(os.Stderr, "  command    Commands to send, one per argument\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, "\nExample:\n")
	fmt.Fprintf(os.Stderr, "  %s -address=192.168.1.1 -username=admin -password=secret 'show guestshell | json'\n", os.Args[0])
}

func validateFlags() error {
	if *address == "" {
		return errors.New("address flag is required")
	}
	if *username == "" {
		return errors.New("username flag is required")
	}
	if *password == "" && *keyFile == "" {
		return errors.New("one of password or key-file flag is required")
	}
	if *file == "" && len(flag.Args()) == 0 {
		return errors.New("at least one command or the file flag is required")
	}
	return nil
}

func loadCommands() ([]string, error) {
	cmds := flag.Args()
	if *file == "" {
		return cmds, nil
	}
	f := os.Stdin
	if *file != "-" {
		var err error
		if f, err = os.Open(*file); err != nil {
			return nil, fmt.Errorf("failed to open file %s: %w", *file, err)
		}
		defer f.Close() //nolint:errcheck
	}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmds = append(cmds, line)
	}
	return cmds, sc.Err()
}

func run(ctx context.Context, s vty.Client, cmds []string) error {
	if *config {
		if err := s.ConfigMode(ctx); err != nil {
			return err
		}
	}
	for _, cmd := range cmds {
		var (
			out string
			err error
		)
		if *timing {
			out, err = s.SendTiming(ctx, cmd)
		} else {
			out, err = s.Send(ctx, cmd)
		}
		if err != nil {
			return fmt.Errorf("command %q failed: %w", cmd, err)
		}
		fmt.Printf("=== %s ===\n%s\n", cmd, out)
	}
	if *config {
		return s.ExitConfigMode(ctx)
	}
	return nil
}

func main() {
	flag.Usage = usage

	for _, arg := range os.Args[1:] {
		if arg == "-h" || arg == "--help" {
			flag.Usage()
			os.Exit(0)
		}
	}

	flag.Parse()

	if err := validateFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	cmds, err := loadCommands()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading commands: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("=== Debug Tool Configuration ===\n")
	fmt.Printf("Address: %s\n", *address)
	fmt.Printf("Username: %s\n", *username)
	fmt.Printf("Password: %s\n", "[REDACTED]")
	fmt.Printf("Config Mode: %t\n", *config)
	fmt.Printf("Commands: %d\n\n", len(cmds))

	ctx := context.Background()
	ep := vty.Endpoint{Address: *address, Username: *username, Password: *password, KeyFile: *keyFile}
	s, err := vty.Dial(ctx, ep,
		vty.WithDelayFactor(*delayFactor),
		vty.WithLogger(zap.New(zap.UseDevMode(true))),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to device: %v\n", err)
		os.Exit(1)
	}

	err = run(ctx, s, cmds)
	if cerr := s.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
