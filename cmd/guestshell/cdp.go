// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
	"github.com/ironcore-dev/nxos-guestshell/internal/cdp"
	"github.com/ironcore-dev/nxos-guestshell/internal/report"
	"github.com/ironcore-dev/nxos-guestshell/internal/runner"
)

func newCDPCommand(g *globalFlags) *cobra.Command {
	var opts cdp.Options
	cmd := &cobra.Command{
		Use:   "cdp",
		Short: "Print a brief table of the CDP neighbors of all hosts",
		Long: `cdp prints one line per CDP neighbor of every host. Using --platform and
--version together requires a wide terminal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := signalContext(cmd)
			inv, err := g.loadInventory()
			if err != nil {
				return err
			}

			var (
				mu  sync.Mutex
				out = make(map[string]*bytes.Buffer)
			)
			reports := runner.Run(ctx, inv, func(ctx context.Context, t *runner.Target, r *v1alpha1.HostReport) error {
				data, err := t.Session.Send(ctx, cdp.Command)
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err := cdp.Brief(&buf, []byte(data), opts); err != nil {
					return err
				}
				mu.Lock()
				out[t.Host.Name] = &buf
				mu.Unlock()
				r.Outcome = v1alpha1.OutcomeReady
				return nil
			}, g.runnerOptions()...)

			for _, r := range reports {
				buf, ok := out[r.Name]
				if !ok {
					continue
				}
				fmt.Printf("==> %s <==\n", r.Name)
				if _, err := buf.WriteTo(os.Stdout); err != nil {
					return err
				}
				fmt.Println()
			}
			if code := report.ExitCode(reports); code != 0 {
				if err := report.Write(os.Stderr, reports, report.FormatTable); err != nil {
					return err
				}
				return exitError(code)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.Version, "version", "v", false, "Include neighbor version in printout.")
	cmd.Flags().BoolVarP(&opts.Platform, "platform", "p", false, "Include neighbor platform in printout.")
	return cmd
}
