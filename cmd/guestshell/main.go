// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Command guestshell provisions the guestshell of Cisco NX-OS devices.
package main

import (
	"context"
	"errors"
	goflag "flag"
	"fmt"
	"os"
	"slices"
	"time"

	// Set runtime concurrency to match CPU limit imposed by the container runtime
	_ "go.uber.org/automaxprocs"

	"github.com/sapcc/go-api-declarations/bininfo"
	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"
	"k8s.io/utils/ptr"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	"sigs.k8s.io/controller-runtime/pkg/manager/signals"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
	"github.com/ironcore-dev/nxos-guestshell/internal/guestshell"
	"github.com/ironcore-dev/nxos-guestshell/internal/inventory"
	"github.com/ironcore-dev/nxos-guestshell/internal/report"
	"github.com/ironcore-dev/nxos-guestshell/internal/runner"
)

// globalFlags are shared by all sub-commands.
type globalFlags struct {
	inventory   string
	hosts       []string
	limit       []string
	username    string
	passwordEnv string
	keyFile     string
	delayFactor int32
	concurrency int
	profile     string
	skipFacts   bool
	output      string
}

// exitError carries the exit code of a command that completed but
// reported failed hosts.
type exitError int

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func main() {
	bininfo.HandleVersionArgument()

	var code exitError
	if err := newRootCommand().Execute(); errors.As(err, &code) {
		os.Exit(int(code))
	} else if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}

func newRootCommand() *cobra.Command {
	g := &globalFlags{}
	opts := zap.Options{
		Development: false,
		TimeEncoder: zapcore.ISO8601TimeEncoder,
	}

	root := &cobra.Command{
		Use:   "guestshell",
		Short: "Provision the guestshell of Cisco NX-OS devices",
		Long: `guestshell prepares the Linux container of Cisco NX-OS devices for running
automation scripts: it makes sure the container exists with sufficient
resources, can reach the internet and resolve names, has the required
packages installed and that convenient CLI aliases are configured.

Creating or resizing the guestshell takes a few minutes. Run the command
again afterwards, or pass --wait.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logger := zap.New(zap.UseFlagOptions(&opts))
			logf.SetLogger(logger)
			cmd.SetContext(logf.IntoContext(cmd.Context(), logger))
		},
	}

	fs := goflag.NewFlagSet("zap", goflag.ExitOnError)
	opts.BindFlags(fs)
	root.PersistentFlags().AddGoFlagSet(fs)

	pf := root.PersistentFlags()
	pf.StringVarP(&g.inventory, "inventory", "i", "", "Path to the inventory file.")
	pf.StringSliceVar(&g.hosts, "host", nil, "Address of a device to work on, instead of an inventory. Can be repeated.")
	pf.StringSliceVarP(&g.limit, "limit", "l", nil, "Only work on the named inventory hosts.")
	pf.StringVarP(&g.username, "username", "u", "admin", "Username for ad-hoc hosts.")
	pf.StringVar(&g.passwordEnv, "password-env", "NXOS_PASSWORD", "Environment variable holding the password for ad-hoc hosts.")
	pf.StringVar(&g.keyFile, "key-file", "", "Private key file for ad-hoc hosts.")
	pf.Int32Var(&g.delayFactor, "delay-factor", 0, "Multiplier for all CLI timeouts of ad-hoc hosts (default 20).")
	pf.IntVar(&g.concurrency, "concurrency", runner.DefaultConcurrency, "Maximum number of hosts worked on at the same time.")
	pf.StringVar(&g.profile, "profile", "", "Path to a provisioning profile overriding the built-in defaults.")
	pf.BoolVar(&g.skipFacts, "skip-facts", false, "Do not collect device facts over gNMI from hosts with a gnmiAddress.")
	pf.StringVarP(&g.output, "output", "o", string(report.FormatTable), "Output format of the report: table, yaml or json.")

	root.AddCommand(
		newProvisionCommand(g),
		newBootstrapCommand(g),
		newStatusCommand(g),
		newCDPCommand(g),
	)
	return root
}

// signalContext returns a context canceled on SIGINT or SIGTERM, carrying the logger of cmd.
func signalContext(cmd *cobra.Command) context.Context {
	return logf.IntoContext(signals.SetupSignalHandler(), logf.FromContext(cmd.Context()))
}

// loadInventory returns the inventory selected by the global flags.
func (g *globalFlags) loadInventory() (*v1alpha1.Inventory, error) {
	switch {
	case g.inventory != "" && len(g.hosts) > 0:
		return nil, errors.New("--inventory and --host are mutually exclusive")
	case g.inventory != "":
		inv, err := inventory.Load(g.inventory)
		if err != nil {
			return nil, err
		}
		return inventory.Select(inv, g.limit...)
	case len(g.hosts) > 0:
		defaults := v1alpha1.HostDefaults{
			Username:    g.username,
			PasswordEnv: g.passwordEnv,
			KeyFile:     g.keyFile,
		}
		if g.delayFactor > 0 {
			defaults.DelayFactor = ptr.To(g.delayFactor)
		}
		return inventory.FromAddresses(defaults, g.hosts...)
	default:
		return nil, errors.New("either --inventory or --host is required")
	}
}

// loadProfile returns the profile file given on the command line, if any.
func (g *globalFlags) loadProfile() (*v1alpha1.Profile, error) {
	if g.profile == "" {
		return nil, nil
	}
	return guestshell.LoadProfile(g.profile)
}

// hostProfile merges the built-in profile, the profile file, the inventory
// defaults and the host overrides, in increasing order of precedence.
func hostProfile(file *v1alpha1.Profile, inv *v1alpha1.Inventory, h *v1alpha1.Host) (*v1alpha1.Profile, error) {
	p := guestshell.ResolveProfile(file, inv.Defaults.Profile, h.Profile)
	if err := guestshell.ValidateProfile(p); err != nil {
		return nil, fmt.Errorf("invalid profile for host %s: %w", h.Name, err)
	}
	return p, nil
}

func (g *globalFlags) runnerOptions() []runner.Option {
	opts := []runner.Option{runner.WithConcurrency(g.concurrency)}
	if !g.skipFacts {
		opts = append(opts, runner.WithFacts(runner.GNMIFacts))
	}
	return opts
}

// writeReport prints the reports and returns an [exitError] if any host failed.
func (g *globalFlags) writeReport(ctx context.Context, reports []v1alpha1.HostReport) error {
	format, err := report.ParseFormat(g.output)
	if err != nil {
		return err
	}
	if err := report.Write(os.Stdout, reports, format); err != nil {
		return err
	}
	if report.NeedsRerun(reports) {
		logf.FromContext(ctx).Info("Some guestshells are being created or restarted, run again after some time")
	}
	if code := report.ExitCode(reports); code != 0 {
		return exitError(code)
	}
	return nil
}

func newProvisionCommand(g *globalFlags) *cobra.Command {
	var (
		dryRun      bool
		wait        bool
		waitTimeout time.Duration
		updateBase  bool
	)
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Check and provision the guestshell of all hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := signalContext(cmd)
			inv, err := g.loadInventory()
			if err != nil {
				return err
			}
			file, err := g.loadProfile()
			if err != nil {
				return err
			}

			var opts []guestshell.Option
			if dryRun {
				opts = append(opts, guestshell.WithDryRun())
			}
			if wait {
				opts = append(opts, guestshell.WithWait(waitTimeout))
			}
			if updateBase {
				opts = append(opts, guestshell.WithUpdateBase())
			}
			opts = slices.Clip(opts)

			reports := runner.Run(ctx, inv, func(ctx context.Context, t *runner.Target, r *v1alpha1.HostReport) error {
				p, err := hostProfile(file, inv, t.Host)
				if err != nil {
					return err
				}
				return guestshell.New(t.Session, append(opts, guestshell.WithProfile(p))...).Provision(ctx, r)
			}, g.runnerOptions()...)
			return g.writeReport(ctx, reports)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log state-changing commands instead of sending them.")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for a created, resized or enabled guestshell to become activated and continue.")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 10*time.Minute, "Maximum time to wait for the guestshell to become activated.")
	cmd.Flags().BoolVar(&updateBase, "update-base", false, "Update the base packages of the guestshell after provisioning.")
	return cmd
}

func newBootstrapCommand(g *globalFlags) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Run the complete configuration sequence without checking the current state",
		Long: `bootstrap configures DNS, updates the base system, installs the repository,
packages, python modules and the scripts repository, and creates the CLI
aliases. It expects an activated guestshell with sufficient resources and
internet access; use "provision" to get there.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := signalContext(cmd)
			inv, err := g.loadInventory()
			if err != nil {
				return err
			}
			file, err := g.loadProfile()
			if err != nil {
				return err
			}
			reports := runner.Run(ctx, inv, func(ctx context.Context, t *runner.Target, r *v1alpha1.HostReport) error {
				p, err := hostProfile(file, inv, t.Host)
				if err != nil {
					return err
				}
				opts := []guestshell.Option{guestshell.WithProfile(p)}
				if dryRun {
					opts = append(opts, guestshell.WithDryRun())
				}
				if err := guestshell.New(t.Session, opts...).Bootstrap(ctx); err != nil {
					return err
				}
				r.Outcome = v1alpha1.OutcomeReady
				return nil
			}, g.runnerOptions()...)
			return g.writeReport(ctx, reports)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the commands instead of sending them.")
	return cmd
}

func newStatusCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state and resource reservations of the guestshell of all hosts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := signalContext(cmd)
			inv, err := g.loadInventory()
			if err != nil {
				return err
			}
			file, err := g.loadProfile()
			if err != nil {
				return err
			}
			reports := runner.Run(ctx, inv, func(ctx context.Context, t *runner.Target, r *v1alpha1.HostReport) error {
				p, err := hostProfile(file, inv, t.Host)
				if err != nil {
					return err
				}
				return guestshell.New(t.Session, guestshell.WithProfile(p)).Inspect(ctx, r)
			}, g.runnerOptions()...)
			return g.writeReport(ctx, reports)
		},
	}
}
