// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package guestshell provisions the Linux container ("guestshell") of a
// Cisco NX-OS device through its CLI.
//
// The provisioning pipeline is a fixed sequence of steps, each a command
// sent to the device followed by a check of its output:
//
//	status -> resize -> reboot -> internet -> dns -> dependencies -> aliases
//
// Creating, resizing or enabling the guestshell takes a while. Unless
// waiting is enabled, the pipeline stops after these steps and has to be
// run again later.
package guestshell

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"k8s.io/utils/ptr"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
	"github.com/ironcore-dev/nxos-guestshell/internal/conditions"
	"github.com/ironcore-dev/nxos-guestshell/internal/vty"
)

var (
	// ErrBusy is returned when the guestshell is in a transitional state.
	ErrBusy = errors.New("guestshell: busy")

	// ErrNoInternet is returned when the probe address cannot be reached from the guestshell.
	ErrNoInternet = errors.New("guestshell: internet unreachable")

	// ErrDNS is returned when name resolution does not work inside the guestshell.
	ErrDNS = errors.New("guestshell: dns not working")

	// ErrDependency is returned when a dependency could not be installed.
	ErrDependency = errors.New("guestshell: failed to install dependency")
)

// Terminal is the CLI session used to talk to the device.
type Terminal interface {
	Send(ctx context.Context, cmd string, opts ...vty.SendOption) (string, error)
	SendTiming(ctx context.Context, cmd string) (string, error)
	ConfigMode(ctx context.Context) error
	ExitConfigMode(ctx context.Context) error
}

var _ Terminal = (vty.Client)(nil)

// Provisioner carries out the provisioning steps on a single device.
type Provisioner struct {
	term    Terminal
	profile *v1alpha1.Profile

	dryRun        bool
	wait          bool
	waitTimeout   time.Duration
	pollInterval  time.Duration
	retryInterval time.Duration
	updateBase    bool
}

// Option configures a [Provisioner].
type Option func(*Provisioner)

// WithProfile sets the provisioning profile. Defaults to [DefaultProfile].
func WithProfile(p *v1alpha1.Profile) Option {
	return func(pr *Provisioner) {
		pr.profile = p
	}
}

// WithDryRun logs state-changing commands instead of sending them.
// Read-only commands are still sent to the device.
func WithDryRun() Option {
	return func(pr *Provisioner) {
		pr.dryRun = true
	}
}

// WithWait makes [Provisioner.Provision] wait for the guestshell to become
// activated after creating, resizing or enabling it, instead of stopping.
func WithWait(timeout time.Duration) Option {
	return func(pr *Provisioner) {
		pr.wait = true
		pr.waitTimeout = timeout
	}
}

// WithPollInterval sets the initial interval between status polls while waiting.
func WithPollInterval(d time.Duration) Option {
	return func(pr *Provisioner) {
		pr.pollInterval = d
	}
}

// WithRetryInterval sets the interval between DNS checks.
func WithRetryInterval(d time.Duration) Option {
	return func(pr *Provisioner) {
		pr.retryInterval = d
	}
}

// WithUpdateBase updates the base packages of the guestshell after provisioning.
func WithUpdateBase() Option {
	return func(pr *Provisioner) {
		pr.updateBase = true
	}
}

// New returns a [Provisioner] driving the given terminal.
func New(term Terminal, opts ...Option) *Provisioner {
	p := &Provisioner{
		term:          term,
		waitTimeout:   10 * time.Minute,
		pollInterval:  10 * time.Second,
		retryInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.profile == nil {
		p.profile = DefaultProfile()
	}
	return p
}

// dryRunOutput is returned for commands skipped in dry-run mode.
const dryRunOutput = "(dry-run)"

// apply sends a state-changing command, unless in dry-run mode.
func (p *Provisioner) apply(ctx context.Context, cmd string, opts ...vty.SendOption) (string, error) {
	if p.dryRun {
		logf.FromContext(ctx).Info("Dry run, skipping command", "command", cmd)
		return dryRunOutput, nil
	}
	return p.term.Send(ctx, cmd, opts...)
}

// applyTiming is the [Terminal.SendTiming] counterpart of apply.
func (p *Provisioner) applyTiming(ctx context.Context, cmd string) (string, error) {
	if p.dryRun {
		logf.FromContext(ctx).Info("Dry run, skipping command", "command", cmd)
		return dryRunOutput, nil
	}
	return p.term.SendTiming(ctx, cmd)
}

// Status returns the state and reservations of the guestshell.
// If the guestshell has not been created, [ErrNotCreated] is returned.
func (p *Provisioner) Status(ctx context.Context) (*v1alpha1.GuestShellStatus, error) {
	log := logf.FromContext(ctx)
	out, err := p.term.Send(ctx, CmdShowStatus)
	if err != nil {
		return nil, err
	}
	log.V(1).Info("Received guestshell status", "response", out)
	s, err := ParseStatus(out)
	if err != nil {
		return nil, err
	}
	log.Info("Guestshell status", "state", s.State, "cpuPercent", s.CPUPercent, "memoryMB", s.MemoryMB, "rootfsMB", s.RootfsMB)
	return s, nil
}

// Enable creates or re-activates the guestshell. The command returns
// immediately while the guestshell is installed in the background.
func (p *Provisioner) Enable(ctx context.Context) error {
	logf.FromContext(ctx).Info("Enabling guestshell")
	_, err := p.applyTiming(ctx, CmdEnable)
	return err
}

// Resize increases every reservation that is below its threshold.
// The new reservations take effect after the next reboot.
func (p *Provisioner) Resize(ctx context.Context, s *v1alpha1.GuestShellStatus) error {
	log := logf.FromContext(ctx)
	resources := []struct {
		name    string
		current int
		min     int
	}{
		{"rootfs", s.RootfsMB, ptr.Deref(p.profile.MinRootfsMB, 0)},
		{"memory", s.MemoryMB, ptr.Deref(p.profile.MinMemoryMB, 0)},
		{"cpu", s.CPUPercent, ptr.Deref(p.profile.MinCPUPercent, 0)},
	}
	for _, r := range resources {
		if r.current >= r.min {
			log.Info("Reservation is sufficient", "resource", r.name, "current", r.current)
			continue
		}
		log.Info("Resizing reservation", "resource", r.name, "current", r.current, "desired", r.min)
		if _, err := p.apply(ctx, CmdResize(r.name, r.min)); err != nil {
			return fmt.Errorf("failed to resize %s: %w", r.name, err)
		}
	}
	return nil
}

// Reboot restarts an activated guestshell or enables a deactivated one.
// It returns false if the guestshell is busy or in an unknown state,
// in which case nothing is done.
func (p *Provisioner) Reboot(ctx context.Context, s *v1alpha1.GuestShellStatus) (bool, error) {
	log := logf.FromContext(ctx)
	switch {
	case IsActivated(s):
		log.Info("Guestshell is active, rebooting")
		if _, err := p.apply(ctx, CmdReboot, vty.WithExpect(ConfirmPrompt)); err != nil {
			return false, err
		}
		if _, err := p.applyTiming(ctx, "y"); err != nil {
			return false, err
		}
		return true, nil
	case IsDeactivated(s):
		log.Info("Guestshell is deactivated, enabling")
		if _, err := p.apply(ctx, CmdEnable); err != nil {
			return false, err
		}
		return true, nil
	case IsBusy(s):
		log.Info("Guestshell is busy, doing nothing", "state", s.State)
		return false, nil
	default:
		log.Info("Guestshell is in an unknown state, doing nothing", "state", s.State)
		return false, nil
	}
}

// CheckInternet pings the probe address from within the guestshell.
func (p *Provisioner) CheckInternet(ctx context.Context) error {
	log := logf.FromContext(ctx)
	out, err := p.term.Send(ctx, CmdRunInVRF(p.profile.VRF, "ping", "-c", "1", p.profile.ProbeAddress))
	if err != nil {
		return err
	}
	if strings.Contains(out, "100% packet loss") {
		log.Info("Guestshell cannot reach the internet, configure an interface in the VRF", "vrf", p.profile.VRF, "probe", p.profile.ProbeAddress)
		return fmt.Errorf("%w: %s is not reachable through vrf %s", ErrNoInternet, p.profile.ProbeAddress, p.profile.VRF)
	}
	log.Info("Guestshell can reach the internet")
	return nil
}

func (p *Provisioner) resolve(ctx context.Context) (bool, error) {
	out, err := p.term.Send(ctx, CmdRunInVRF(p.profile.VRF, "getent", "hosts", p.profile.ProbeHostname))
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

// CheckDNS resolves the probe hostname from within the guestshell. If that
// fails, the profile nameserver is written to /etc/resolv.conf and the check
// is repeated up to DNSAttempts times.
func (p *Provisioner) CheckDNS(ctx context.Context) error {
	log := logf.FromContext(ctx)
	ok, err := p.resolve(ctx)
	if err != nil {
		return err
	}
	if ok {
		log.Info("DNS is working")
		return nil
	}

	log.Info("DNS is not working, adding nameserver to /etc/resolv.conf", "nameserver", p.profile.Nameserver)
	if _, err := p.apply(ctx, CmdWriteNameserver(p.profile.Nameserver)); err != nil {
		return err
	}
	if p.dryRun {
		return nil
	}

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		ok, err := p.resolve(ctx)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !ok {
			return struct{}{}, fmt.Errorf("%w: cannot resolve %s", ErrDNS, p.profile.ProbeHostname)
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(p.retryInterval)),
		backoff.WithMaxTries(uint(max(p.profile.DNSAttempts, 1))),
	)
	if err != nil {
		log.Info("Cannot resolve DNS issues", "error", err.Error())
		return err
	}
	log.Info("DNS is working")
	return nil
}

// install sends an install command and treats an empty response as failure.
func (p *Provisioner) install(ctx context.Context, what, cmd string) error {
	out, err := p.apply(ctx, cmd)
	if err != nil {
		return err
	}
	if strings.TrimSpace(out) == "" {
		return fmt.Errorf("%w: %s", ErrDependency, what)
	}
	logf.FromContext(ctx).Info("Installed dependency", "dependency", what)
	return nil
}

// InstallDependencies ensures the yum repository, packages, python modules and
// the scripts repository are present in the guestshell.
func (p *Provisioner) InstallDependencies(ctx context.Context) error {
	log := logf.FromContext(ctx)
	vrf := p.profile.VRF

	if repo := p.profile.Repository; repo != nil {
		out, err := p.term.Send(ctx, CmdRun("yum", "repolist"))
		if err != nil {
			return err
		}
		if strings.Contains(out, repo.Name) {
			log.Info("Repository already exists", "repository", repo.Name)
		} else {
			log.Info("Repository does not exist, adding", "repository", repo.Name)
			if err := p.install(ctx, repo.Name, CmdRunInVRF(vrf, "yum", "-y", "install", repo.RPM)); err != nil {
				return err
			}
		}
	}

	for _, pkg := range p.profile.Packages {
		out, err := p.term.Send(ctx, CmdRun("yum", "list", "installed", "|", "grep", pkg))
		if err != nil {
			return err
		}
		if strings.Contains(out, pkg+".x86_64") {
			log.Info("Package is already installed", "package", pkg)
			continue
		}
		log.Info("Package not yet installed, installing", "package", pkg)
		if err := p.install(ctx, pkg, CmdRunInVRF(vrf, "yum", "-y", "install", pkg)); err != nil {
			return err
		}
	}

	if err := p.install(ctx, "pip", CmdRunInVRF(vrf, "pip3", "install", "--upgrade", "pip")); err != nil {
		return err
	}
	if len(p.profile.PipModules) > 0 {
		out, err := p.term.Send(ctx, CmdRun("pip", "freeze"))
		if err != nil {
			return err
		}
		for _, mod := range p.profile.PipModules {
			if strings.Contains(out, mod) {
				log.Info("Python module is already installed", "module", mod)
				continue
			}
			log.Info("Python module not yet installed, installing", "module", mod)
			if err := p.install(ctx, mod, CmdRunInVRF(vrf, "pip3", "install", mod)); err != nil {
				return err
			}
		}
	}

	if s := p.profile.Scripts; s != nil {
		out, err := p.term.Send(ctx, CmdRun("ls", s.Dir))
		if err != nil {
			return err
		}
		if strings.Contains(out, "No such file or directory") {
			log.Info("Scripts repository not cloned, cloning", "url", s.URL, "dir", s.Dir)
			if err := p.install(ctx, s.URL, CmdRunInVRF(vrf, "git", "clone", s.URL, strings.TrimSuffix(s.Dir, "/")+"/")); err != nil {
				return err
			}
		} else {
			log.Info("Scripts repository already cloned", "dir", s.Dir)
		}
	}
	return nil
}

// ConfigureAliases creates the NX-OS CLI aliases of the profile.
func (p *Provisioner) ConfigureAliases(ctx context.Context) error {
	log := logf.FromContext(ctx)
	if len(p.profile.Aliases) == 0 {
		return nil
	}
	if p.dryRun {
		for _, a := range p.profile.Aliases {
			log.Info("Dry run, skipping command", "command", CmdAlias(a.Name, a.Command))
		}
		return nil
	}
	if err := p.term.ConfigMode(ctx); err != nil {
		return err
	}
	for _, a := range p.profile.Aliases {
		out, err := p.term.Send(ctx, CmdAlias(a.Name, a.Command))
		if err != nil {
			return err
		}
		if strings.HasPrefix(strings.TrimSpace(out), "%") {
			err := fmt.Errorf("failed to configure alias %s: %s", a.Name, strings.TrimSpace(out))
			return errors.Join(err, p.term.ExitConfigMode(ctx))
		}
		log.Info("Configured alias", "alias", a.Name)
	}
	return p.term.ExitConfigMode(ctx)
}

// UpdateBase updates the base packages of the guestshell.
func (p *Provisioner) UpdateBase(ctx context.Context) error {
	logf.FromContext(ctx).Info("Updating base packages")
	_, err := p.apply(ctx, CmdRunInVRF(p.profile.VRF, "yum", "-y", "update"))
	return err
}

// WaitActivated polls the guestshell status with exponential backoff until
// it is activated, or the wait timeout expires. The status prev was observed
// before the last change of the guestshell; an activated status is only
// accepted once it differs from prev or a transitional state was seen. A nil
// prev accepts any activated status.
func (p *Provisioner) WaitActivated(ctx context.Context, prev *v1alpha1.GuestShellStatus) (*v1alpha1.GuestShellStatus, error) {
	return p.waitActivated(ctx, prev, p.waitTimeout)
}

func (p *Provisioner) waitActivated(ctx context.Context, prev *v1alpha1.GuestShellStatus, timeout time.Duration) (*v1alpha1.GuestShellStatus, error) {
	log := logf.FromContext(ctx)
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: wait timeout expired", ErrBusy)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.pollInterval
	b.MaxInterval = 6 * p.pollInterval
	changed := prev == nil || !IsActivated(prev)
	return backoff.Retry(ctx, func() (*v1alpha1.GuestShellStatus, error) {
		s, err := p.Status(ctx)
		switch {
		case errors.Is(err, ErrNotCreated):
			return nil, err
		case err != nil:
			return nil, backoff.Permanent(err)
		case !IsActivated(s):
			changed = true
			return nil, fmt.Errorf("%w: state is %s", ErrBusy, s.State)
		case !changed && *s == *prev:
			return nil, fmt.Errorf("%w: reboot has not started yet", ErrBusy)
		}
		return s, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(timeout),
		backoff.WithNotify(func(err error, d time.Duration) {
			log.Info("Waiting for guestshell to become activated", "reason", err.Error(), "retryAfter", d)
		}),
	)
}

// Inspect records the status of the guestshell on the report without
// changing anything. The outcome is set to ready only if the guestshell is
// activated with sufficient reservations.
func (p *Provisioner) Inspect(ctx context.Context, r *v1alpha1.HostReport) error {
	conditions.InitializeConditions(r, v1alpha1.SizedCondition)
	defer conditions.RecomputeReady(r)

	s, err := p.Status(ctx)
	switch {
	case errors.Is(err, ErrNotCreated):
		conditions.Set(r, conditions.False(v1alpha1.SizedCondition, v1alpha1.NotCreatedReason, "Guestshell has not been created"))
		return nil
	case err != nil:
		conditions.Set(r, conditions.FromError(v1alpha1.SizedCondition, err))
		return err
	}
	r.GuestShell = s
	switch {
	case NeedsResize(s, p.profile):
		conditions.Set(r, conditions.False(v1alpha1.SizedCondition, v1alpha1.ResizedReason, "Reservations are below the thresholds"))
	case IsBusy(s):
		conditions.Set(r, conditions.False(v1alpha1.SizedCondition, v1alpha1.BusyReason, fmt.Sprintf("Guestshell is %s", s.State)))
		r.Outcome = v1alpha1.OutcomeBusy
	case !IsActivated(s):
		conditions.Set(r, conditions.False(v1alpha1.SizedCondition, v1alpha1.NotReadyReason, fmt.Sprintf("Guestshell is %s", s.State)))
	default:
		conditions.Set(r, conditions.True(v1alpha1.SizedCondition, v1alpha1.SucceededReason, "Guestshell is activated with sufficient reservations"))
		r.Outcome = v1alpha1.OutcomeReady
	}
	return nil
}

// Provision runs the provisioning pipeline and records the result of every
// step as a condition on the report. A nil error with an outcome other than
// [v1alpha1.OutcomeReady] means the pipeline has to be run again later.
func (p *Provisioner) Provision(ctx context.Context, r *v1alpha1.HostReport) error {
	log := logf.FromContext(ctx)
	conditions.InitializeConditions(r,
		v1alpha1.SizedCondition,
		v1alpha1.ReachableCondition,
		v1alpha1.DNSResolvedCondition,
		v1alpha1.DependenciesInstalledCondition,
		v1alpha1.AliasesConfiguredCondition,
	)
	defer conditions.RecomputeReady(r)

	if err := p.ensureSized(ctx, r); err != nil {
		r.Outcome = v1alpha1.OutcomeFailed
		return err
	}
	if r.Outcome != "" {
		log.Info("Guestshell is not ready yet, run again after some time", "outcome", r.Outcome)
		return nil
	}

	log.Info("Checking internet reachability")
	if err := p.CheckInternet(ctx); err != nil {
		reason := v1alpha1.ErrorReason
		if errors.Is(err, ErrNoInternet) {
			reason = v1alpha1.UnreachableReason
		}
		conditions.Set(r, conditions.False(v1alpha1.ReachableCondition, reason, err.Error()))
		r.Outcome = v1alpha1.OutcomeFailed
		return err
	}
	conditions.Set(r, conditions.True(v1alpha1.ReachableCondition, v1alpha1.SucceededReason, p.profile.ProbeAddress+" is reachable"))

	log.Info("Checking DNS")
	if err := p.CheckDNS(ctx); err != nil {
		reason := v1alpha1.ErrorReason
		if errors.Is(err, ErrDNS) {
			reason = v1alpha1.UnresolvedReason
		}
		conditions.Set(r, conditions.False(v1alpha1.DNSResolvedCondition, reason, err.Error()))
		r.Outcome = v1alpha1.OutcomeFailed
		return err
	}
	conditions.Set(r, conditions.True(v1alpha1.DNSResolvedCondition, p.succeeded(), p.profile.ProbeHostname+" resolves"))

	log.Info("Checking required dependencies")
	if err := p.InstallDependencies(ctx); err != nil {
		log.Info("Could not install one or more required dependencies")
		conditions.Set(r, conditions.FromError(v1alpha1.DependenciesInstalledCondition, err))
		r.Outcome = v1alpha1.OutcomeFailed
		return err
	}
	conditions.Set(r, conditions.True(v1alpha1.DependenciesInstalledCondition, p.succeeded(), "All dependencies are installed"))

	log.Info("Configuring NX-OS CLI aliases")
	if err := p.ConfigureAliases(ctx); err != nil {
		conditions.Set(r, conditions.FromError(v1alpha1.AliasesConfiguredCondition, err))
		r.Outcome = v1alpha1.OutcomeFailed
		return err
	}
	conditions.Set(r, conditions.True(v1alpha1.AliasesConfiguredCondition, p.succeeded(), fmt.Sprintf("%d aliases configured", len(p.profile.Aliases))))

	if p.updateBase {
		if err := p.UpdateBase(ctx); err != nil {
			r.Outcome = v1alpha1.OutcomeFailed
			return err
		}
	} else {
		log.Info("Guestshell prepped, update the base packages with", "command", CmdRunInVRF(p.profile.VRF, "yum", "-y", "update"))
	}
	r.Outcome = v1alpha1.OutcomeReady
	return nil
}

// ensureSized makes sure the guestshell exists, has sufficient reservations
// and is activated. If any of these had to be changed and waiting is disabled,
// r.Outcome is set to the pending outcome. With waiting enabled, the checks are
// repeated on the new status until the guestshell is sized or the wait
// timeout expires.
func (p *Provisioner) ensureSized(ctx context.Context, r *v1alpha1.HostReport) error {
	log := logf.FromContext(ctx)
	deadline := time.Now().Add(p.waitTimeout)

	var (
		next    *v1alpha1.GuestShellStatus
		resized bool
	)
	for {
		s := next
		if s == nil {
			log.Info("Checking status of guestshell")
			var err error
			s, err = p.Status(ctx)
			if err != nil && !errors.Is(err, ErrNotCreated) {
				conditions.Set(r, conditions.FromError(v1alpha1.SizedCondition, err))
				return err
			}
		}
		if s != nil {
			r.GuestShell = s
		}

		switch {
		case s == nil:
			log.Info("Guestshell not enabled yet, enabling")
			if err := p.Enable(ctx); err != nil {
				conditions.Set(r, conditions.FromError(v1alpha1.SizedCondition, err))
				return err
			}
			conditions.Set(r, conditions.False(v1alpha1.SizedCondition, v1alpha1.NotCreatedReason, "Guestshell is being created"))
			r.Outcome = v1alpha1.OutcomeEnabling
		case NeedsResize(s, p.profile):
			if resized {
				conditions.Set(r, conditions.False(v1alpha1.SizedCondition, v1alpha1.ResizedReason, "Reservations are still below the thresholds after reboot"))
				return errors.New("guestshell: reservations still insufficient after reboot")
			}
			log.Info("Guestshell needs to be resized")
			if err := p.Resize(ctx, s); err != nil {
				conditions.Set(r, conditions.FromError(v1alpha1.SizedCondition, err))
				return err
			}
			ok, err := p.Reboot(ctx, s)
			if err != nil {
				conditions.Set(r, conditions.FromError(v1alpha1.SizedCondition, err))
				return err
			}
			resized = ok
			conditions.Set(r, conditions.False(v1alpha1.SizedCondition, v1alpha1.ResizedReason, "Guestshell has been resized"))
			r.Outcome = v1alpha1.OutcomeResized
		case !IsActivated(s):
			ok, err := p.Reboot(ctx, s)
			if err != nil {
				conditions.Set(r, conditions.FromError(v1alpha1.SizedCondition, err))
				return err
			}
			if ok {
				conditions.Set(r, conditions.False(v1alpha1.SizedCondition, v1alpha1.ActivatingReason, "Guestshell is being enabled"))
				r.Outcome = v1alpha1.OutcomeActivating
			} else {
				conditions.Set(r, conditions.False(v1alpha1.SizedCondition, v1alpha1.BusyReason, fmt.Sprintf("Guestshell is %s", s.State)))
				r.Outcome = v1alpha1.OutcomeBusy
			}
		default:
			conditions.Set(r, conditions.True(v1alpha1.SizedCondition, v1alpha1.SucceededReason, "Guestshell is activated with sufficient reservations"))
			r.Outcome = ""
			return nil
		}

		if !p.wait || p.dryRun {
			return nil
		}
		var err error
		next, err = p.waitActivated(ctx, s, time.Until(deadline))
		if err != nil {
			return fmt.Errorf("guestshell did not become activated: %w", err)
		}
	}
}

func (p *Provisioner) succeeded() string {
	if p.dryRun {
		return v1alpha1.DryRunReason
	}
	return v1alpha1.SucceededReason
}

// Bootstrap runs the complete configuration sequence without checking the
// current state first. It assumes an activated guestshell with sufficient
// reservations and internet access.
func (p *Provisioner) Bootstrap(ctx context.Context) error {
	log := logf.FromContext(ctx)
	vrf := p.profile.VRF

	steps := []struct {
		msg string
		cmd string
	}{
		{"Configuring DNS", CmdWriteNameserver(p.profile.Nameserver)},
		{"Updating base system packages", CmdRunInVRF(vrf, "yum", "-y", "update")},
	}
	if repo := p.profile.Repository; repo != nil {
		steps = append(steps, struct{ msg, cmd string }{"Installing repository", CmdRunInVRF(vrf, "yum", "-y", "install", repo.RPM)})
	}
	if len(p.profile.Packages) > 0 {
		steps = append(steps, struct{ msg, cmd string }{"Installing packages", CmdRunInVRF(vrf, append([]string{"yum", "-y", "install"}, p.profile.Packages...)...)})
	}
	steps = append(steps, struct{ msg, cmd string }{"Upgrading pip3", CmdRunInVRF(vrf, "pip3", "install", "--upgrade", "pip")})
	if len(p.profile.PipModules) > 0 {
		steps = append(steps, struct{ msg, cmd string }{"Installing python modules", CmdRunInVRF(vrf, append([]string{"pip3", "install"}, p.profile.PipModules...)...)})
	}
	if s := p.profile.Scripts; s != nil {
		steps = append(steps, struct{ msg, cmd string }{"Cloning scripts repository", CmdRunInVRF(vrf, "git", "clone", s.URL, strings.TrimSuffix(s.Dir, "/")+"/")})
	}

	for _, step := range steps {
		log.Info(step.msg)
		if _, err := p.apply(ctx, step.cmd); err != nil {
			return fmt.Errorf("%s: %w", strings.ToLower(step.msg), err)
		}
	}
	log.Info("Creating CLI aliases")
	return p.ConfigureAliases(ctx)
}
