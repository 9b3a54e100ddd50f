// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package runner runs a worker against every ready host of an inventory
// with bounded concurrency and collects one report per host.
package runner

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
	"github.com/ironcore-dev/nxos-guestshell/internal/conditions"
	"github.com/ironcore-dev/nxos-guestshell/internal/deviceutil"
	"github.com/ironcore-dev/nxos-guestshell/internal/inventory"
	"github.com/ironcore-dev/nxos-guestshell/internal/nxos"
	"github.com/ironcore-dev/nxos-guestshell/internal/vty"
)

// DefaultConcurrency is the number of hosts worked on at the same time.
const DefaultConcurrency = 10

// Target is a host with an open CLI session.
type Target struct {
	Host       *v1alpha1.Host
	Connection *deviceutil.Connection
	Session    vty.Client
}

// Worker is run once per host. The report has its name, address and
// connection condition filled in already. Errors should also be recorded
// as conditions on the report; the returned error is logged only.
type Worker func(ctx context.Context, t *Target, r *v1alpha1.HostReport) error

// DialFunc opens a CLI session to a host.
type DialFunc func(ctx context.Context, c *deviceutil.Connection) (vty.Client, error)

// FactsFunc collects device facts from a host.
type FactsFunc func(ctx context.Context, c *deviceutil.Connection) (*v1alpha1.Facts, error)

type options struct {
	concurrency int
	dial        DialFunc
	facts       FactsFunc
}

// Option configures [Run].
type Option func(*options)

// WithConcurrency sets the maximum number of hosts in flight.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithDialer replaces the function used to open CLI sessions.
func WithDialer(fn DialFunc) Option {
	return func(o *options) {
		o.dial = fn
	}
}

// WithFacts collects device facts from hosts that have a gNMI address
// before running the worker.
func WithFacts(fn FactsFunc) Option {
	return func(o *options) {
		o.facts = fn
	}
}

// Dial opens a CLI session using the delay factor of the connection.
func Dial(ctx context.Context, c *deviceutil.Connection) (vty.Client, error) {
	return vty.Dial(ctx, c.Endpoint(),
		vty.WithDelayFactor(c.DelayFactor),
		vty.WithLogger(logf.FromContext(ctx).WithName("vty")),
	)
}

// GNMIFacts collects device facts from the gNMI server of the connection.
func GNMIFacts(ctx context.Context, c *deviceutil.Connection) (*v1alpha1.Facts, error) {
	return nxos.CollectFrom(ctx, c.GNMIAddress, c.Username, c.Password)
}

// Run runs the worker against all ready hosts of the inventory and blocks
// until all of them are done. A failing host does not affect the others.
// The reports are returned sorted by host name.
func Run(ctx context.Context, inv *v1alpha1.Inventory, worker Worker, opts ...Option) []v1alpha1.HostReport {
	o := options{concurrency: DefaultConcurrency, dial: Dial}
	for _, opt := range opts {
		opt(&o)
	}

	hosts := inventory.Ready(inv)
	reports := make([]v1alpha1.HostReport, len(hosts))

	var g errgroup.Group
	g.SetLimit(o.concurrency)
	for i := range hosts {
		g.Go(func() error {
			reports[i] = runHost(ctx, inv, &hosts[i], worker, &o)
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(reports, func(a, b v1alpha1.HostReport) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return reports
}

func runHost(ctx context.Context, inv *v1alpha1.Inventory, h *v1alpha1.Host, worker Worker, o *options) (r v1alpha1.HostReport) {
	log := logf.FromContext(ctx).WithValues("host", h.Name)
	ctx = logf.IntoContext(ctx, log)

	r = v1alpha1.HostReport{
		Name:      h.Name,
		Address:   h.Address,
		StartTime: metav1.Now(),
	}
	defer func() {
		r.CompletionTime = metav1.Now()
		conditions.RecomputeReady(&r)
	}()
	conditions.InitializeConditions(&r, v1alpha1.ConnectedCondition)

	conn, err := deviceutil.GetHostConnection(inv, h)
	if err != nil {
		log.Error(err, "Invalid host configuration")
		conditions.Set(&r, conditions.False(v1alpha1.ConnectedCondition, v1alpha1.ErrorReason, err.Error()))
		r.Outcome = v1alpha1.OutcomeFailed
		return
	}
	r.Address = conn.Address

	if o.facts != nil && conn.GNMIAddress != "" {
		if facts, err := o.facts(ctx, conn); err != nil {
			log.Info("Failed to collect device facts", "error", err.Error())
			conditions.Set(&r, conditions.FromError(v1alpha1.FactsCollectedCondition, err))
		} else {
			r.Facts = facts
			conditions.Set(&r, conditions.True(v1alpha1.FactsCollectedCondition, v1alpha1.SucceededReason, "Device facts collected over gNMI"))
		}
	}

	log.Info("Connecting", "address", conn.Address)
	sess, err := o.dial(ctx, conn)
	if err != nil {
		log.Error(err, "Failed to connect")
		conditions.Set(&r, conditions.False(v1alpha1.ConnectedCondition, connectReason(err), err.Error()))
		r.Outcome = v1alpha1.OutcomeFailed
		return
	}
	defer func() {
		if err := sess.Close(); err != nil && !errors.Is(err, vty.ErrClosed) {
			log.Info("Failed to close session", "error", err.Error())
		}
	}()
	conditions.Set(&r, conditions.True(v1alpha1.ConnectedCondition, v1alpha1.SucceededReason, fmt.Sprintf("Connected to %s", conn.Address)))

	if err := worker(ctx, &Target{Host: h, Connection: conn, Session: sess}, &r); err != nil {
		log.Error(err, "Worker failed")
		if r.Outcome == "" {
			r.Outcome = v1alpha1.OutcomeFailed
		}
	}
	return
}

func connectReason(err error) string {
	if strings.Contains(err.Error(), "unable to authenticate") {
		return v1alpha1.UnauthenticatedReason
	}
	return v1alpha1.UnreachableDeviceReason
}
