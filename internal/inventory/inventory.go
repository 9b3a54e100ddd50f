// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package inventory loads and validates the list of hosts to provision.
package inventory

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
)

// ErrNoHost is returned when a host could not be found in the inventory.
var ErrNoHost = errors.New("inventory: no such host")

// Load reads and parses the inventory file at path.
func Load(path string) (*v1alpha1.Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory %s: %w", path, err)
	}
	inv, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory %s: %w", path, err)
	}
	return inv, nil
}

// Parse decodes a YAML (or JSON) inventory document and validates it.
// Unknown fields are rejected.
func Parse(data []byte) (*v1alpha1.Inventory, error) {
	inv := new(v1alpha1.Inventory)
	if err := yaml.UnmarshalStrict(data, inv); err != nil {
		return nil, fmt.Errorf("failed to decode inventory: %w", err)
	}
	if err := Validate(inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// Validate checks the inventory for missing or conflicting values.
// All problems found are returned joined together.
func Validate(inv *v1alpha1.Inventory) error {
	var errs []error
	if inv.APIVersion != "" && inv.APIVersion != v1alpha1.GroupVersion {
		errs = append(errs, fmt.Errorf("unsupported apiVersion %q, expected %q", inv.APIVersion, v1alpha1.GroupVersion))
	}
	if inv.Kind != "" && inv.Kind != v1alpha1.InventoryKind {
		errs = append(errs, fmt.Errorf("unsupported kind %q, expected %q", inv.Kind, v1alpha1.InventoryKind))
	}
	if err := validatePort(inv.Defaults.Port); err != nil {
		errs = append(errs, fmt.Errorf("defaults: %w", err))
	}
	if ptr.Deref(inv.Defaults.DelayFactor, 1) < 1 {
		errs = append(errs, errors.New("defaults: delayFactor must be positive"))
	}
	if len(inv.Hosts) == 0 {
		errs = append(errs, errors.New("no hosts defined"))
	}
	seen := make(map[string]struct{}, len(inv.Hosts))
	for i, h := range inv.Hosts {
		if h.Name == "" {
			errs = append(errs, fmt.Errorf("hosts[%d]: name is required", i))
		}
		if _, ok := seen[h.Name]; ok && h.Name != "" {
			errs = append(errs, fmt.Errorf("hosts[%d]: duplicate name %q", i, h.Name))
		}
		seen[h.Name] = struct{}{}
		if strings.TrimSpace(h.Address) == "" {
			errs = append(errs, fmt.Errorf("hosts[%d]: address is required", i))
		}
		if err := validatePort(h.Port); err != nil {
			errs = append(errs, fmt.Errorf("hosts[%d]: %w", i, err))
		}
		if ptr.Deref(h.DelayFactor, 1) < 1 {
			errs = append(errs, fmt.Errorf("hosts[%d]: delayFactor must be positive", i))
		}
	}
	return errors.Join(errs...)
}

func validatePort(p *int32) error {
	if p == nil {
		return nil
	}
	if *p < 1 || *p > 65535 {
		return fmt.Errorf("invalid port %d: must be between 1 and 65535", *p)
	}
	return nil
}

// Ready returns all hosts that are not disabled, in inventory order.
func Ready(inv *v1alpha1.Inventory) []v1alpha1.Host {
	hosts := make([]v1alpha1.Host, 0, len(inv.Hosts))
	for _, h := range inv.Hosts {
		if !h.Disabled {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

// Lookup returns the host with the given name.
func Lookup(inv *v1alpha1.Inventory, name string) (*v1alpha1.Host, error) {
	i := slices.IndexFunc(inv.Hosts, func(h v1alpha1.Host) bool { return h.Name == name })
	if i < 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoHost, name)
	}
	return &inv.Hosts[i], nil
}

// Select narrows the inventory down to the named hosts.
// If names is empty, the inventory is returned unchanged.
func Select(inv *v1alpha1.Inventory, names ...string) (*v1alpha1.Inventory, error) {
	if len(names) == 0 {
		return inv, nil
	}
	out := &v1alpha1.Inventory{TypeMeta: inv.TypeMeta, Defaults: inv.Defaults}
	for _, name := range names {
		h, err := Lookup(inv, name)
		if err != nil {
			return nil, err
		}
		out.Hosts = append(out.Hosts, *h)
	}
	return out, nil
}

// FromAddresses builds an ad-hoc inventory from a list of device addresses.
// The address doubles as the host name.
func FromAddresses(defaults v1alpha1.HostDefaults, addresses ...string) (*v1alpha1.Inventory, error) {
	inv := &v1alpha1.Inventory{
		TypeMeta: metav1.TypeMeta{APIVersion: v1alpha1.GroupVersion, Kind: v1alpha1.InventoryKind},
		Defaults: defaults,
	}
	for _, addr := range addresses {
		inv.Hosts = append(inv.Hosts, v1alpha1.Host{Name: addr, Address: addr})
	}
	if err := Validate(inv); err != nil {
		return nil, err
	}
	return inv, nil
}
