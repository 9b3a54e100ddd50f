// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package guestshell

import (
	"errors"
	"fmt"
	"os"

	cp "github.com/felix-kaestner/copy"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/yaml"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
)

// ScriptsDir is the default checkout directory of the scripts repository.
const ScriptsDir = "/bootflash/scripts/network-code"

var defaultProfile = v1alpha1.Profile{
	TypeMeta:      metav1.TypeMeta{APIVersion: v1alpha1.GroupVersion, Kind: v1alpha1.ProfileKind},
	MinRootfsMB:   ptr.To(1024),
	MinMemoryMB:   ptr.To(1024),
	MinCPUPercent: ptr.To(5),
	VRF:           "management",
	ProbeAddress:  "9.9.9.9",
	ProbeHostname: "quad9.com",
	Nameserver:    "9.9.9.9",
	DNSAttempts:   3,
	Repository: &v1alpha1.Repository{
		Name: "endpoint/7/x86_64",
		RPM:  "https://packages.endpoint.com/rhel/7/os/x86_64/endpoint-repo-1.9-1.x86_64.rpm",
	},
	Packages:   []string{"git", "python3"},
	PipModules: []string{"natsort"},
	Scripts: &v1alpha1.Scripts{
		URL: "https://github.com/derek-shnosh/network-code.git",
		Dir: ScriptsDir,
	},
	Aliases: []v1alpha1.Alias{
		{Name: "cdpbr", Command: "guestshell run python " + ScriptsDir + "/python/nxos-cdp-brief.py"},
		{Name: "cdpdesc", Command: "guestshell run python " + ScriptsDir + "/python/nxos-cdp-describe.py -i"},
		{Name: "wr", Command: "copy run start"},
		{Name: "ipint", Command: "show ip int brief"},
		{Name: "intstat", Command: "show interf status"},
		{Name: "vlbr", Command: "show vlan brief | i ^[0-9]"},
	},
}

// DefaultProfile returns a copy of the built-in provisioning profile.
func DefaultProfile() *v1alpha1.Profile {
	return cp.Deep(&defaultProfile)
}

// ResolveProfile merges the given overrides onto the built-in profile.
// Later overrides take precedence; nil overrides and unset fields are skipped.
// An explicit empty repository or scripts entry removes it.
func ResolveProfile(overrides ...*v1alpha1.Profile) *v1alpha1.Profile {
	p := DefaultProfile()
	for _, o := range overrides {
		if o == nil {
			continue
		}
		o = cp.Deep(o)
		setIf(&p.MinRootfsMB, o.MinRootfsMB)
		setIf(&p.MinMemoryMB, o.MinMemoryMB)
		setIf(&p.MinCPUPercent, o.MinCPUPercent)
		setIf(&p.VRF, o.VRF)
		setIf(&p.ProbeAddress, o.ProbeAddress)
		setIf(&p.ProbeHostname, o.ProbeHostname)
		setIf(&p.Nameserver, o.Nameserver)
		setIf(&p.DNSAttempts, o.DNSAttempts)
		setIf(&p.Repository, o.Repository)
		if o.Repository != nil && *o.Repository == (v1alpha1.Repository{}) {
			p.Repository = nil
		}
		setIf(&p.Scripts, o.Scripts)
		if o.Scripts != nil && *o.Scripts == (v1alpha1.Scripts{}) {
			p.Scripts = nil
		}
		if o.Packages != nil {
			p.Packages = o.Packages
		}
		if o.PipModules != nil {
			p.PipModules = o.PipModules
		}
		if o.Aliases != nil {
			p.Aliases = o.Aliases
		}
	}
	return p
}

func setIf[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}

// LoadProfile reads a profile document from path.
func LoadProfile(path string) (*v1alpha1.Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	p := new(v1alpha1.Profile)
	if err := yaml.UnmarshalStrict(data, p); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", path, err)
	}
	if p.Kind != "" && p.Kind != v1alpha1.ProfileKind {
		return nil, fmt.Errorf("profile %s: unsupported kind %q, expected %q", path, p.Kind, v1alpha1.ProfileKind)
	}
	return p, nil
}

// ValidateProfile checks a resolved profile for values that would produce broken commands.
func ValidateProfile(p *v1alpha1.Profile) error {
	var errs []error
	if ptr.Deref(p.MinRootfsMB, 0) < 0 || ptr.Deref(p.MinMemoryMB, 0) < 0 {
		errs = append(errs, errors.New("reservations must not be negative"))
	}
	if cpu := ptr.Deref(p.MinCPUPercent, 0); cpu < 0 || cpu > 100 {
		errs = append(errs, fmt.Errorf("invalid minCPUPercent %d: must be between 0 and 100", cpu))
	}
	if p.DNSAttempts < 1 {
		errs = append(errs, errors.New("dnsAttempts must be positive"))
	}
	for _, a := range p.Aliases {
		if a.Name == "" || a.Command == "" {
			errs = append(errs, fmt.Errorf("alias %q: name and command are required", a.Name))
		}
	}
	if p.Repository != nil && (p.Repository.Name == "" || p.Repository.RPM == "") {
		errs = append(errs, errors.New("repository: name and rpm are required"))
	}
	if p.Scripts != nil && (p.Scripts.URL == "" || p.Scripts.Dir == "") {
		errs = append(errs, errors.New("scripts: url and dir are required"))
	}
	return errors.Join(errs...)
}
