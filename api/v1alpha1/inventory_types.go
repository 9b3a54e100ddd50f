// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Inventory is the list of NX-OS devices to provision.
type Inventory struct {
	metav1.TypeMeta `json:",inline"`

	// Defaults are applied to every host that does not set the value itself.
	// +optional
	Defaults HostDefaults `json:"defaults,omitzero"`

	// Hosts to provision.
	// +required
	Hosts []Host `json:"hosts"`
}

// HostDefaults holds connection settings shared by all hosts.
type HostDefaults struct {
	// Username used to log in to the device.
	// +optional
	Username string `json:"username,omitempty"`

	// Password used to log in to the device.
	// Prefer PasswordEnv to keep secrets out of the inventory file.
	// +optional
	Password string `json:"password,omitempty"` // #nosec G117

	// PasswordEnv is the name of an environment variable holding the password.
	// +optional
	PasswordEnv string `json:"passwordEnv,omitempty"`

	// KeyFile is the path to a private key used for public key authentication.
	// +optional
	KeyFile string `json:"keyFile,omitempty"`

	// Port of the SSH server.
	// +optional
	Port *int32 `json:"port,omitempty"`

	// DelayFactor multiplies all CLI read timeouts. Package installs through
	// the guestshell are slow, hence the default is high.
	// +optional
	DelayFactor *int32 `json:"delayFactor,omitempty"`

	// Profile overrides the built-in provisioning profile for all hosts.
	// +optional
	Profile *Profile `json:"profile,omitempty"`
}

// Host is a single NX-OS device.
type Host struct {
	// Name identifies the host in logs and reports.
	// +required
	Name string `json:"name"`

	// Address is the hostname or IP address of the device, optionally with a port.
	// +required
	Address string `json:"address"`

	// GNMIAddress is the "host:port" of the gNMI server of the device.
	// If set, device facts are collected before provisioning.
	// +optional
	GNMIAddress string `json:"gnmiAddress,omitempty"`

	// Disabled hosts are skipped.
	// +optional
	Disabled bool `json:"disabled,omitempty"`

	// +optional
	Username string `json:"username,omitempty"`

	// +optional
	Password string `json:"password,omitempty"` // #nosec G117

	// +optional
	PasswordEnv string `json:"passwordEnv,omitempty"`

	// +optional
	KeyFile string `json:"keyFile,omitempty"`

	// +optional
	Port *int32 `json:"port,omitempty"`

	// +optional
	DelayFactor *int32 `json:"delayFactor,omitempty"`

	// Profile overrides individual fields of the provisioning profile for this host.
	// +optional
	Profile *Profile `json:"profile,omitempty"`
}

// Profile holds the policy applied to the guestshell of a host.
// Zero values are filled in from the defaults.
type Profile struct {
	metav1.TypeMeta `json:",inline"`

	// MinRootfsMB is the minimum disk reservation of the guestshell in megabytes.
	// +optional
	MinRootfsMB *int `json:"minRootfsMB,omitempty"`

	// MinMemoryMB is the minimum memory reservation of the guestshell in megabytes.
	// +optional
	MinMemoryMB *int `json:"minMemoryMB,omitempty"`

	// MinCPUPercent is the minimum CPU reservation of the guestshell in percent.
	// +optional
	MinCPUPercent *int `json:"minCPUPercent,omitempty"`

	// VRF used by the guestshell to reach the internet.
	// +optional
	VRF string `json:"vrf,omitempty"`

	// ProbeAddress is pinged to verify internet reachability.
	// +optional
	ProbeAddress string `json:"probeAddress,omitempty"`

	// ProbeHostname is resolved to verify that DNS works.
	// +optional
	ProbeHostname string `json:"probeHostname,omitempty"`

	// Nameserver is written to /etc/resolv.conf if DNS does not work.
	// +optional
	Nameserver string `json:"nameserver,omitempty"`

	// DNSAttempts is the number of times DNS is checked after writing the nameserver.
	// +optional
	DNSAttempts int `json:"dnsAttempts,omitempty"`

	// Repository is the yum repository that provides recent packages.
	// An empty repository in an override removes it.
	// +optional
	Repository *Repository `json:"repository,omitempty"`

	// Packages are installed through yum.
	// +optional
	Packages []string `json:"packages,omitempty"`

	// PipModules are installed through pip3.
	// +optional
	PipModules []string `json:"pipModules,omitempty"`

	// Scripts is the git repository cloned into the guestshell.
	// An empty scripts entry in an override removes it.
	// +optional
	Scripts *Scripts `json:"scripts,omitempty"`

	// Aliases are configured as NX-OS CLI aliases.
	// +optional
	Aliases []Alias `json:"aliases,omitempty"`
}

// Repository is a yum repository installed from a release RPM.
type Repository struct {
	// Name as listed by "yum repolist", e.g. "endpoint/7/x86_64".
	// +required
	Name string `json:"name"`

	// RPM is the URL of the release package that installs the repository.
	// +required
	RPM string `json:"rpm"`
}

// Scripts is a git repository checked out on the bootflash.
type Scripts struct {
	// URL of the git repository.
	// +required
	URL string `json:"url"`

	// Dir is the checkout directory.
	// +required
	Dir string `json:"dir"`
}

// Alias is a NX-OS CLI alias.
type Alias struct {
	// +required
	Name string `json:"name"`

	// +required
	Command string `json:"command"`
}
