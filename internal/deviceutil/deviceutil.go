// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0
package deviceutil

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"

	"k8s.io/utils/ptr"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
	"github.com/ironcore-dev/nxos-guestshell/internal/inventory"
	"github.com/ironcore-dev/nxos-guestshell/internal/vty"
)

const (
	DefaultPort        int32 = 22
	DefaultDelayFactor int32 = 20
)

// ErrNoCredentials is returned when neither a password nor a key file is configured for a host.
var ErrNoCredentials = errors.New("no credentials configured")

// Connection holds everything required to open sessions to a host.
type Connection struct {
	// Name of the host in the inventory.
	Name string
	// Address is the "host:port" of the SSH server.
	Address     string
	Username    string
	Password    string // #nosec G117
	KeyFile     string
	DelayFactor int
	// GNMIAddress is the "host:port" of the gNMI server, if any.
	GNMIAddress string
}

// Endpoint returns the [vty.Endpoint] of the connection.
func (c *Connection) Endpoint() vty.Endpoint {
	return vty.Endpoint{
		Address:  c.Address,
		Username: c.Username,
		Password: c.Password,
		KeyFile:  c.KeyFile,
	}
}

// GetHostConnection resolves the connection details of the given host,
// falling back to the inventory defaults for unset values.
func GetHostConnection(inv *v1alpha1.Inventory, h *v1alpha1.Host) (*Connection, error) {
	d := inv.Defaults
	c := &Connection{
		Name:        h.Name,
		Username:    first(h.Username, d.Username),
		KeyFile:     first(h.KeyFile, d.KeyFile),
		DelayFactor: int(ptr.Deref(first(h.DelayFactor, d.DelayFactor), DefaultDelayFactor)),
		GNMIAddress: h.GNMIAddress,
	}

	port := ptr.Deref(first(h.Port, d.Port), DefaultPort)
	c.Address = h.Address
	if _, _, err := net.SplitHostPort(h.Address); err != nil {
		c.Address = net.JoinHostPort(h.Address, strconv.Itoa(int(port)))
	}

	var err error
	switch {
	case h.Password != "":
		c.Password = h.Password
	case h.PasswordEnv != "":
		c.Password, err = getenv(h.PasswordEnv)
	case d.Password != "":
		c.Password = d.Password
	case d.PasswordEnv != "":
		c.Password, err = getenv(d.PasswordEnv)
	}
	if err != nil {
		return nil, fmt.Errorf("host %s: %w", h.Name, err)
	}
	if c.Password == "" && c.KeyFile == "" {
		return nil, fmt.Errorf("host %s: %w", h.Name, ErrNoCredentials)
	}
	return c, nil
}

// GetHostConnectionByName finds the host by name and resolves its connection details.
func GetHostConnectionByName(inv *v1alpha1.Inventory, name string) (*Connection, error) {
	h, err := inventory.Lookup(inv, name)
	if err != nil {
		return nil, err
	}
	return GetHostConnection(inv, h)
}

func getenv(key string) (string, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return "", fmt.Errorf("environment variable %q is not set", key)
	}
	return v, nil
}

// first returns the first non-zero value.
func first[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
