// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package nxos collects device facts from Cisco NX-OS devices over gNMI.
package nxos

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/ironcore-dev/nxos-guestshell/api/v1alpha1"
	"github.com/ironcore-dev/nxos-guestshell/internal/gnmiext"
)

// Dial creates a gRPC connection to the gNMI server of a device. The server
// certificate is not verified, as NX-OS devices ship with a self-signed one.
func Dial(target, username, password string) (*grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		target,
		grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{
			InsecureSkipVerify: true, //nolint:gosec
		})),
		grpc.WithPerRPCCredentials(&auth{
			username: username,
			password: password,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create grpc client: %w", err)
	}
	return conn, nil
}

type auth struct {
	username string
	password string
}

var _ credentials.PerRPCCredentials = (*auth)(nil)

func (a *auth) GetRequestMetadata(_ context.Context, _ ...string) (map[string]string, error) {
	return map[string]string{
		"username": a.username,
		"password": a.password,
	}, nil
}

func (a *auth) RequireTransportSecurity() bool { return true }

// Collect reads the hostname, model, serial number and firmware version of a
// device. Facts that are not defined on the device are left empty. If the
// firmware version cannot be read, it is derived from the capabilities.
func Collect(ctx context.Context, conn grpc.ClientConnInterface) (*v1alpha1.Facts, error) {
	log := logf.FromContext(ctx)
	c, err := gnmiext.New(ctx, conn, gnmiext.WithLogger(log))
	if err != nil {
		return nil, err
	}

	var (
		hostname Hostname
		model    Model
		serial   SerialNumber
		firmware FirmwareVersion
	)
	for _, item := range []gnmiext.Readable{&hostname, &model, &serial, &firmware} {
		if err := c.GetState(ctx, item); err != nil && !errors.Is(err, gnmiext.ErrNil) {
			return nil, fmt.Errorf("failed to read %s: %w", item.XPath(), err)
		}
	}
	if firmware == "" {
		if v := NXVersion(c.Capabilities()); v != VersionUnknown {
			firmware = FirmwareVersion(v)
		}
	}
	facts := &v1alpha1.Facts{
		Hostname:        string(hostname),
		Model:           string(model),
		SerialNumber:    string(serial),
		FirmwareVersion: string(firmware),
	}
	log.V(1).Info("Collected device facts", "hostname", facts.Hostname, "model", facts.Model, "serial", facts.SerialNumber, "version", facts.FirmwareVersion)
	return facts, nil
}

// CollectFrom dials target, collects the facts and closes the connection.
func CollectFrom(ctx context.Context, target, username, password string) (_ *v1alpha1.Facts, err error) {
	conn, err := Dial(target, username, password)
	if err != nil {
		return nil, err
	}
	defer closeWith(conn, &err)
	return Collect(ctx, conn)
}

func closeWith(c io.Closer, err *error) {
	*err = errors.Join(*err, c.Close())
}
