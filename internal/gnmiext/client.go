// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package gnmiext provides a read-only gNMI client that unmarshals JSON
// encoded notifications into Go structs addressed by an xpath.
package gnmiext

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-logr/logr"
	gpb "github.com/openconfig/gnmi/proto/gnmi"
	"github.com/openconfig/ygot/ygot"
	"github.com/tidwall/gjson"
	"google.golang.org/grpc"
)

// Readable represents an item that can be retrieved from a device.
type Readable interface {
	// XPath returns the YANG path for this item.
	// It may include an origin prefix (e.g., "openconfig:system/state/hostname").
	XPath() string
}

// Model represents a YANG data model supported by a device.
type Model struct {
	Name         string
	Organization string
	Version      string
}

// Capabilities represents device capabilities including supported YANG models.
type Capabilities struct {
	SupportedModels []Model
}

// Model returns the supported model with the given name, if any.
func (c *Capabilities) Model(name string) (Model, bool) {
	for _, m := range c.SupportedModels {
		if m.Name == name {
			return m, true
		}
	}
	return Model{}, false
}

type Client interface {
	GetState(ctx context.Context, items ...Readable) error
	GetConfig(ctx context.Context, items ...Readable) error
	Capabilities() *Capabilities
}

type client struct {
	gnmi         gpb.GNMIClient
	encoding     gpb.Encoding
	capabilities *Capabilities
	logger       logr.Logger
}

var _ Client = &client{}

// New creates a new Client by negotiating capabilities with the gNMI server by
// carrying out a Capabilities RPC.
// Returns an error if the device doesn't support JSON encoding.
// By default, the client uses [slog.Default] for logging.
// Use [WithLogger] to provide a custom logger.
func New(ctx context.Context, conn grpc.ClientConnInterface, opts ...Option) (Client, error) {
	gnmi := gpb.NewGNMIClient(conn)
	res, err := gnmi.Capabilities(ctx, &gpb.CapabilityRequest{})
	if err != nil {
		return nil, fmt.Errorf("gnmiext: failed to retrieve capabilities: %w", err)
	}
	encoding := gpb.Encoding(-1)
	for _, e := range res.SupportedEncodings {
		switch e {
		case gpb.Encoding_JSON, gpb.Encoding_JSON_IETF:
			encoding = e
		default:
			// Ignore unsupported encodings.
		}
	}
	if encoding == -1 {
		return nil, fmt.Errorf("gnmiext: unsupported encoding: %v", res.SupportedEncodings)
	}
	capabilities := &Capabilities{SupportedModels: make([]Model, len(res.GetSupportedModels()))}
	for i, model := range res.GetSupportedModels() {
		capabilities.SupportedModels[i] = Model{
			Name:         model.Name,
			Organization: model.Organization,
			Version:      model.Version,
		}
	}
	logger := logr.FromSlogHandler(slog.Default().Handler())
	c := &client{gnmi, encoding, capabilities, logger}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type Option func(*client)

// WithLogger sets a custom logger for the client.
func WithLogger(logger logr.Logger) Option {
	return func(c *client) {
		c.logger = logger
	}
}

// ErrNil indicates that the value for a xpath is not defined.
var ErrNil = errors.New("gnmiext: nil")

// Capabilities returns the capabilities negotiated in [New].
func (c *client) Capabilities() *Capabilities {
	return c.capabilities
}

// GetConfig retrieves config and unmarshals it into the provided targets.
// If some of the values for the given xpaths are not defined, [ErrNil] is returned.
func (c *client) GetConfig(ctx context.Context, items ...Readable) error {
	return c.get(ctx, gpb.GetRequest_CONFIG, items...)
}

// GetState retrieves state and unmarshals it into the provided targets.
// If some of the values for the given xpaths are not defined, [ErrNil] is returned.
func (c *client) GetState(ctx context.Context, items ...Readable) error {
	return c.get(ctx, gpb.GetRequest_STATE, items...)
}

func (c *client) get(ctx context.Context, dt gpb.GetRequest_DataType, items ...Readable) error {
	if len(items) == 0 {
		return nil
	}
	r := &gpb.GetRequest{
		Type:     dt,
		Encoding: c.encoding,
	}
	for _, it := range items {
		path, err := StringToStructuredPath(it.XPath())
		if err != nil {
			return err
		}
		r.Path = append(r.Path, path)
	}
	res, err := c.gnmi.Get(ctx, r)
	if err != nil {
		return fmt.Errorf("gnmiext: failed to perform get rpc: %w", err)
	}
	// As per [gNMI spec] the response MUST contain one notification
	// for each path in the request.
	//
	// [gNMI spec]: https://github.com/openconfig/reference/blob/master/rpc/gnmi/gnmi-specification.md#332-the-getresponse-message
	if len(res.Notification) != len(items) {
		return fmt.Errorf("gnmiext: unexpected number of notifications: got %d, want %d", len(res.Notification), len(items))
	}
	for i, it := range items {
		n := res.Notification[i]
		switch len(n.Update) {
		case 0:
			return ErrNil
		case 1:
			b, err := c.Decode(n.Update[0].Val)
			if err != nil {
				return err
			}
			// Cisco NX-OS returns an empty value instead of a NotFound status
			// error for paths that are syntactically correct but do not exist.
			if len(b) == 0 {
				return ErrNil
			}
			c.logger.V(2).Info("Received value", "path", it.XPath(), "payload", string(b))
			if err := c.Unmarshal(b, it); err != nil {
				return err
			}
		default:
			return fmt.Errorf("gnmiext: unexpected number of updates: %d", len(n.Update))
		}
	}
	return nil
}

// zeroUnknownFields sets struct fields to their zero value
// if they are not present in the provided JSON byte slice.
func zeroUnknownFields(b []byte, rv reflect.Value) {
	switch rv.Kind() {
	case reflect.Pointer:
		zeroUnknownFields(b, rv.Elem())
	case reflect.Struct:
		rt := rv.Type()
		for i := range rt.NumField() {
			if tag, ok := rt.Field(i).Tag.Lookup("json"); ok {
				parts := strings.Split(tag, ",")
				if parts[0] != "" && parts[0] != "-" {
					sf := rv.Field(i)
					raw := gjson.GetBytes(b, parts[0]).Raw
					if raw != "" {
						zeroUnknownFields([]byte(raw), sf)
						continue
					}
					if !sf.IsZero() && sf.CanSet() {
						sf.Set(reflect.Zero(sf.Type()))
					}
				}
			}
		}
	}
}

// Unmarshal unmarshals the provided byte slice into the provided destination
// using [json.Unmarshal].
func (c *client) Unmarshal(b []byte, dst any) error {
	zeroUnknownFields(b, reflect.ValueOf(dst))
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("gnmiext: failed to unmarshal value: %w", err)
	}
	return nil
}

// Decode returns the JSON payload of the provided [gpb.TypedValue].
func (c *client) Decode(val *gpb.TypedValue) ([]byte, error) {
	switch c.encoding {
	case gpb.Encoding_JSON:
		v, ok := val.Value.(*gpb.TypedValue_JsonVal)
		if !ok {
			return nil, fmt.Errorf("gnmiext: unexpected value type: expected JsonVal, got %T", val.Value)
		}
		return v.JsonVal, nil
	case gpb.Encoding_JSON_IETF:
		v, ok := val.Value.(*gpb.TypedValue_JsonIetfVal)
		if !ok {
			return nil, fmt.Errorf("gnmiext: unexpected value type: expected JsonIetfVal, got %T", val.Value)
		}
		return v.JsonIetfVal, nil
	default:
		panic("gnmiext: unsupported encoding")
	}
}

// StringToStructuredPath converts a string xpath to a structured path.
//
// It is a wrapper around [ygot.StringToStructuredPath] that additionally supports
// origin prefixes, such as "openconfig-interfaces:interfaces/interface[name=eth1/1]".
func StringToStructuredPath(xpath string) (*gpb.Path, error) {
	var model string
	if idx := strings.Index(xpath, ":"); idx > 0 {
		model = xpath[:idx]
		xpath = xpath[idx+1:]
	}
	path, err := ygot.StringToStructuredPath(xpath)
	if err != nil {
		return nil, fmt.Errorf("gnmiext: failed to convert xpath '%s' to path: %w", xpath, err)
	}
	path.Origin = model
	return path, nil
}
