// SPDX-FileCopyrightText: 2025 SAP SE or an SAP affiliate company and IronCore contributors
// SPDX-License-Identifier: Apache-2.0

// Package gnmiexttest provides a fake gRPC connection answering gNMI RPCs.
package gnmiexttest

import (
	"context"

	gpb "github.com/openconfig/gnmi/proto/gnmi"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
)

// MockClientConn implements [grpc.ClientConnInterface] for the unary gNMI RPCs.
type MockClientConn struct {
	// CapabilitiesFunc allows mocking of the Capabilities RPC response.
	CapabilitiesFunc func(ctx context.Context, req *gpb.CapabilityRequest) (*gpb.CapabilityResponse, error)

	// GetFunc allows mocking of the Get RPC response.
	GetFunc func(ctx context.Context, req *gpb.GetRequest) (*gpb.GetResponse, error)
}

var _ grpc.ClientConnInterface = (*MockClientConn)(nil)

func (m *MockClientConn) Invoke(ctx context.Context, method string, args, reply any, opts ...grpc.CallOption) error {
	switch method {
	case "/gnmi.gNMI/Capabilities":
		if m.CapabilitiesFunc == nil {
			return status.Error(codes.Unimplemented, "Capabilities RPC not mocked")
		}
		res, err := m.CapabilitiesFunc(ctx, args.(*gpb.CapabilityRequest))
		if err != nil {
			return err
		}
		proto.Merge(reply.(*gpb.CapabilityResponse), res)
		return nil

	case "/gnmi.gNMI/Get":
		if m.GetFunc == nil {
			return status.Error(codes.Unimplemented, "Get RPC not mocked")
		}
		res, err := m.GetFunc(ctx, args.(*gpb.GetRequest))
		if err != nil {
			return err
		}
		proto.Merge(reply.(*gpb.GetResponse), res)
		return nil

	default:
		return status.Errorf(codes.Unimplemented, "method %s not mocked", method)
	}
}

func (m *MockClientConn) NewStream(ctx context.Context, desc *grpc.StreamDesc, method string, opts ...grpc.CallOption) (grpc.ClientStream, error) {
	return nil, status.Errorf(codes.Unimplemented, "streaming method %s not mocked", method)
}

// JSONCapabilities returns a Capabilities handler advertising JSON encoding
// and the given models as name/version pairs.
func JSONCapabilities(models ...string) func(context.Context, *gpb.CapabilityRequest) (*gpb.CapabilityResponse, error) {
	return func(context.Context, *gpb.CapabilityRequest) (*gpb.CapabilityResponse, error) {
		res := &gpb.CapabilityResponse{SupportedEncodings: []gpb.Encoding{gpb.Encoding_JSON}}
		for i := 0; i+1 < len(models); i += 2 {
			res.SupportedModels = append(res.SupportedModels, &gpb.ModelData{Name: models[i], Version: models[i+1]})
		}
		return res, nil
	}
}

// Paths answers Get requests from a table of JSON payloads keyed by the
// origin-less xpath. Unknown paths yield a notification without updates.
func Paths(values map[string]string) func(context.Context, *gpb.GetRequest) (*gpb.GetResponse, error) {
	return func(_ context.Context, req *gpb.GetRequest) (*gpb.GetResponse, error) {
		res := new(gpb.GetResponse)
		for _, p := range req.Path {
			n := &gpb.Notification{}
			if v, ok := values[PathString(p)]; ok {
				n.Update = []*gpb.Update{{Path: p, Val: &gpb.TypedValue{Value: &gpb.TypedValue_JsonVal{JsonVal: []byte(v)}}}}
			}
			res.Notification = append(res.Notification, n)
		}
		return res, nil
	}
}

// PathString joins the element names of p with slashes, ignoring keys.
func PathString(p *gpb.Path) string {
	var s string
	for i, e := range p.Elem {
		if i > 0 {
			s += "/"
		}
		s += e.Name
	}
	return s
}
