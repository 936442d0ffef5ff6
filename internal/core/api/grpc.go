package api

import (
	"context"
	"fmt"
	"time"

	"github.com/solatis/gfb/internal/core/auth"
	"github.com/solatis/gfb/internal/core/db"
	"github.com/solatis/gfb/internal/query"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

/*
 * gfb.v1.FilterService
 *
 * There is no .proto file: messages are google.protobuf.Struct and the
 * service descriptor below is written by hand.
 *
 *   Compile      {"document": "<yaml>", "persist": bool}
 *             -> {"filters": [{"label", "queries", "actions", "resources"}], "etag"}
 *   ListFilters  {}
 *             -> {"filters": [{"filter_id", "label", "position", "query", "actions", "created_at"}], "etag"}
 */

// FilterServiceName is the fully qualified gRPC service name.
const FilterServiceName = "gfb.v1.FilterService"

// Full method names, as seen by interceptors.
const (
	MethodCompile     = "/" + FilterServiceName + "/Compile"
	MethodListFilters = "/" + FilterServiceName + "/ListFilters"
)

// FilterServiceServer is the server API of gfb.v1.FilterService.
type FilterServiceServer interface {
	Compile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListFilters(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// FilterServiceDesc describes gfb.v1.FilterService for grpc.Server.RegisterService.
var FilterServiceDesc = grpc.ServiceDesc{
	ServiceName: FilterServiceName,
	HandlerType: (*FilterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Compile", Handler: compileHandler},
		{MethodName: "ListFilters", Handler: listFiltersHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gfb/v1/filter_service",
}

func compileHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FilterServiceServer).Compile(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodCompile}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FilterServiceServer).Compile(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func listFiltersHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FilterServiceServer).ListFilters(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: MethodListFilters}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FilterServiceServer).ListFilters(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// FilterServiceClient calls gfb.v1.FilterService.
type FilterServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewFilterServiceClient wraps a client connection.
func NewFilterServiceClient(cc grpc.ClientConnInterface) *FilterServiceClient {
	return &FilterServiceClient{cc: cc}
}

// Compile invokes FilterService/Compile.
func (c *FilterServiceClient) Compile(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodCompile, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFilters invokes FilterService/ListFilters.
func (c *FilterServiceClient) ListFilters(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodListFilters, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// GRPCHandler adapts Service to FilterServiceServer.
type GRPCHandler struct {
	service *Service
}

// NewGRPCHandler returns the gRPC adapter of service.
func NewGRPCHandler(service *Service) *GRPCHandler {
	return &GRPCHandler{service: service}
}

// Compile handles FilterService/Compile.
func (h *GRPCHandler) Compile(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	doc, ok := fields["document"]
	if !ok || doc.GetStringValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "document is required")
	}
	persist := fields["persist"].GetBoolValue()

	result, err := h.service.Compile(WithTransport(ctx, "grpc"), auth.AccountIDFromContext(ctx), []byte(doc.GetStringValue()), persist)
	if err != nil {
		return nil, StatusError(err)
	}

	filters := make([]interface{}, 0, len(result.Filters))
	for _, f := range result.Filters {
		filters = append(filters, compiledValue(f))
	}
	return newStruct(map[string]interface{}{
		"filters": filters,
		"etag":    result.ETag,
	})
}

// ListFilters handles FilterService/ListFilters.
func (h *GRPCHandler) ListFilters(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	records, etag, err := h.service.Filters(WithTransport(ctx, "grpc"), auth.AccountIDFromContext(ctx))
	if err != nil {
		return nil, StatusError(err)
	}

	filters := make([]interface{}, 0, len(records))
	for _, r := range records {
		filters = append(filters, recordValue(r))
	}
	return newStruct(map[string]interface{}{
		"filters": filters,
		"etag":    etag,
	})
}

func compiledValue(f *query.CompiledFilter) map[string]interface{} {
	resources := make([]interface{}, 0, len(f.Queries))
	for _, r := range f.Resources("") {
		resources = append(resources, map[string]interface{}{
			"criteria": map[string]interface{}{"query": r.Criteria.Query},
			"action": map[string]interface{}{
				"addLabelIds":    stringList(r.Action.AddLabelIDs),
				"removeLabelIds": stringList(r.Action.RemoveLabelIDs),
			},
		})
	}
	return map[string]interface{}{
		"label":     f.Label,
		"queries":   stringList(f.Queries),
		"actions":   stringList(f.ActionNames()),
		"resources": resources,
	}
}

func recordValue(r db.FilterRecord) map[string]interface{} {
	return map[string]interface{}{
		"filter_id":  string(r.FilterID),
		"label":      r.Label,
		"position":   r.Position,
		"query":      r.Query,
		"actions":    stringList(r.ActionNames()),
		"created_at": r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// stringList converts to the []interface{} form structpb accepts.
func stringList(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func newStruct(m map[string]interface{}) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return s, nil
}
