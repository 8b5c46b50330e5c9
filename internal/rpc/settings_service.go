package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	SettingsServiceName                           = "shopsync.v1.SettingsService"
	SettingsService_GetSettings_FullMethodName    = "/shopsync.v1.SettingsService/GetSettings"
	SettingsService_UpdateSettings_FullMethodName = "/shopsync.v1.SettingsService/UpdateSettings"
	SettingsService_GetCounters_FullMethodName    = "/shopsync.v1.SettingsService/GetCounters"
)

// SettingsServiceServer edits the shop's settings namespaces and shows where its
// numbering sequences stand.
type SettingsServiceServer interface {
	GetSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateSettings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCounters(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var SettingsServiceDesc = grpc.ServiceDesc{
	ServiceName: SettingsServiceName,
	HandlerType: (*SettingsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetSettings",
			Handler: unary(SettingsService_GetSettings_FullMethodName, newStruct,
				func(s SettingsServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
					return s.GetSettings(ctx, in)
				}),
		},
		{
			MethodName: "UpdateSettings",
			Handler: unary(SettingsService_UpdateSettings_FullMethodName, newStruct,
				func(s SettingsServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
					return s.UpdateSettings(ctx, in)
				}),
		},
		{
			MethodName: "GetCounters",
			Handler: unary(SettingsService_GetCounters_FullMethodName, newEmpty,
				func(s SettingsServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
					return s.GetCounters(ctx, in)
				}),
		},
	},
	Metadata: "shopsync/v1/settings.proto",
}

func RegisterSettingsServiceServer(s grpc.ServiceRegistrar, srv SettingsServiceServer) {
	s.RegisterService(&SettingsServiceDesc, srv)
}

type SettingsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewSettingsServiceClient(cc grpc.ClientConnInterface) *SettingsServiceClient {
	return &SettingsServiceClient{cc: cc}
}

func (c *SettingsServiceClient) GetSettings(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SettingsService_GetSettings_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SettingsServiceClient) UpdateSettings(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SettingsService_UpdateSettings_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SettingsServiceClient) GetCounters(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SettingsService_GetCounters_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func newEmpty() *emptypb.Empty { return new(emptypb.Empty) }
