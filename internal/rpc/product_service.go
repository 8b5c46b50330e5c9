package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	ProductServiceName                          = "shopsync.v1.ProductService"
	ProductService_GetProduct_FullMethodName    = "/shopsync.v1.ProductService/GetProduct"
	ProductService_UpdateVariant_FullMethodName = "/shopsync.v1.ProductService/UpdateVariant"
	ProductService_ListBarcodes_FullMethodName  = "/shopsync.v1.ProductService/ListBarcodes"
)

// ProductServiceServer reads the mirror and accepts manual sku and barcode edits.
type ProductServiceServer interface {
	GetProduct(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	UpdateVariant(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	ListBarcodes(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var ProductServiceDesc = grpc.ServiceDesc{
	ServiceName: ProductServiceName,
	HandlerType: (*ProductServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetProduct",
			Handler: unary(ProductService_GetProduct_FullMethodName, newInt64,
				func(s ProductServiceServer, ctx context.Context, in *wrapperspb.Int64Value) (any, error) {
					return s.GetProduct(ctx, in)
				}),
		},
		{
			MethodName: "UpdateVariant",
			Handler: unary(ProductService_UpdateVariant_FullMethodName, newStruct,
				func(s ProductServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
					return s.UpdateVariant(ctx, in)
				}),
		},
		{
			MethodName: "ListBarcodes",
			Handler: unary(ProductService_ListBarcodes_FullMethodName, newStruct,
				func(s ProductServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
					return s.ListBarcodes(ctx, in)
				}),
		},
	},
	Metadata: "shopsync/v1/product.proto",
}

func RegisterProductServiceServer(s grpc.ServiceRegistrar, srv ProductServiceServer) {
	s.RegisterService(&ProductServiceDesc, srv)
}

type ProductServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewProductServiceClient(cc grpc.ClientConnInterface) *ProductServiceClient {
	return &ProductServiceClient{cc: cc}
}

func (c *ProductServiceClient) GetProduct(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ProductService_GetProduct_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ProductServiceClient) UpdateVariant(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, ProductService_UpdateVariant_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ProductServiceClient) ListBarcodes(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ProductService_ListBarcodes_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
