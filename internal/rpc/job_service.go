package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	JobServiceName                            = "shopsync.v1.JobService"
	JobService_StartGeneration_FullMethodName = "/shopsync.v1.JobService/StartGeneration"
	JobService_GetJob_FullMethodName          = "/shopsync.v1.JobService/GetJob"
	JobService_ListJobs_FullMethodName        = "/shopsync.v1.JobService/ListJobs"
	JobService_CancelJob_FullMethodName       = "/shopsync.v1.JobService/CancelJob"
)

// JobServiceServer starts generation runs and reports on their JobLogs.
type JobServiceServer interface {
	StartGeneration(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetJob(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
	ListJobs(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CancelJob(context.Context, *wrapperspb.Int64Value) (*emptypb.Empty, error)
}

var JobServiceDesc = grpc.ServiceDesc{
	ServiceName: JobServiceName,
	HandlerType: (*JobServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "StartGeneration",
			Handler: unary(JobService_StartGeneration_FullMethodName, newStruct,
				func(s JobServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
					return s.StartGeneration(ctx, in)
				}),
		},
		{
			MethodName: "GetJob",
			Handler: unary(JobService_GetJob_FullMethodName, newInt64,
				func(s JobServiceServer, ctx context.Context, in *wrapperspb.Int64Value) (any, error) {
					return s.GetJob(ctx, in)
				}),
		},
		{
			MethodName: "ListJobs",
			Handler: unary(JobService_ListJobs_FullMethodName, newStruct,
				func(s JobServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
					return s.ListJobs(ctx, in)
				}),
		},
		{
			MethodName: "CancelJob",
			Handler: unary(JobService_CancelJob_FullMethodName, newInt64,
				func(s JobServiceServer, ctx context.Context, in *wrapperspb.Int64Value) (any, error) {
					return s.CancelJob(ctx, in)
				}),
		},
	},
	Metadata: "shopsync/v1/job.proto",
}

func RegisterJobServiceServer(s grpc.ServiceRegistrar, srv JobServiceServer) {
	s.RegisterService(&JobServiceDesc, srv)
}

type JobServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewJobServiceClient(cc grpc.ClientConnInterface) *JobServiceClient {
	return &JobServiceClient{cc: cc}
}

func (c *JobServiceClient) StartGeneration(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, JobService_StartGeneration_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobServiceClient) GetJob(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, JobService_GetJob_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobServiceClient) ListJobs(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, JobService_ListJobs_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *JobServiceClient) CancelJob(ctx context.Context, in *wrapperspb.Int64Value, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, JobService_CancelJob_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func newStruct() *structpb.Struct      { return new(structpb.Struct) }
func newInt64() *wrapperspb.Int64Value { return new(wrapperspb.Int64Value) }
