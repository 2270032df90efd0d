package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified name of the ledger service.
const ServiceName = "ledger.v1.LedgerService"

// LedgerServiceServer is the server API for the ledger service. Every message
// is a google.protobuf.Struct whose fields are documented on the Server methods.
type LedgerServiceServer interface {
	CreateEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UpdateEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	DeleteEntry(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListEntries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListRecentEntries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RecomputeBalances(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCurrentBalance(context.Context, *structpb.Struct) (*structpb.Struct, error)

	SummarizeRange(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetDailySummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetWeeklySummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetMonthlySummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetYearlySummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetTotalSummary(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCurrentMonthOverview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCurrentYearOverview(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMonthlySummaries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListYearlySummaries(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(LedgerServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// LedgerServiceDesc describes the ledger service for grpc.Server.RegisterService
var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("CreateEntry", LedgerServiceServer.CreateEntry),
		method("GetEntry", LedgerServiceServer.GetEntry),
		method("UpdateEntry", LedgerServiceServer.UpdateEntry),
		method("DeleteEntry", LedgerServiceServer.DeleteEntry),
		method("ListEntries", LedgerServiceServer.ListEntries),
		method("ListRecentEntries", LedgerServiceServer.ListRecentEntries),
		method("RecomputeBalances", LedgerServiceServer.RecomputeBalances),
		method("GetCurrentBalance", LedgerServiceServer.GetCurrentBalance),
		method("SummarizeRange", LedgerServiceServer.SummarizeRange),
		method("GetDailySummary", LedgerServiceServer.GetDailySummary),
		method("GetWeeklySummary", LedgerServiceServer.GetWeeklySummary),
		method("GetMonthlySummary", LedgerServiceServer.GetMonthlySummary),
		method("GetYearlySummary", LedgerServiceServer.GetYearlySummary),
		method("GetTotalSummary", LedgerServiceServer.GetTotalSummary),
		method("GetCurrentMonthOverview", LedgerServiceServer.GetCurrentMonthOverview),
		method("GetCurrentYearOverview", LedgerServiceServer.GetCurrentYearOverview),
		method("ListMonthlySummaries", LedgerServiceServer.ListMonthlySummaries),
		method("ListYearlySummaries", LedgerServiceServer.ListYearlySummaries),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ledger/v1/ledger.proto",
}

// RegisterLedgerServiceServer registers srv on s
func RegisterLedgerServiceServer(s grpc.ServiceRegistrar, srv LedgerServiceServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

func method(name string, call unaryMethod) grpc.MethodDesc {
	fullMethod := "/" + ServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(LedgerServiceServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: fullMethod,
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(LedgerServiceServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// Client calls the ledger service over a client connection
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes the named method with a request built from fields
func (c *Client) Call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
