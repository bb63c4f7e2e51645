package api

import (
	"context"
	"encoding/json"
	"strings"

	"carrental/internal/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	RentalServiceName = "carrental.rental.v1.RentalService"

	methodGetStats = "/" + RentalServiceName + "/GetStats"
	methodQuote    = "/" + RentalServiceName + "/Quote"
	methodListCars = "/" + RentalServiceName + "/ListCars"
)

// RentalServer is the internal read-only surface for dashboards and partners.
// Messages are well-known types so no generated code is needed.
type RentalServer interface {
	GetStats(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Quote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	ListCars(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

var rentalServiceDesc = grpc.ServiceDesc{
	ServiceName: RentalServiceName,
	HandlerType: (*RentalServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStats", Handler: getStatsHandler},
		{MethodName: "Quote", Handler: quoteHandler},
		{MethodName: "ListCars", Handler: listCarsHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "carrental/rental/v1/rental.proto",
}

func RegisterRentalServer(s grpc.ServiceRegistrar, srv RentalServer) {
	s.RegisterService(&rentalServiceDesc, srv)
}

func getStatsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RentalServer).GetStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetStats}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RentalServer).GetStats(ctx, req.(*emptypb.Empty))
	})
}

func quoteHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RentalServer).Quote(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodQuote}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RentalServer).Quote(ctx, req.(*structpb.Struct))
	})
}

func listCarsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RentalServer).ListCars(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodListCars}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(RentalServer).ListCars(ctx, req.(*structpb.Struct))
	})
}

// RentalClient calls RentalService over an existing connection.
type RentalClient struct {
	cc grpc.ClientConnInterface
}

func NewRentalClient(cc grpc.ClientConnInterface) *RentalClient {
	return &RentalClient{cc: cc}
}

func (c *RentalClient) GetStats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodGetStats, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RentalClient) Quote(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodQuote, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *RentalClient) ListCars(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodListCars, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// RentalService answers RentalServer calls from the domain services.
type RentalService struct {
	svc Services
}

func NewRentalService(svc Services) *RentalService {
	return &RentalService{svc: svc}
}

func (s *RentalService) GetStats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	stats, err := s.svc.Stats.GetStats(ctx)
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(stats)
}

func (s *RentalService) Quote(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	carID := strings.TrimSpace(fields["carId"].GetStringValue())
	if carID == "" {
		return nil, status.Error(codes.InvalidArgument, "carId is required")
	}

	quote, err := s.svc.Bookings.Quote(ctx, carID,
		fields["startDate"].GetStringValue(),
		fields["endDate"].GetStringValue())
	if err != nil {
		return nil, grpcError(err)
	}
	return toStruct(quote)
}

func (s *RentalService) ListCars(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	filter := models.CarFilter{
		Brand:        strings.TrimSpace(fields["brand"].GetStringValue()),
		Transmission: models.Transmission(strings.TrimSpace(fields["transmission"].GetStringValue())),
	}
	if v, ok := fields["available"]; ok {
		available := v.GetBoolValue()
		filter.Available = &available
	}
	if v, ok := fields["minPrice"]; ok {
		price := v.GetNumberValue()
		filter.MinPrice = &price
	}
	if v, ok := fields["maxPrice"]; ok {
		price := v.GetNumberValue()
		filter.MaxPrice = &price
	}

	cars, err := s.svc.Cars.ListCars(ctx, filter)
	if err != nil {
		return nil, grpcError(err)
	}
	if cars == nil {
		cars = []*models.Car{}
	}
	return toStruct(map[string]any{"cars": cars})
}

// toStruct converts v through its JSON form so the wire shape matches the HTTP API.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, "encode response")
	}
	return out, nil
}
