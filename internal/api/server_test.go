package api

import (
	"context"
	"net"
	"testing"
	"time"

	"carrental/internal/config"
	"carrental/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newBufconnClient(t *testing.T, cfg *config.APIConfig, svc Services) *grpc.ClientConn {
	t.Helper()
	srv, err := newGRPCServer(cfg, svc, nil)
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.ServeListener(lis) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func seedCar(t *testing.T, svc Services, brand string, price float64) *models.Car {
	t.Helper()
	car := &models.Car{Name: "Model " + brand, Brand: brand, PricePerDay: price, Available: true}
	require.NoError(t, svc.Cars.CreateCar(context.Background(), car))
	return car
}

func TestGRPCRentalService(t *testing.T) {
	svc, _ := newTestServices(t)
	car := seedCar(t, svc, "Toyota", 50)
	seedCar(t, svc, "BMW", 200)

	client := NewRentalClient(newBufconnClient(t, &config.APIConfig{}, svc))
	ctx := context.Background()

	stats, err := client.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0.0, stats.GetFields()["totalBookings"].GetNumberValue())
	assert.NotNil(t, stats.GetFields()["monthlyRevenue"].GetListValue())

	req, err := structpb.NewStruct(map[string]any{
		"carId": car.ID, "startDate": "2025-01-01", "endDate": "2025-01-03T12:00:00Z",
	})
	require.NoError(t, err)
	quote, err := client.Quote(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3.0, quote.GetFields()["totalDays"].GetNumberValue())
	assert.Equal(t, 150.0, quote.GetFields()["totalAmount"].GetNumberValue())

	req, err = structpb.NewStruct(map[string]any{"maxPrice": 100})
	require.NoError(t, err)
	cars, err := client.ListCars(ctx, req)
	require.NoError(t, err)
	list := cars.GetFields()["cars"].GetListValue().GetValues()
	require.Len(t, list, 1)
	assert.Equal(t, "Toyota", list[0].GetStructValue().GetFields()["brand"].GetStringValue())
}

func TestGRPCErrorCodes(t *testing.T) {
	svc, _ := newTestServices(t)
	car := seedCar(t, svc, "Toyota", 50)
	client := NewRentalClient(newBufconnClient(t, &config.APIConfig{}, svc))
	ctx := context.Background()

	_, err := client.Quote(ctx, &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	req, _ := structpb.NewStruct(map[string]any{"carId": "missing", "startDate": "2025-01-01", "endDate": "2025-01-02"})
	_, err = client.Quote(ctx, req)
	assert.Equal(t, codes.NotFound, status.Code(err))

	req, _ = structpb.NewStruct(map[string]any{"carId": car.ID, "startDate": "2025-01-02", "endDate": "2025-01-02"})
	_, err = client.Quote(ctx, req)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGRPCAuth(t *testing.T) {
	svc, _ := newTestServices(t)
	cfg := &config.APIConfig{
		Auth: config.APIAuthConfig{
			Enabled: true,
			APIKeys: []config.APIClientKey{
				{Key: "dash", Extra: "s3cret", Permissions: []string{permReadStats}},
			},
		},
	}
	conn := newBufconnClient(t, cfg, svc)
	client := NewRentalClient(conn)

	_, err := client.GetStats(context.Background())
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	bad := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "dash", "x-api-extra", "nope")
	_, err = client.GetStats(bad)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ok := metadata.AppendToOutgoingContext(context.Background(), "x-api-key", "dash", "x-api-extra", "s3cret")
	var header metadata.MD
	_, err = client.GetStats(ok, grpc.Header(&header))
	require.NoError(t, err)
	assert.NotEmpty(t, header.Get(requestIDMetadataKey))

	_, err = client.ListCars(ok, &structpb.Struct{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	// health probes skip key checks
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: RentalServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestGRPCRateLimit(t *testing.T) {
	svc, _ := newTestServices(t)
	cfg := &config.APIConfig{RateLimit: config.APIRateLimitConfig{RPS: 0.001, Burst: 1}}
	client := NewRentalClient(newBufconnClient(t, cfg, svc))

	_, err := client.GetStats(context.Background())
	require.NoError(t, err)
	_, err = client.GetStats(context.Background())
	assert.Equal(t, codes.ResourceExhausted, status.Code(err))
}

func TestChainUnaryInterceptorsOrder(t *testing.T) {
	var calls []string
	mk := func(name string) grpc.UnaryServerInterceptor {
		return func(ctx context.Context, req any, _ *grpc.UnaryServerInfo, h grpc.UnaryHandler) (any, error) {
			calls = append(calls, name)
			return h(ctx, req)
		}
	}
	chain := ChainUnaryInterceptors(mk("a"), mk("b"))
	resp, err := chain(context.Background(), "req", &grpc.UnaryServerInfo{}, func(_ context.Context, req any) (any, error) {
		calls = append(calls, "handler")
		return req, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "req", resp)
	assert.Equal(t, []string{"a", "b", "handler"}, calls)
}

func TestBuildTLSConfigErrors(t *testing.T) {
	_, err := buildTLSConfig(config.APITLSConfig{Enabled: true})
	assert.Error(t, err)

	_, err = buildTLSConfig(config.APITLSConfig{Enabled: true, CertFile: "missing.pem", KeyFile: "missing.key"})
	assert.Error(t, err)
}
