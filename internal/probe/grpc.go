package probe

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// GRPCProbe checks reachability with the standard gRPC health protocol
type GRPCProbe struct {
	conn    *grpc.ClientConn
	health  grpc_health_v1.HealthClient
	service string
}

// NewGRPCProbe creates a probe against target. The connection is established lazily.
func NewGRPCProbe(target, service string) (*GRPCProbe, error) {
	opts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                30 * time.Second,
			Timeout:             3 * time.Second,
			PermitWithoutStream: true,
		}),
	}

	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("create grpc probe client: %w", err)
	}
	return &GRPCProbe{
		conn:    conn,
		health:  grpc_health_v1.NewHealthClient(conn),
		service: service,
	}, nil
}

// Ping succeeds only when the target reports SERVING
func (p *GRPCProbe) Ping(ctx context.Context) error {
	resp, err := p.health.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: p.service})
	if err != nil {
		return err
	}
	if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
		return fmt.Errorf("health status %s", resp.GetStatus())
	}
	return nil
}

func (p *GRPCProbe) Close() error {
	return p.conn.Close()
}
