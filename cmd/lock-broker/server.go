package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"time"

	"lockbox/api/proto"
	"lockbox/internal/config"
	"lockbox/internal/waitq"
	"lockbox/pkg/metrics"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// BrokerServer implements the gRPC LockBroker service over the in-process
// lock table. Clients that share no filesystem coordinate through it instead
// of through lock files.
type BrokerServer struct {
	proto.UnimplementedLockBrokerServer

	registry *waitq.Registry
	metrics  *metrics.BrokerMetrics
	config   config.Config
}

// NewBrokerServer creates a broker server from cfg. Metrics may be nil when
// the metrics endpoint is disabled.
func NewBrokerServer(cfg config.Config, m *metrics.BrokerMetrics) *BrokerServer {
	return &BrokerServer{
		registry: waitq.NewRegistry(),
		metrics:  m,
		config:   cfg,
	}
}

// Acquire implements the Acquire RPC. Contended requests queue server-side
// until the holder releases or the request's timeout elapses; fail-fast
// requests answer immediately.
func (s *BrokerServer) Acquire(ctx context.Context, req *proto.AcquireRequest) (*proto.AcquireResponse, error) {
	if req.GetName() == "" {
		s.countAcquire("error")
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if s.config.MaxLocks > 0 && s.registry.Count() >= s.config.MaxLocks {
		s.countAcquire("error")
		return nil, status.Error(codes.ResourceExhausted, "lock table is full")
	}

	start := time.Now()

	if req.GetFailWhenLocked() {
		token, ok, err := s.registry.TryAcquire(req.GetName())
		if err != nil {
			s.countAcquire("error")
			return nil, status.Error(codes.Internal, err.Error())
		}
		if !ok {
			s.countAcquire("contended")
			return &proto.AcquireResponse{Granted: false}, nil
		}
		s.observeGrant(start)
		return &proto.AcquireResponse{Granted: true, Token: token}, nil
	}

	timeout := s.config.DefaultTimeout()
	if req.GetTimeoutMs() > 0 {
		timeout = time.Duration(req.GetTimeoutMs()) * time.Millisecond
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Grab the lock directly when it is free; reaching the blocking acquire
	// below means this request queues behind a holder.
	if token, ok, err := s.registry.TryAcquire(req.GetName()); err == nil && ok {
		s.observeGrant(start)
		return &proto.AcquireResponse{Granted: true, Token: token}, nil
	}

	s.addQueuedWaiters(1)
	token, err := s.registry.Acquire(waitCtx, req.GetName())
	s.addQueuedWaiters(-1)
	if err != nil {
		if waitCtx.Err() != nil {
			s.countAcquire("timeout")
			return &proto.AcquireResponse{Granted: false}, nil
		}
		s.countAcquire("error")
		return nil, status.Error(codes.Internal, err.Error())
	}

	s.observeGrant(start)
	return &proto.AcquireResponse{Granted: true, Token: token}, nil
}

// Release implements the Release RPC. A stale token reports released=false
// rather than an error so retried releases stay harmless.
func (s *BrokerServer) Release(ctx context.Context, req *proto.ReleaseRequest) (*proto.ReleaseResponse, error) {
	if req.GetName() == "" {
		s.countRelease("error")
		return nil, status.Error(codes.InvalidArgument, "name is required")
	}
	if req.GetToken() == "" {
		s.countRelease("error")
		return nil, status.Error(codes.InvalidArgument, "token is required")
	}

	released, err := s.registry.Release(req.GetName(), req.GetToken())
	if err != nil {
		s.countRelease("error")
		return nil, status.Error(codes.Internal, err.Error())
	}
	if !released {
		s.countRelease("stale")
		return &proto.ReleaseResponse{Released: false}, nil
	}

	s.countRelease("released")
	if s.metrics != nil {
		s.metrics.HeldLocks.Set(float64(s.registry.Count()))
	}
	return &proto.ReleaseResponse{Released: true}, nil
}

func (s *BrokerServer) countAcquire(result string) {
	if s.metrics != nil {
		s.metrics.AcquireRequestsTotal.WithLabelValues(result).Inc()
	}
}

func (s *BrokerServer) addQueuedWaiters(delta float64) {
	if s.metrics != nil {
		s.metrics.QueuedWaiters.Add(delta)
	}
}

func (s *BrokerServer) countRelease(result string) {
	if s.metrics != nil {
		s.metrics.ReleaseRequestsTotal.WithLabelValues(result).Inc()
	}
}

func (s *BrokerServer) observeGrant(start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.AcquireRequestsTotal.WithLabelValues("granted").Inc()
	s.metrics.AcquireWaitSeconds.Observe(time.Since(start).Seconds())
	s.metrics.HeldLocks.Set(float64(s.registry.Count()))
}

// Run starts the gRPC server on the configured listen address and blocks
// until it exits.
func (s *BrokerServer) Run() error {
	grpcServer := grpc.NewServer()
	proto.RegisterLockBrokerServer(grpcServer, s)

	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddr, err)
	}

	log.Printf("Lock broker gRPC server listening on %s", s.config.ListenAddr)
	if err := grpcServer.Serve(listener); err != nil {
		return fmt.Errorf("gRPC server error: %w", err)
	}
	return nil
}
