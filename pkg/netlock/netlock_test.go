package netlock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"lockbox/api/proto"
	"lockbox/pkg/flock"
)

// stubBroker is an in-process LockBrokerClient with scripted behavior.
type stubBroker struct {
	holder       string
	acquireCalls []*proto.AcquireRequest
	releaseCalls []*proto.ReleaseRequest
	failWith     error
}

func (s *stubBroker) Acquire(ctx context.Context, in *proto.AcquireRequest, opts ...grpc.CallOption) (*proto.AcquireResponse, error) {
	s.acquireCalls = append(s.acquireCalls, in)
	if s.failWith != nil {
		return nil, s.failWith
	}
	if s.holder != "" {
		return &proto.AcquireResponse{Granted: false}, nil
	}
	s.holder = "grant-1"
	return &proto.AcquireResponse{Granted: true, Token: s.holder}, nil
}

func (s *stubBroker) Release(ctx context.Context, in *proto.ReleaseRequest, opts ...grpc.CallOption) (*proto.ReleaseResponse, error) {
	s.releaseCalls = append(s.releaseCalls, in)
	if s.failWith != nil {
		return nil, s.failWith
	}
	if in.GetToken() != s.holder {
		return &proto.ReleaseResponse{Released: false}, nil
	}
	s.holder = ""
	return &proto.ReleaseResponse{Released: true}, nil
}

func TestAcquireRelease(t *testing.T) {
	broker := &stubBroker{}
	lock := New("jobs", broker, Config{})

	require.NoError(t, lock.Acquire(context.Background()))
	assert.True(t, lock.Locked())

	require.NoError(t, lock.Release(context.Background()))
	assert.False(t, lock.Locked())
	require.Len(t, broker.releaseCalls, 1)
	assert.Equal(t, "grant-1", broker.releaseCalls[0].GetToken())
}

func TestAcquireContended(t *testing.T) {
	broker := &stubBroker{holder: "someone-else"}
	lock := New("jobs", broker, Config{FailWhenLocked: true})

	err := lock.Acquire(context.Background())
	assert.ErrorIs(t, err, flock.ErrAlreadyLocked)
	assert.False(t, lock.Locked())
}

func TestAcquireTransportError(t *testing.T) {
	broker := &stubBroker{failWith: status.Error(codes.Unavailable, "broker down")}
	lock := New("jobs", broker, Config{})

	err := lock.Acquire(context.Background())
	assert.ErrorIs(t, err, flock.ErrLockFailed)
	assert.NotErrorIs(t, err, flock.ErrAlreadyLocked)
}

func TestAcquireIdempotent(t *testing.T) {
	broker := &stubBroker{}
	lock := New("jobs", broker, Config{})

	require.NoError(t, lock.Acquire(context.Background()))
	require.NoError(t, lock.Acquire(context.Background()))

	// The second acquire never reaches the broker
	assert.Len(t, broker.acquireCalls, 1)
}

func TestReleaseNotHeld(t *testing.T) {
	broker := &stubBroker{}
	lock := New("jobs", broker, Config{})

	require.NoError(t, lock.Release(context.Background()))
	assert.Empty(t, broker.releaseCalls)
}

func TestReleaseStaleGrant(t *testing.T) {
	broker := &stubBroker{}
	lock := New("jobs", broker, Config{})
	require.NoError(t, lock.Acquire(context.Background()))

	// The broker forgot the grant (e.g. it restarted)
	broker.holder = ""

	err := lock.Release(context.Background())
	assert.ErrorIs(t, err, flock.ErrLockFailed)
	// The local state is cleared regardless
	assert.False(t, lock.Locked())
}

func TestRequestCarriesPolicy(t *testing.T) {
	broker := &stubBroker{}
	lock := New("jobs", broker, Config{
		Timeout:        1500 * time.Millisecond,
		FailWhenLocked: true,
	})

	require.NoError(t, lock.Acquire(context.Background()))
	require.Len(t, broker.acquireCalls, 1)

	req := broker.acquireCalls[0]
	assert.Equal(t, "jobs", req.GetName())
	assert.True(t, req.GetFailWhenLocked())
	assert.EqualValues(t, 1500, req.GetTimeoutMs())
}
