// Package netlock provides a client-side lock backed by the lock broker
// service. It mirrors the acquire/release shape of the flock package for
// callers whose processes share no filesystem.
package netlock

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"lockbox/api/proto"
	"lockbox/pkg/flock"
)

// Config configures a network Lock. The zero value selects the defaults
// documented on each field.
type Config struct {
	// Timeout bounds how long the broker may queue us. Default
	// flock.DefaultTimeout. It is sent to the broker, which enforces it
	// server-side.
	Timeout time.Duration

	// FailWhenLocked requests an immediate answer instead of queueing.
	FailWhenLocked bool
}

// Lock is a named lock held at a remote broker. It follows the same error
// taxonomy as the flock package: contention surfaces as
// flock.ErrAlreadyLocked, transport or broker failures as
// flock.ErrLockFailed.
type Lock struct {
	name   string
	client proto.LockBrokerClient

	timeout        time.Duration
	failWhenLocked bool

	token string
}

// New creates a Lock on name using an established broker client.
func New(name string, client proto.LockBrokerClient, cfg Config) *Lock {
	if cfg.Timeout == 0 {
		cfg.Timeout = flock.DefaultTimeout
	}
	return &Lock{
		name:           name,
		client:         client,
		timeout:        cfg.Timeout,
		failWhenLocked: cfg.FailWhenLocked,
	}
}

// Dial connects to a broker at addr and returns a client suitable for New.
// The connection uses the JSON codec the broker speaks.
func Dial(addr string) (proto.LockBrokerClient, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(proto.JSONCodec{})),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial broker %s: %v", flock.ErrLockFailed, addr, err)
	}
	return proto.NewLockBrokerClient(conn), conn, nil
}

// Acquire obtains the named lock at the broker. Holding the lock already is
// a no-op, matching the idempotent re-entry of flock.FileLock.
func (l *Lock) Acquire(ctx context.Context) error {
	if l.token != "" {
		return nil
	}

	resp, err := l.client.Acquire(ctx, &proto.AcquireRequest{
		Name:           l.name,
		FailWhenLocked: l.failWhenLocked,
		TimeoutMs:      l.timeout.Milliseconds(),
	})
	if err != nil {
		return fmt.Errorf("%w: acquire %s: %v", flock.ErrLockFailed, l.name, err)
	}
	if !resp.GetGranted() {
		return fmt.Errorf("%w: %s", flock.ErrAlreadyLocked, l.name)
	}
	l.token = resp.GetToken()
	return nil
}

// Release returns the lock to the broker. Releasing an unheld lock is a
// no-op.
func (l *Lock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}

	resp, err := l.client.Release(ctx, &proto.ReleaseRequest{
		Name:  l.name,
		Token: l.token,
	})
	if err != nil {
		return fmt.Errorf("%w: release %s: %v", flock.ErrLockFailed, l.name, err)
	}
	l.token = ""
	if !resp.GetReleased() {
		return fmt.Errorf("%w: release %s: broker no longer recognizes the grant", flock.ErrLockFailed, l.name)
	}
	return nil
}

// Locked reports whether this Lock currently holds a broker grant.
func (l *Lock) Locked() bool { return l.token != "" }

// Name returns the lock name.
func (l *Lock) Name() string { return l.name }
