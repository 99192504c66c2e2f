// Package proto defines the lock broker wire types and service descriptor.
// The messages are hand-written structs serialized with the JSON codec in
// this package rather than protobuf binary.
package proto

// AcquireRequest asks the broker to grant the named lock to the caller.
type AcquireRequest struct {
	// Name is the lock the caller wants to hold.
	Name string `json:"name"`
	// FailWhenLocked requests an immediate answer instead of queueing.
	FailWhenLocked bool `json:"fail_when_locked,omitempty"`
	// TimeoutMs bounds how long the broker may queue the caller. Zero means
	// the broker's configured default.
	TimeoutMs int64 `json:"timeout_ms,omitempty"`
}

// GetName returns the lock name, tolerating a nil receiver.
func (r *AcquireRequest) GetName() string {
	if r == nil {
		return ""
	}
	return r.Name
}

// GetFailWhenLocked returns the fail-fast flag, tolerating a nil receiver.
func (r *AcquireRequest) GetFailWhenLocked() bool {
	if r == nil {
		return false
	}
	return r.FailWhenLocked
}

// GetTimeoutMs returns the requested timeout, tolerating a nil receiver.
func (r *AcquireRequest) GetTimeoutMs() int64 {
	if r == nil {
		return 0
	}
	return r.TimeoutMs
}

// AcquireResponse reports whether the lock was granted.
type AcquireResponse struct {
	// Granted is true when the caller now holds the lock.
	Granted bool `json:"granted"`
	// Token identifies the grant; it must accompany the release.
	Token string `json:"token,omitempty"`
}

// GetGranted returns the grant flag, tolerating a nil receiver.
func (r *AcquireResponse) GetGranted() bool {
	if r == nil {
		return false
	}
	return r.Granted
}

// GetToken returns the holder token, tolerating a nil receiver.
func (r *AcquireResponse) GetToken() string {
	if r == nil {
		return ""
	}
	return r.Token
}

// ReleaseRequest returns a previously granted lock.
type ReleaseRequest struct {
	// Name is the lock being released.
	Name string `json:"name"`
	// Token is the grant token returned by Acquire.
	Token string `json:"token"`
}

// GetName returns the lock name, tolerating a nil receiver.
func (r *ReleaseRequest) GetName() string {
	if r == nil {
		return ""
	}
	return r.Name
}

// GetToken returns the grant token, tolerating a nil receiver.
func (r *ReleaseRequest) GetToken() string {
	if r == nil {
		return ""
	}
	return r.Token
}

// ReleaseResponse reports whether the release took effect.
type ReleaseResponse struct {
	// Released is false when the token was stale or the lock unknown.
	Released bool `json:"released"`
}

// GetReleased returns the release flag, tolerating a nil receiver.
func (r *ReleaseResponse) GetReleased() bool {
	if r == nil {
		return false
	}
	return r.Released
}
