package types

import "time"

// RuntimeConfig is the engine-level view of the user settings.
type RuntimeConfig struct {
	MaxConnectionsPerHost int
	UserAgent             string
	ProxyURL              string
	ProtocolPreference    string
	DialTimeout           time.Duration
	ResponseHeaderTimeout time.Duration
	MinChunkSize          int64
	WorkerBufferSize      int
	ForceSingle           bool
	CleanupPartsOnFailure bool
}

func (r *RuntimeConfig) GetMaxConnectionsPerHost() int {
	if r == nil || r.MaxConnectionsPerHost <= 0 {
		return PerHostMax
	}
	return r.MaxConnectionsPerHost
}

func (r *RuntimeConfig) GetMinChunkSize() int64 {
	if r == nil || r.MinChunkSize <= 0 {
		return MinChunk
	}
	return r.MinChunkSize
}

func (r *RuntimeConfig) GetWorkerBufferSize() int {
	if r == nil || r.WorkerBufferSize <= 0 {
		return WorkerBuffer
	}
	return r.WorkerBufferSize
}

func (r *RuntimeConfig) GetProtocolPreference() string {
	if r == nil || r.ProtocolPreference == "" {
		return ProtocolAuto
	}
	return r.ProtocolPreference
}

func (r *RuntimeConfig) GetUserAgent() string {
	if r == nil || r.UserAgent == "" {
		return "segfetch/1.0"
	}
	return r.UserAgent
}

func (r *RuntimeConfig) GetDialTimeout() time.Duration {
	if r == nil || r.DialTimeout <= 0 {
		return DialTimeout
	}
	return r.DialTimeout
}

func (r *RuntimeConfig) GetResponseHeaderTimeout() time.Duration {
	if r == nil || r.ResponseHeaderTimeout <= 0 {
		return DefaultResponseHeaderTimeout
	}
	return r.ResponseHeaderTimeout
}
