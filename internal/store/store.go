package store

import (
	"context"
	"fmt"
	"io"

	"github.com/ShayCichocki/wkagent/internal/memory"
)

// Backend names accepted by Open.
const (
	BackendNone      = "none"
	BackendSQLite    = "sqlite"
	BackendSQLiteCGO = "sqlite3"
	BackendRedis     = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Backend is a memory.Persister that holds resources.
type Backend interface {
	memory.Persister
	io.Closer
}

// Open returns the configured backend. BackendNone yields nil, nil.
func Open(ctx context.Context, opts Options) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch opts.Backend {
	case "", BackendSQLite:
		b, err = OpenSQLite(pathOrDefault(opts.Path), DriverPure)
	case BackendSQLiteCGO:
		b, err = OpenSQLite(pathOrDefault(opts.Path), DriverCGO)
	case BackendRedis:
		b, err = OpenRedis(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case BackendNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown persistence backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func pathOrDefault(p string) string {
	if p == "" {
		return DefaultSQLitePath()
	}
	return p
}
