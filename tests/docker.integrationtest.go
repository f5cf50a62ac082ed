//go:build integration

// Package tests offers helpers for integration tests against real services running in docker.
package tests

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
)

var (
	ErrDockerFailure       = errors.New("docker failure")
	ErrMissingInstanceName = errors.New("missing docker instance name")
)

const containerLifetime = 120 * time.Second

// RetryFunc returns the connection check for a started resource.
// The check is retried until it succeeds or the container lifetime is over.
type RetryFunc func(resource *dockertest.Resource) func() error

//nolint:gochecknoglobals // containers are shared by all tests of a test binary
var shared = &containers{byName: map[string]*sharedContainer{}}

type containers struct {
	mu     sync.Mutex
	byName map[string]*sharedContainer
}

// sharedContainer counts the tests still using it, the last release purges it.
type sharedContainer struct {
	pool     *dockertest.Pool
	resource *dockertest.Resource
	users    int
}

func (c *containers) release(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sc, ok := c.byName[name]
	if !ok {
		return nil
	}

	sc.users--
	if sc.users > 0 {
		return nil
	}

	delete(c.byName, name)

	if err := sc.pool.Purge(sc.resource); err != nil {
		return fmt.Errorf("%w: could not purge %s: %v", ErrDockerFailure, name, err)
	}

	return nil
}

// GetDockerContainerInstance starts the container named in runOptions once
// and hands it to every caller asking for the same name.
// Each caller has to call the returned cleanup func.
func GetDockerContainerInstance(runOptions *dockertest.RunOptions, retryFunc RetryFunc) (func() error, error) {
	if runOptions == nil || runOptions.Name == "" {
		return nil, ErrMissingInstanceName
	}

	name := "/" + runOptions.Name

	shared.mu.Lock()
	if sc, ok := shared.byName[name]; ok {
		sc.users++
		shared.mu.Unlock()

		return func() error { return shared.release(name) }, nil
	}
	shared.mu.Unlock()

	return StartDockerContainer(runOptions, retryFunc)
}

// StartDockerContainer pulls and runs a container for integration testing, e.g.
// dockertest.RunOptions{Repository: "postgres", Tag: "16", Env: []string{"POSTGRES_PASSWORD=secret"}}.
// It returns once retryFunc could connect to the container.
func StartDockerContainer(runOptions *dockertest.RunOptions, retryFunc RetryFunc) (func() error, error) {
	if runOptions == nil {
		return nil, fmt.Errorf("%w: invalid run options", ErrDockerFailure)
	}

	if retryFunc == nil {
		return nil, fmt.Errorf("%w: invalid retry func", ErrDockerFailure)
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		return nil, fmt.Errorf("%w: could not create pool: %v", ErrDockerFailure, err)
	}

	if err := pool.Client.Ping(); err != nil {
		return nil, fmt.Errorf("%w: docker not reachable: %v", ErrDockerFailure, err)
	}

	resource, err := pool.RunWithOptions(runOptions, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return nil, fmt.Errorf("%w: could not run %s: %v", ErrDockerFailure, runOptions.Repository, err)
	}

	_ = resource.Expire(uint(containerLifetime.Seconds()))

	pool.MaxWait = containerLifetime
	if err := pool.Retry(retryFunc(resource)); err != nil {
		_ = pool.Purge(resource)

		return nil, fmt.Errorf("%w: could not connect to %s: %v", ErrDockerFailure, runOptions.Repository, err)
	}

	name := resource.Container.Name

	shared.mu.Lock()
	shared.byName[name] = &sharedContainer{pool: pool, resource: resource, users: 1}
	shared.mu.Unlock()

	return func() error { return shared.release(name) }, nil
}
