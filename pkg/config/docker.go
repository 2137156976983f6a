package config

import (
	"os"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker reports whether the process runs inside a Docker container,
// detected by /.dockerenv. The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// isLoopback matches the host spellings that point at the machine itself.
func isLoopback(host string) bool {
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// ResolveHostForDocker rewrites loopback hosts to host.docker.internal when
// running in Docker, so a containerized runner can reach a SQL Server or
// PostgreSQL instance on the host machine. Other hosts are returned unchanged.
func ResolveHostForDocker(host string) string {
	if IsRunningInDocker() && isLoopback(host) {
		return "host.docker.internal"
	}
	return host
}
