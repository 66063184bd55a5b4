package config

import (
	"os"
	"regexp"
	"sync"
)

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// Host positions inside postgres/sqlserver URLs, key-value DSNs and mysql
// tcp(...) addresses.
var localhostPattern = regexp.MustCompile(`(@|//|\(|host=|server=)(localhost|127\.0\.0\.1)\b`)

// IsRunningInDocker returns true if the application is running inside a Docker container.
// Detection is based on the presence of /.dockerenv file which exists in all Docker containers.
// The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveDSNForDocker points a localhost DSN at the Docker host when running
// inside a container, so erdctl can reach a database published on the host.
// Outside Docker the DSN is returned unchanged.
func ResolveDSNForDocker(dsn string) string {
	if !IsRunningInDocker() {
		return dsn
	}
	return rewriteLocalhost(dsn)
}

func rewriteLocalhost(dsn string) string {
	return localhostPattern.ReplaceAllString(dsn, "${1}host.docker.internal")
}
