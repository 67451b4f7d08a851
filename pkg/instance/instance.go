package instance

import (
	"os"

	"github.com/angelmondragon/posrelay/pkg/env"
)

// GetID identifies the running process in logs. It prefers an explicit
// POSRELAY_INSTANCE_ID, then the platform dyno name, then the hostname.
func GetID() string {
	if id := env.Get("POSRELAY_INSTANCE_ID", env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
