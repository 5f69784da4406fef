package instance

import (
	"os"

	"github.com/propnest/propnest-client/pkg/env"
)

// GetID returns the client instance identifier: PROPNEST_INSTANCE_ID, then
// the host name, then a default value.
func GetID() string {
	if id := env.Get("PROPNEST_INSTANCE_ID", ""); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "client-0"
}
