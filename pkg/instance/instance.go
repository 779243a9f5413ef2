package instance

import (
	"os"

	"github.com/nftennis/nftennis-backend/pkg/env"
)

// GetID identifies this process in logs: NFTENNIS_INSTANCE_ID, then the
// platform's DYNO, then the hostname.
func GetID() string {
	if id := env.First("", "NFTENNIS_INSTANCE_ID", "DYNO"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
