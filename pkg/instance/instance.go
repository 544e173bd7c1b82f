package instance

import (
	"os"
	"strings"
)

// GetID identifies the running process in logs. CONDO_INSTANCE_ID wins, then
// the platform dyno name, then "<kind>-0".
func GetID(kind string) string {
	for _, key := range []string{"CONDO_INSTANCE_ID", "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if kind == "" {
		kind = "local"
	}
	return kind + "-0"
}
