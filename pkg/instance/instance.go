package instance

import "os"

// GetID returns the process instance identifier attached to startup logs.
// DYNO is set by the hosting platform; INSTANCE_ID overrides it elsewhere.
func GetID() string {
	for _, env := range []string{"INSTANCE_ID", "DYNO"} {
		if id := os.Getenv(env); id != "" {
			return id
		}
	}
	return "local"
}
