// internal/workers/bloodrequest/submit-blood-request/config.go
package submitbloodrequest

import "time"

type Config struct {
	Timeout time.Duration
}
