// internal/workers/bloodrequest/trigger-alert/config.go
package triggeralert

import "time"

type Config struct {
	Timeout time.Duration
}
