// Package config holds the engine's administrative configuration record.
package config

// Config identifies the administrators, the token being vested and the
// release start time. A zero StartTime means release has not started.
type Config struct {
	Owner       string `json:"owner"`
	Treasury    string `json:"treasury"`
	TargetToken string `json:"target_token"`
	StartTime   uint64 `json:"start_time"`
}

// Started reports whether the release clock is running.
func (c *Config) Started() bool {
	return c.StartTime != 0
}
