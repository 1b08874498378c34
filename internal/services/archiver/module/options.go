package module

import (
	"time"

	"crewdesk/internal/platform/config"
)

// Options controls archiver behavior. Values may also be read from env
type Options struct {
	BatchSize int
	Interval  time.Duration
	DryRun    bool
}

// FromConfig reads options using ARCHIVER_ prefix
func FromConfig(cfg config.Conf) Options {
	ar := cfg.Prefix("ARCHIVER_")
	return Options{
		BatchSize: ar.MayInt("BATCH_SIZE", 500),
		Interval:  ar.MayDuration("INTERVAL", 30*time.Second),
		DryRun:    ar.MayBool("DRYRUN", false),
	}
}
