package wdt

import "time"

// Config controls non-hardware behaviour of a variant. All fields are optional.
type Config struct {
	// InputHz overrides the variant's default input clock.
	InputHz uint32
	// OpTimeout bounds waits on update-pending flags. Default 100 ms.
	OpTimeout time.Duration
	// PollInterval is slept between status reads while waiting. Zero spins.
	PollInterval time.Duration
}

func (c Config) withDefaults(inputHz uint32) Config {
	if c.InputHz == 0 {
		c.InputHz = inputHz
	}
	if c.OpTimeout <= 0 {
		c.OpTimeout = DefaultOpTimeout
	}
	if c.PollInterval < 0 {
		c.PollInterval = 0
	}
	return c
}

// waitClear polls sr until every bit in mask is clear or the timeout elapses.
func waitClear(sr Register, mask uint32, cfg Config) error {
	if sr.Get()&mask == 0 {
		return nil
	}
	deadline := time.Now().Add(cfg.OpTimeout)
	for sr.Get()&mask != 0 {
		if time.Now().After(deadline) {
			return ErrHardwareBusy
		}
		if cfg.PollInterval > 0 {
			time.Sleep(cfg.PollInterval)
		}
	}
	return nil
}
