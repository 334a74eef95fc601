// services/watchdog/service.go
package watchdog

import (
	"context"
	"time"

	"watchdog-go/bus"
	"watchdog-go/drivers/wdt"
	"watchdog-go/errcode"
	"watchdog-go/services/internal/util"
	"watchdog-go/types"
	"watchdog-go/x/mathx"
	"watchdog-go/x/timex"
)

var (
	topicConfigWatchdog = bus.T("config", "watchdog")
	topicControl        = bus.T("hal", "watchdog", "control", "+")
	topicState          = bus.T("hal", "watchdog", "state")
)

// Dog is the method set of *wdt.Watchdog[V] the service drives.
type Dog interface {
	Start() error
	Feed()
	SetTimeout(timeoutMs uint32) error
	SetWindow(windowMs uint32) error
	SetInputFreq(hz uint32)
	Timeout() uint32
	Window() uint32
	InputFreq() uint32
	Setting() wdt.Setting
	State() wdt.State
}

// Service owns one watchdog and feeds it from a timer. Feeding stops when
// the service context ends, so a hung service loop resets the device.
type Service struct {
	dog  Dog
	conn *bus.Connection

	intervalMs uint32 // configured feed interval, 0 derives it
	paused     bool
	feeds      uint64
	lastErr    errcode.Code
}

func New(dog Dog) *Service { return &Service{dog: dog} }

// Start the watchdog service.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) error {
	if s.dog == nil {
		return errcode.NotReady
	}
	s.conn = conn
	go s.serviceLoop(ctx)
	return nil
}

func (s *Service) serviceLoop(ctx context.Context) {
	cfgSub := s.conn.Subscribe(topicConfigWatchdog)
	defer s.conn.Unsubscribe(cfgSub)
	ctrlSub := s.conn.Subscribe(topicControl)
	defer s.conn.Unsubscribe(ctrlSub)

	feed := time.NewTimer(timex.Ms(s.feedIntervalMs()))
	defer feed.Stop()

	s.publishState()

	for {
		select {
		case <-ctx.Done():
			println("Info: watchdog service stopping")
			return

		case <-feed.C:
			if s.dog.State() == wdt.Running && !s.paused {
				s.dog.Feed()
				s.feeds++
			}
			feed.Reset(timex.Ms(s.feedIntervalMs()))

		case msg := <-cfgSub.Channel():
			var cfg types.WatchdogConfig
			if err := util.DecodeJSON(msg.Payload, &cfg); err != nil {
				println("Error:", "watchdog config decode failed:", err.Error())
				s.failCode(errcode.InvalidPayload)
				continue
			}
			if err := s.applyConfig(cfg); err != nil {
				println("Error:", "watchdog config apply failed:", err.Error())
			}
			resetTimer(feed, timex.Ms(s.feedIntervalMs()))
			s.publishState()

		case msg := <-ctrlSub.Channel():
			// hal/watchdog/control/<verb>
			verb, _ := msg.Topic[len(msg.Topic)-1].(string)
			if err := s.control(verb, msg.Payload); err != nil {
				println("Warn:", "watchdog", verb, "failed:", err.Error())
				s.replyErr(msg, errcode.Of(err))
			} else {
				s.replyOK(msg)
			}
			resetTimer(feed, timex.Ms(s.feedIntervalMs()))
			s.publishState()
		}
	}
}

// applyConfig applies the input clock, timeout and window in that order, then
// starts the watchdog when asked to.
func (s *Service) applyConfig(cfg types.WatchdogConfig) error {
	if cfg.InputHz != 0 {
		s.dog.SetInputFreq(cfg.InputHz)
	}
	timeout := cfg.TimeoutMs
	if timeout == 0 {
		timeout = s.dog.Timeout()
	}
	if err := s.dog.SetTimeout(timeout); err != nil {
		return s.fail("set_timeout", err)
	}
	if cfg.WindowMs != 0 || s.dog.Window() != 0 {
		if err := s.dog.SetWindow(cfg.WindowMs); err != nil {
			return s.fail("set_window", err)
		}
	}

	// An interval outside the feed window falls back to the derived one; the
	// watchdog is still armed with a safe interval.
	s.intervalMs = cfg.FeedIntervalMs
	badInterval := s.intervalMs != 0 && !intervalFits(s.intervalMs, s.dog.Setting())
	if badInterval {
		println("Warn:", "watchdog feed_interval_ms", s.intervalMs, "outside feed window, using", s.derivedIntervalMs())
		s.intervalMs = 0
	}

	if cfg.Autostart && s.dog.State() != wdt.Running {
		if err := s.dog.Start(); err != nil {
			return s.fail("start", err)
		}
		println("Info:", "watchdog started, timeout", s.dog.Setting().TimeoutMs, "ms")
	}
	if badInterval {
		return s.failCode(errcode.InvalidParams)
	}
	s.lastErr = ""
	return nil
}

func (s *Service) control(verb string, payload any) error {
	switch verb {
	case "start":
		// A second start is a no-op here; the driver does not guard it.
		if s.dog.State() == wdt.Running {
			return nil
		}
		if err := s.dog.Start(); err != nil {
			return s.fail("start", err)
		}
	case "feed":
		s.dog.Feed()
		s.feeds++
	case "set_timeout":
		var p types.SetTimeout
		if err := util.DecodeJSON(payload, &p); err != nil {
			return s.failCode(errcode.InvalidPayload)
		}
		if p.TimeoutMs == 0 {
			return s.failCode(errcode.InvalidParams)
		}
		if err := s.dog.SetTimeout(p.TimeoutMs); err != nil {
			return s.fail("set_timeout", err)
		}
	case "set_window":
		var p types.SetWindow
		if err := util.DecodeJSON(payload, &p); err != nil {
			return s.failCode(errcode.InvalidPayload)
		}
		if err := s.dog.SetWindow(p.WindowMs); err != nil {
			return s.fail("set_window", err)
		}
	case "pause_feed":
		var p types.PauseFeed
		if err := util.DecodeJSON(payload, &p); err != nil {
			return s.failCode(errcode.InvalidPayload)
		}
		s.paused = p.Paused
		if p.Paused {
			println("Warn:", "watchdog feeding paused")
		}
	default:
		return s.failCode(errcode.Unsupported)
	}
	s.lastErr = ""
	return nil
}

// fail records the code of a driver error and returns it wrapped with op.
func (s *Service) fail(op string, err error) error {
	err = errcode.Wrap(op, err)
	s.lastErr = errcode.Of(err)
	return err
}

func (s *Service) failCode(c errcode.Code) error {
	s.lastErr = c
	return c
}

// feedIntervalMs is the configured interval while it still fits the feed
// window, otherwise the derived one.
func (s *Service) feedIntervalMs() uint32 {
	if s.intervalMs != 0 && intervalFits(s.intervalMs, s.dog.Setting()) {
		return s.intervalMs
	}
	return s.derivedIntervalMs()
}

// derivedIntervalMs is the midpoint between the earliest accepted feed and
// the effective timeout.
func (s *Service) derivedIntervalMs() uint32 {
	set := s.dog.Setting()
	return mathx.Max((set.WindowMs+set.TimeoutMs)/2, 1)
}

// intervalFits reports whether feeding every ms lands inside the window:
// no earlier than WindowMs and strictly before the effective timeout.
func intervalFits(ms uint32, set wdt.Setting) bool {
	return ms >= set.WindowMs && ms < set.TimeoutMs
}

func (s *Service) publishState() {
	set := s.dog.Setting()
	st := types.WatchdogState{
		Level:          s.dog.State().String(),
		TimeoutMs:      s.dog.Timeout(),
		EffectiveMs:    set.TimeoutMs,
		WindowMs:       s.dog.Window(),
		InputHz:        s.dog.InputFreq(),
		Prescaler:      set.Prescaler,
		Reload:         set.Reload,
		FeedIntervalMs: s.feedIntervalMs(),
		Feeds:          s.feeds,
		Paused:         s.paused,
		Error:          string(s.lastErr),
		TS:             timex.NowMs(),
	}
	s.conn.Publish(s.conn.NewMessage(topicState, st, true))
}

func (s *Service) replyOK(req *bus.Message) {
	if len(req.ReplyTo) == 0 {
		return
	}
	s.conn.Reply(req, types.OKReply{OK: true}, false)
}

func (s *Service) replyErr(req *bus.Message, c errcode.Code) {
	if len(req.ReplyTo) == 0 {
		return
	}
	s.conn.Reply(req, types.ErrorReply{OK: false, Error: string(c)}, false)
}
