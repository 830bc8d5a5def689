package caseta

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// Poller periodically invokes commands through the same path as MQTT
// messages, e.g. status to refresh the retained status topic.
type Poller struct {
	cron     *cron.Cron
	interval time.Duration
	commands []string
	logger   Logger
}

// NewPoller schedules each command every interval on facade f.
// A zero interval or empty command list yields a poller that does nothing.
func NewPoller(f *Facade, interval time.Duration, commands []string) (*Poller, error) {
	p := &Poller{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		interval: interval,
		commands: commands,
		logger:   f.logger,
	}
	if interval <= 0 {
		return p, nil
	}

	spec := "@every " + interval.String()
	for _, name := range commands {
		topic := f.topics.Command(name, "")
		if _, err := p.cron.AddFunc(spec, func() {
			_ = f.HandleMessage(topic, nil)
		}); err != nil {
			return nil, fmt.Errorf("scheduling poll %s: %w", name, err)
		}
	}
	return p, nil
}

// Start begins polling.
func (p *Poller) Start() {
	if p.interval <= 0 || len(p.commands) == 0 {
		return
	}
	p.cron.Start()
	p.logger.Info("poller started", "interval", p.interval.String(), "commands", p.commands)
}

// Stop halts polling and waits for a running poll to finish.
func (p *Poller) Stop() {
	<-p.cron.Stop().Done()
}

// Entries returns the number of scheduled polls.
func (p *Poller) Entries() int {
	return len(p.cron.Entries())
}
