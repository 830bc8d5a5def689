package caseta

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/osterwood/lutron-caseta/internal/command"
	"github.com/osterwood/lutron-caseta/internal/loop"
)

// queuedCommand is a resolved command waiting for the command worker.
type queuedCommand struct {
	cmd command.Command
	inv command.Invocation
}

// HandleMessage accepts an inbound MQTT command. It is safe to call from
// any goroutine; resolution happens on the loop. It satisfies
// mqtt.MessageHandler and never fails the delivery.
//
// It never blocks: paho delivers messages and acknowledgements on the same
// goroutine, and the loop may itself be waiting on a publish acknowledgement.
// When the loop queue is full the command is dropped and counted.
func (f *Facade) HandleMessage(topic string, payload []byte) error {
	if f.State() == StateClosed {
		return nil
	}
	data := append([]byte(nil), payload...)
	switch err := f.exec.TryPost(func() { f.dispatch(topic, data) }); {
	case err == nil:
	case errors.Is(err, loop.ErrQueueFull):
		f.metrics.CommandDropped()
		f.logger.Warn("dropping command, loop queue full", "topic", topic)
	default:
		f.logger.Warn("dropping command, loop stopped", "topic", topic, "error", err)
	}
	return nil
}

// dispatch resolves a command on the loop and queues its handler for the
// command worker.
func (f *Facade) dispatch(topic string, payload []byte) {
	inv, err := f.resolver.Resolve(topic, payload)
	if err != nil {
		if errors.Is(err, command.ErrUnknownCommand) {
			f.metrics.UnknownCommand()
			f.logger.Warn("unknown command", "topic", topic, "error", err)
			return
		}
		f.logger.Warn("invalid command", "topic", topic, "error", err)
		return
	}
	cmd, _ := f.resolver.Table().Lookup(inv.Command)
	f.metrics.CommandResolved(inv.Command)

	f.inflightMu.Lock()
	defer f.inflightMu.Unlock()
	if f.closed {
		return
	}
	f.inflight.Add(1)
	select {
	case f.queue <- queuedCommand{cmd: cmd, inv: inv}:
	default:
		// The loop must not wait on the worker, which may be posting to it.
		f.inflight.Done()
		f.metrics.CommandDropped()
		f.logger.Warn("dropping command, command queue full", "command", inv.Command, "target", inv.Target)
	}
}

// runCommands executes queued commands in arrival order until Close.
func (f *Facade) runCommands() {
	defer close(f.workerDone)
	for qc := range f.queue {
		f.execute(qc.cmd, qc.inv)
	}
}

func (f *Facade) execute(cmd command.Command, inv command.Invocation) {
	defer f.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			f.metrics.CommandFailed(inv.Command)
			f.logger.Error("command handler panic recovered", "command", inv.Command, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(f.ctx, f.commandTimeout)
	defer cancel()

	result, err := cmd.Handler(ctx, inv)
	if err != nil {
		f.metrics.CommandFailed(inv.Command)
		f.logger.Error("command failed",
			"command", inv.Command,
			"target", inv.Target,
			"device_id", inv.DeviceID,
			"error", err,
		)
		return
	}
	if result == nil {
		return
	}
	f.post(func() { f.publishResult(inv.Command, result) })
}

// publishResult publishes a handler result to the feedback topic named after
// the command. Runs on the loop.
func (f *Facade) publishResult(name string, result any) {
	payload, err := formatResult(result)
	if err != nil {
		f.logger.Error("encoding command result", "command", name, "error", err)
		return
	}
	f.feedback.Publish(name, payload)
}

// formatResult renders strings and numbers as text, everything else as JSON.
func formatResult(result any) (string, error) {
	switch v := result.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	}
	data, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
