package caseta

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/osterwood/lutron-caseta/internal/command"
	"github.com/osterwood/lutron-caseta/internal/infrastructure/mqtt"
	"github.com/osterwood/lutron-caseta/internal/leap"
)

// Full brightness for an "ON" set_value.
const levelOn = 100

// serviceCommands are the operations the facade implements itself.
func (f *Facade) serviceCommands() []command.Command {
	return []command.Command{
		{Name: "set_value", Arity: 3, Scope: command.ScopeService, Handler: f.setValue},
		{Name: "click", Arity: 1, Scope: command.ScopeService, Handler: f.buttonCommand(leap.PressAndRelease)},
		{Name: "press", Arity: 1, Scope: command.ScopeService, Handler: f.buttonCommand(leap.PressAndHold)},
		{Name: "release", Arity: 1, Scope: command.ScopeService, Handler: f.buttonCommand(leap.Release)},
		{Name: "refresh", Arity: 1, Scope: command.ScopeService, Handler: f.refresh},
		{Name: "status", Arity: 0, Scope: command.ScopeService, Handler: f.status},
	}
}

// setValue handles set_value(device_id, value, fade).
//
// value is "ON", "OFF" or a level; a two-element list carries (level, fade).
// fade is in seconds.
func (f *Facade) setValue(ctx context.Context, inv command.Invocation) (any, error) {
	id, err := inv.StringArg(0)
	if err != nil {
		return nil, err
	}
	value, ok := inv.Arg(1)
	if !ok {
		return nil, fmt.Errorf("%w: set_value needs a value", command.ErrInvalidArgument)
	}
	fade, _ := inv.Arg(2)

	if pair, ok := value.([]any); ok {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: set_value list must be [level, fade]", command.ErrInvalidArgument)
		}
		value, fade = pair[0], pair[1]
	}

	level, err := parseLevel(value)
	if err != nil {
		return nil, err
	}
	fadeTime, err := parseFade(fade)
	if err != nil {
		return nil, err
	}

	f.logger.Info("set value", "device", inv.Target, "id", id, "level", level, "fade", fadeTime.String())
	return nil, f.bridge.SetValue(ctx, id, level, fadeTime)
}

func parseLevel(v any) (int, error) {
	if s, ok := v.(string); ok {
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "ON":
			return levelOn, nil
		case "OFF":
			return 0, nil
		}
	}
	level, err := command.AsInt(v)
	if err != nil {
		return 0, fmt.Errorf("%w: level %v", command.ErrInvalidArgument, v)
	}
	return level, nil
}

func parseFade(v any) (time.Duration, error) {
	if v == nil {
		return 0, nil
	}
	seconds, err := command.AsFloat(v)
	if err != nil {
		return 0, fmt.Errorf("%w: fade %v", command.ErrInvalidArgument, v)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("%w: negative fade", command.ErrInvalidArgument)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// buttonCommand handles click, press and release on a button id.
func (f *Facade) buttonCommand(commandType string) command.Handler {
	return func(ctx context.Context, inv command.Invocation) (any, error) {
		id, err := inv.StringArg(0)
		if err != nil {
			return nil, err
		}
		f.logger.Info("button command", "button", inv.Target, "id", id, "action", commandType)
		return nil, f.bridge.ButtonCommand(ctx, id, commandType)
	}
}

// refresh reloads inventory and state when its flag is truthy.
func (f *Facade) refresh(ctx context.Context, inv command.Invocation) (any, error) {
	flag, _ := inv.Arg(0)
	if !command.IsTruthy(flag) {
		f.logger.Debug("refresh not requested", "flag", flag)
		return nil, nil
	}
	f.logger.Info("refreshing bridge state")
	if err := f.bridge.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return nil, nil
}

// status reports the bridge session state.
func (f *Facade) status(context.Context, command.Invocation) (any, error) {
	if f.bridge.IsConnected() {
		return mqtt.StatusConnected, nil
	}
	return mqtt.StatusDisconnected, nil
}
