package caseta

import (
	"context"
	"fmt"

	"github.com/osterwood/lutron-caseta/internal/command"
	"github.com/osterwood/lutron-caseta/internal/leap"
)

// bridgeCommands are forwarded to the bridge session carried in the
// invocation.
func bridgeCommands() []command.Command {
	return []command.Command{
		idCommand("turn_on", BridgeClient.TurnOn),
		idCommand("turn_off", BridgeClient.TurnOff),
		idCommand("raise_cover", BridgeClient.RaiseCover),
		idCommand("lower_cover", BridgeClient.LowerCover),
		idCommand("stop_cover", BridgeClient.StopCover),
		idCommand("tap_button", BridgeClient.TapButton),
		{Name: "activate_scene", Arity: 1, Scope: command.ScopeBridge, StringArgs: true, Handler: activateScene},
		{Name: "set_fan", Arity: 2, Scope: command.ScopeBridge, Handler: setFan},
		{Name: "set_tilt", Arity: 2, Scope: command.ScopeBridge, Handler: setTilt},
		{Name: "is_on", Arity: 1, Scope: command.ScopeBridge, Handler: isOn},
		query("is_connected", func(b BridgeClient) any { return b.IsConnected() }),
		query("get_devices", func(b BridgeClient) any { return b.Devices() }),
		query("get_buttons", func(b BridgeClient) any { return b.Buttons() }),
		query("get_scenes", func(b BridgeClient) any { return b.Scenes() }),
		{Name: "get_device_by_id", Arity: 1, Scope: command.ScopeBridge, Handler: deviceByID},
		{Name: "get_devices_by_domain", Arity: 1, Scope: command.ScopeBridge, StringArgs: true, Handler: devicesByDomain},
	}
}

func bridgeOf(inv command.Invocation) (BridgeClient, error) {
	b, ok := inv.Bridge.(BridgeClient)
	if !ok || b == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBridge, inv.Command)
	}
	return b, nil
}

// idCommand builds a command taking one id and returning nothing.
func idCommand(name string, call func(BridgeClient, context.Context, string) error) command.Command {
	return command.Command{
		Name:  name,
		Arity: 1,
		Scope: command.ScopeBridge,
		Handler: func(ctx context.Context, inv command.Invocation) (any, error) {
			b, err := bridgeOf(inv)
			if err != nil {
				return nil, err
			}
			id, err := inv.StringArg(0)
			if err != nil {
				return nil, err
			}
			return nil, call(b, ctx, id)
		},
	}
}

// query builds a command with no arguments whose result is published.
func query(name string, read func(BridgeClient) any) command.Command {
	return command.Command{
		Name:  name,
		Arity: 0,
		Scope: command.ScopeBridge,
		Handler: func(_ context.Context, inv command.Invocation) (any, error) {
			b, err := bridgeOf(inv)
			if err != nil {
				return nil, err
			}
			return read(b), nil
		},
	}
}

func activateScene(ctx context.Context, inv command.Invocation) (any, error) {
	b, err := bridgeOf(inv)
	if err != nil {
		return nil, err
	}
	id, err := inv.StringArg(0)
	if err != nil {
		return nil, err
	}
	return nil, b.ActivateScene(ctx, id)
}

func setFan(ctx context.Context, inv command.Invocation) (any, error) {
	b, err := bridgeOf(inv)
	if err != nil {
		return nil, err
	}
	id, err := inv.StringArg(0)
	if err != nil {
		return nil, err
	}
	speed, err := inv.StringArg(1)
	if err != nil {
		return nil, err
	}
	return nil, b.SetFan(ctx, id, speed)
}

func setTilt(ctx context.Context, inv command.Invocation) (any, error) {
	b, err := bridgeOf(inv)
	if err != nil {
		return nil, err
	}
	id, err := inv.StringArg(0)
	if err != nil {
		return nil, err
	}
	if _, ok := inv.Arg(1); !ok {
		return nil, fmt.Errorf("%w: set_tilt needs a tilt", command.ErrInvalidArgument)
	}
	tilt, err := inv.IntArg(1, 0)
	if err != nil {
		return nil, err
	}
	return nil, b.SetTilt(ctx, id, tilt)
}

func isOn(_ context.Context, inv command.Invocation) (any, error) {
	b, err := bridgeOf(inv)
	if err != nil {
		return nil, err
	}
	id, err := inv.StringArg(0)
	if err != nil {
		return nil, err
	}
	return b.IsOn(id), nil
}

func deviceByID(_ context.Context, inv command.Invocation) (any, error) {
	b, err := bridgeOf(inv)
	if err != nil {
		return nil, err
	}
	id, err := inv.StringArg(0)
	if err != nil {
		return nil, err
	}
	d, ok := b.Device(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", leap.ErrUnknownDevice, id)
	}
	return d, nil
}

func devicesByDomain(_ context.Context, inv command.Invocation) (any, error) {
	b, err := bridgeOf(inv)
	if err != nil {
		return nil, err
	}
	name, err := inv.StringArg(0)
	if err != nil {
		return nil, err
	}
	domain, ok := leap.ParseDomain(name)
	if !ok {
		return nil, fmt.Errorf("%w: unknown domain %q", command.ErrInvalidArgument, name)
	}
	devices := b.DevicesByDomain(domain)
	if devices == nil {
		devices = []leap.Device{}
	}
	return devices, nil
}
