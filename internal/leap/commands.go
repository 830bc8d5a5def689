package leap

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Devices returns the device inventory sorted by name.
func (c *Client) Devices() []Device {
	c.invMu.RLock()
	out := make([]Device, 0, len(c.devices))
	for _, d := range c.devices {
		out = append(out, *d)
	}
	c.invMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// DevicesByDomain returns the devices of one domain.
func (c *Client) DevicesByDomain(domain Domain) []Device {
	var out []Device
	for _, d := range c.Devices() {
		if d.Domain == domain {
			out = append(out, d)
		}
	}
	return out
}

// Device returns one device by id.
func (c *Client) Device(id string) (Device, bool) {
	c.invMu.RLock()
	defer c.invMu.RUnlock()
	d, ok := c.devices[id]
	if !ok {
		return Device{}, false
	}
	return *d, true
}

// Buttons returns the button inventory sorted by name and number.
func (c *Client) Buttons() []Button {
	c.invMu.RLock()
	out := make([]Button, 0, len(c.buttons))
	for _, b := range c.buttons {
		out = append(out, *b)
	}
	c.invMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].Number != out[j].Number {
			return out[i].Number < out[j].Number
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Button returns one button by id.
func (c *Client) Button(id string) (Button, bool) {
	c.invMu.RLock()
	defer c.invMu.RUnlock()
	b, ok := c.buttons[id]
	if !ok {
		return Button{}, false
	}
	return *b, true
}

// Scenes returns the programmed scenes sorted by id.
func (c *Client) Scenes() []Scene {
	c.invMu.RLock()
	out := make([]Scene, 0, len(c.scenes))
	for _, s := range c.scenes {
		out = append(out, s)
	}
	c.invMu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IsOn reports whether the device's level is above zero.
func (c *Client) IsOn(id string) bool {
	d, ok := c.Device(id)
	return ok && d.Level > 0
}

// SetValue drives a zone to level (0-100), fading over fade when non-zero.
func (c *Client) SetValue(ctx context.Context, id string, level int, fade time.Duration) error {
	level = max(0, min(100, level))

	cmd := command{
		CommandType: "GoToLevel",
		Parameter:   []commandParameter{{Type: "Level", Value: level}},
	}
	if fade > 0 {
		cmd = command{
			CommandType: "GoToDimmedLevel",
			DimmedLevelParameters: &dimmedLevelParameters{
				Level:    level,
				FadeTime: formatDuration(fade),
			},
		}
	}
	return c.zoneCommand(ctx, id, cmd)
}

// TurnOn sets the device to full output.
func (c *Client) TurnOn(ctx context.Context, id string) error {
	return c.SetValue(ctx, id, 100, 0)
}

// TurnOff sets the device to zero output.
func (c *Client) TurnOff(ctx context.Context, id string) error {
	return c.SetValue(ctx, id, 0, 0)
}

// SetFan sets a fan controller to one of FanSpeeds.
func (c *Client) SetFan(ctx context.Context, id, speed string) error {
	canonical := ""
	for _, s := range FanSpeeds {
		if strings.EqualFold(s, speed) {
			canonical = s
			break
		}
	}
	if canonical == "" {
		return fmt.Errorf("%w: fan speed %q", ErrRequestFailed, speed)
	}
	return c.zoneCommand(ctx, id, command{
		CommandType:        "GoToFanSpeed",
		FanSpeedParameters: &fanSpeedParameters{FanSpeed: canonical},
	})
}

// SetTilt sets a blind's tilt (0-100).
func (c *Client) SetTilt(ctx context.Context, id string, tilt int) error {
	return c.zoneCommand(ctx, id, command{
		CommandType:    "GoToTilt",
		TiltParameters: &tiltParameters{Tilt: max(0, min(100, tilt))},
	})
}

// RaiseCover starts raising a shade.
func (c *Client) RaiseCover(ctx context.Context, id string) error {
	return c.zoneCommand(ctx, id, command{CommandType: "Raise"})
}

// LowerCover starts lowering a shade.
func (c *Client) LowerCover(ctx context.Context, id string) error {
	return c.zoneCommand(ctx, id, command{CommandType: "Lower"})
}

// StopCover stops a moving shade.
func (c *Client) StopCover(ctx context.Context, id string) error {
	return c.zoneCommand(ctx, id, command{CommandType: "Stop"})
}

// ActivateScene presses a scene's virtual button.
func (c *Client) ActivateScene(ctx context.Context, sceneID string) error {
	_, err := c.request(ctx, CreateRequest, "/virtualbutton/"+sceneID+"/commandprocessor",
		commandBody{Command: command{CommandType: PressAndRelease}})
	return err
}

// ButtonCommand sends PressAndRelease, PressAndHold or Release to a button.
func (c *Client) ButtonCommand(ctx context.Context, buttonID, commandType string) error {
	switch commandType {
	case PressAndRelease, PressAndHold, Release:
	default:
		return fmt.Errorf("%w: button command %q", ErrRequestFailed, commandType)
	}
	_, err := c.request(ctx, CreateRequest, "/button/"+buttonID+"/commandprocessor",
		commandBody{Command: command{CommandType: commandType}})
	return err
}

// TapButton presses and releases a button.
func (c *Client) TapButton(ctx context.Context, buttonID string) error {
	return c.ButtonCommand(ctx, buttonID, PressAndRelease)
}

func (c *Client) zoneCommand(ctx context.Context, id string, cmd command) error {
	d, ok := c.Device(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	if d.Zone == "" {
		return fmt.Errorf("%w: %s has no zone", ErrUnknownDevice, id)
	}
	_, err := c.request(ctx, CreateRequest, "/zone/"+d.Zone+"/commandprocessor", commandBody{Command: cmd})
	return err
}
