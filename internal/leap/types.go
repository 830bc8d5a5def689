package leap

// Domain groups device types by the capability the bridge exposes.
type Domain string

// Device domains.
const (
	DomainLight  Domain = "light"
	DomainSwitch Domain = "switch"
	DomainFan    Domain = "fan"
	DomainCover  Domain = "cover"
	DomainSensor Domain = "sensor"
	DomainOther  Domain = "other"
)

// ParseDomain returns the Domain named by s, or false when s names none.
func ParseDomain(s string) (Domain, bool) {
	switch d := Domain(s); d {
	case DomainLight, DomainSwitch, DomainFan, DomainCover, DomainSensor, DomainOther:
		return d, true
	}
	return "", false
}

// deviceDomains maps LEAP device types to their domain.
var deviceDomains = map[string]Domain{
	"WallDimmer":                     DomainLight,
	"PlugInDimmer":                   DomainLight,
	"InLineDimmer":                   DomainLight,
	"SunnataDimmer":                  DomainLight,
	"TempInWallPaddleDimmer":         DomainLight,
	"WallDimmerWithPreset":           DomainLight,
	"Dimmed":                         DomainLight,
	"WallSwitch":                     DomainSwitch,
	"OutdoorPlugInSwitch":            DomainSwitch,
	"PlugInSwitch":                   DomainSwitch,
	"InLineSwitch":                   DomainSwitch,
	"PowPakSwitch":                   DomainSwitch,
	"SunnataSwitch":                  DomainSwitch,
	"TempInWallPaddleSwitch":         DomainSwitch,
	"Switched":                       DomainSwitch,
	"CasetaFanSpeedController":       DomainFan,
	"MaestroFanSpeedController":      DomainFan,
	"FanSpeed":                       DomainFan,
	"SerenaHoneycombShade":           DomainCover,
	"SerenaRollerShade":              DomainCover,
	"TriathlonHoneycombShade":        DomainCover,
	"TriathlonRollerShade":           DomainCover,
	"QsWirelessShade":                DomainCover,
	"QsWirelessHorizontalSheerBlind": DomainCover,
	"QsWirelessWoodBlind":            DomainCover,
	"RightDrawDrape":                 DomainCover,
	"Shade":                          DomainCover,
	"SerenaTiltOnlyWoodBlind":        DomainCover,
	"Pico1Button":                    DomainSensor,
	"Pico2Button":                    DomainSensor,
	"Pico2ButtonRaiseLower":          DomainSensor,
	"Pico3Button":                    DomainSensor,
	"Pico3ButtonRaiseLower":          DomainSensor,
	"Pico4Button":                    DomainSensor,
	"Pico4ButtonScene":               DomainSensor,
	"Pico4ButtonZone":                DomainSensor,
	"Pico4Button2Group":              DomainSensor,
	"FourGroupRemote":                DomainSensor,
	"SeeTouchTabletopKeypad":         DomainSensor,
	"SunnataKeypad":                  DomainSensor,
	"SeeTouchKeypad":                 DomainSensor,
	"HomeownerKeypad":                DomainSensor,
}

// DomainOf returns the domain for a LEAP device type.
func DomainOf(deviceType string) Domain {
	if d, ok := deviceDomains[deviceType]; ok {
		return d
	}
	return DomainOther
}

// Device is a bridge device with its current zone state.
type Device struct {
	ID       string `json:"device_id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Domain   Domain `json:"domain"`
	Model    string `json:"model,omitempty"`
	Serial   string `json:"serial,omitempty"`
	Zone     string `json:"zone,omitempty"`
	Level    int    `json:"current_state"`
	FanSpeed string `json:"fan_speed,omitempty"`
	Tilt     *int   `json:"tilt,omitempty"`
}

// Button is one button of a keypad or Pico remote.
type Button struct {
	ID     string `json:"button_id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Number int    `json:"button_number"`
	Group  string `json:"button_group"`
	Parent string `json:"parent_device"`
	State  string `json:"current_state"`
}

// Scene is a programmed bridge scene (virtual button).
type Scene struct {
	ID   string `json:"scene_id"`
	Name string `json:"name"`
}

// ButtonEvent is a press or release reported for a button.
type ButtonEvent struct {
	ButtonID string
	Type     string
}

// Button command types.
const (
	PressAndRelease = "PressAndRelease"
	PressAndHold    = "PressAndHold"
	Release         = "Release"
)

// Fan speeds accepted by SetFan.
var FanSpeeds = []string{"Off", "Low", "Medium", "MediumHigh", "High"}
