package leap

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Communique types.
const (
	ReadRequest      = "ReadRequest"
	CreateRequest    = "CreateRequest"
	SubscribeRequest = "SubscribeRequest"
	ReadResponse     = "ReadResponse"
)

// Message body types that arrive unsolicited after subscribing.
const (
	bodyOneZoneStatus        = "OneZoneStatus"
	bodyMultipleZoneStatus   = "MultipleZoneStatus"
	bodyOneButtonStatusEvent = "OneButtonStatusEvent"
)

// Header is the LEAP message header.
type Header struct {
	ClientTag       string `json:"ClientTag,omitempty"`
	URL             string `json:"Url"`
	StatusCode      string `json:"StatusCode,omitempty"`
	MessageBodyType string `json:"MessageBodyType,omitempty"`
}

// Message is one LEAP communique.
type Message struct {
	CommuniqueType string          `json:"CommuniqueType"`
	Header         Header          `json:"Header"`
	Body           json.RawMessage `json:"Body,omitempty"`
}

// OK reports whether the response carries a 2xx status.
func (m Message) OK() bool {
	return strings.HasPrefix(m.Header.StatusCode, "2")
}

// Decode unmarshals the body into v.
func (m Message) Decode(v any) error {
	if len(m.Body) == 0 {
		return fmt.Errorf("empty body for %s", m.Header.URL)
	}
	return json.Unmarshal(m.Body, v)
}

type ref struct {
	Href string `json:"href"`
}

// ID returns the last path element of the href, e.g. "12" for "/zone/12".
func (r ref) ID() string {
	return hrefID(r.Href)
}

func hrefID(href string) string {
	href = strings.TrimRight(href, "/")
	if i := strings.LastIndex(href, "/"); i >= 0 {
		return href[i+1:]
	}
	return href
}

type deviceDefinition struct {
	Href               string      `json:"href"`
	Name               string      `json:"Name"`
	FullyQualifiedName []string    `json:"FullyQualifiedName"`
	DeviceType         string      `json:"DeviceType"`
	ModelNumber        string      `json:"ModelNumber"`
	SerialNumber       json.Number `json:"SerialNumber"`
	LocalZones         []ref       `json:"LocalZones"`
	ButtonGroups       []ref       `json:"ButtonGroups"`
}

type multipleDeviceDefinition struct {
	Devices []deviceDefinition `json:"Devices"`
}

type buttonDefinition struct {
	Href         string `json:"href"`
	ButtonNumber int    `json:"ButtonNumber"`
	Name         string `json:"Name"`
}

type buttonGroupExpanded struct {
	Href    string             `json:"href"`
	Parent  ref                `json:"Parent"`
	Buttons []buttonDefinition `json:"Buttons"`
}

type multipleButtonGroupExpanded struct {
	ButtonGroupsExpanded []buttonGroupExpanded `json:"ButtonGroupsExpanded"`
}

type zoneStatus struct {
	Href          string `json:"href"`
	Level         *int   `json:"Level"`
	SwitchedLevel string `json:"SwitchedLevel"`
	FanSpeed      string `json:"FanSpeed"`
	Tilt          *int   `json:"Tilt"`
	Zone          ref    `json:"Zone"`
}

type oneZoneStatus struct {
	ZoneStatus zoneStatus `json:"ZoneStatus"`
}

type multipleZoneStatus struct {
	ZoneStatuses []zoneStatus `json:"ZoneStatuses"`
}

type buttonStatus struct {
	Button      ref `json:"Button"`
	ButtonEvent struct {
		EventType string `json:"EventType"`
	} `json:"ButtonEvent"`
}

type oneButtonStatusEvent struct {
	ButtonStatus buttonStatus `json:"ButtonStatus"`
}

type virtualButton struct {
	Href         string `json:"href"`
	Name         string `json:"Name"`
	IsProgrammed bool   `json:"IsProgrammed"`
}

type multipleVirtualButton struct {
	VirtualButtons []virtualButton `json:"VirtualButtons"`
}

type commandBody struct {
	Command command `json:"Command"`
}

type command struct {
	CommandType           string                 `json:"CommandType"`
	Parameter             []commandParameter     `json:"Parameter,omitempty"`
	DimmedLevelParameters *dimmedLevelParameters `json:"DimmedLevelParameters,omitempty"`
	FanSpeedParameters    *fanSpeedParameters    `json:"FanSpeedParameters,omitempty"`
	TiltParameters        *tiltParameters        `json:"TiltParameters,omitempty"`
}

type commandParameter struct {
	Type  string `json:"Type"`
	Value any    `json:"Value"`
}

type dimmedLevelParameters struct {
	Level    int    `json:"Level"`
	FadeTime string `json:"FadeTime"`
}

type fanSpeedParameters struct {
	FanSpeed string `json:"FanSpeed"`
}

type tiltParameters struct {
	Tilt int `json:"Tilt"`
}

// formatDuration renders d as the hh:mm:ss string LEAP expects.
func formatDuration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}
