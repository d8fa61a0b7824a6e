package f1

// Wheel arrays are always ordered rear left, rear right, front left, front right.
const (
	RearLeft = iota
	RearRight
	FrontLeft
	FrontRight
)

const (
	carTelemetryDataSize    = 58
	carTelemetryTrailerSize = 7
)

type CarTelemetryData struct {
	Speed                   uint16     `json:"Speed"` // km/h
	Throttle                float32    `json:"Throttle"`
	Steer                   float32    `json:"Steer"`
	Brake                   float32    `json:"Brake"`
	Clutch                  uint8      `json:"Clutch"`
	Gear                    int8       `json:"Gear"` // -1 reverse, 0 neutral
	EngineRPM               uint16     `json:"EngineRPM"`
	DRS                     uint8      `json:"DRS"`
	RevLightsPercent        uint8      `json:"RevLightsPercent"`
	BrakesTemperature       [4]uint16  `json:"BrakesTemperature"`
	TyresSurfaceTemperature [4]uint8   `json:"TyresSurfaceTemperature"`
	TyresInnerTemperature   [4]uint8   `json:"TyresInnerTemperature"`
	EngineTemperature       uint16     `json:"EngineTemperature"`
	TyresPressure           [4]float32 `json:"TyresPressure"`
	SurfaceType             [4]uint8   `json:"SurfaceType"`
}

func (c CarTelemetryData) DRSOpen() bool {
	return c.DRS == 1
}

type CarTelemetryPacket struct {
	Cars [CarCount]CarTelemetryData `json:"Cars"`

	ButtonStatus                 uint32 `json:"ButtonStatus"`
	MFDPanelIndex                uint8  `json:"MFDPanelIndex"` // 255 when closed
	MFDPanelIndexSecondaryPlayer uint8  `json:"MFDPanelIndexSecondaryPlayer"`
	SuggestedGear                int8   `json:"SuggestedGear"` // 0 when no gear is suggested
}

func (*CarTelemetryPacket) PacketType() PacketType {
	return PacketTypeCarTelemetry
}

func readCarTelemetryData(r *reader) CarTelemetryData {
	return CarTelemetryData{
		Speed:                   r.ReadUint16(),
		Throttle:                r.ReadFloat32(),
		Steer:                   r.ReadFloat32(),
		Brake:                   r.ReadFloat32(),
		Clutch:                  r.ReadUint8(),
		Gear:                    r.ReadInt8(),
		EngineRPM:               r.ReadUint16(),
		DRS:                     r.ReadUint8(),
		RevLightsPercent:        r.ReadUint8(),
		BrakesTemperature:       r.ReadUint16x4(),
		TyresSurfaceTemperature: r.ReadUint8x4(),
		TyresInnerTemperature:   r.ReadUint8x4(),
		EngineTemperature:       r.ReadUint16(),
		TyresPressure:           r.ReadFloat32x4(),
		SurfaceType:             r.ReadUint8x4(),
	}
}

func readCarTelemetryPacket(r *reader) *CarTelemetryPacket {
	p := &CarTelemetryPacket{}

	for i := range p.Cars {
		p.Cars[i] = readCarTelemetryData(r)
	}

	p.ButtonStatus = r.ReadUint32()
	p.MFDPanelIndex = r.ReadUint8()
	p.MFDPanelIndexSecondaryPlayer = r.ReadUint8()
	p.SuggestedGear = r.ReadInt8()

	return p
}
