package f1

import "github.com/pkg/errors"

const (
	maxMarshalZones          = 21
	maxWeatherForecastSample = 20

	marshalZoneSize           = 5
	weatherForecastSampleSize = 5

	sessionDataSize = 18 + 1 + maxMarshalZones*marshalZoneSize + 3 + maxWeatherForecastSample*weatherForecastSampleSize
)

type SessionType uint8

const (
	SessionTypeUnknown SessionType = iota
	SessionTypePractice1
	SessionTypePractice2
	SessionTypePractice3
	SessionTypeShortPractice
	SessionTypeQualifying1
	SessionTypeQualifying2
	SessionTypeQualifying3
	SessionTypeShortQualifying
	SessionTypeOneShotQualifying
	SessionTypeRace
	SessionTypeRace2
	SessionTypeTimeTrial
)

type Weather uint8

const (
	WeatherClear Weather = iota
	WeatherLightCloud
	WeatherOvercast
	WeatherLightRain
	WeatherHeavyRain
	WeatherStorm
)

type MarshalZone struct {
	ZoneStart float32 `json:"ZoneStart"` // fraction of the lap
	ZoneFlag  int8    `json:"ZoneFlag"`
}

type WeatherForecastSample struct {
	SessionType      SessionType `json:"SessionType"`
	TimeOffset       uint8       `json:"TimeOffset"` // minutes
	Weather          Weather     `json:"Weather"`
	TrackTemperature int8        `json:"TrackTemperature"`
	AirTemperature   int8        `json:"AirTemperature"`
}

type SessionData struct {
	Weather             Weather     `json:"Weather"`
	TrackTemperature    int8        `json:"TrackTemperature"`
	AirTemperature      int8        `json:"AirTemperature"`
	TotalLaps           uint8       `json:"TotalLaps"`
	TrackLength         uint16      `json:"TrackLength"` // metres
	SessionType         SessionType `json:"SessionType"`
	TrackID             int8        `json:"TrackID"` // -1 unknown
	Formula             uint8       `json:"Formula"`
	SessionTimeLeft     uint16      `json:"SessionTimeLeft"`
	SessionDuration     uint16      `json:"SessionDuration"`
	PitSpeedLimit       uint8       `json:"PitSpeedLimit"`
	GamePaused          uint8       `json:"GamePaused"`
	IsSpectating        uint8       `json:"IsSpectating"`
	SpectatorCarIndex   uint8       `json:"SpectatorCarIndex"`
	SLIProNativeSupport uint8       `json:"SLIProNativeSupport"`

	MarshalZones           []MarshalZone           `json:"MarshalZones"`
	SafetyCarStatus        uint8                   `json:"SafetyCarStatus"` // 0 none, 1 full, 2 virtual
	NetworkGame            uint8                   `json:"NetworkGame"`
	WeatherForecastSamples []WeatherForecastSample `json:"WeatherForecastSamples"`
}

func (*SessionData) PacketType() PacketType {
	return PacketTypeSession
}

func (s *SessionData) Paused() bool {
	return s.GamePaused == 1
}

func readSessionData(r *reader) (*SessionData, error) {
	s := &SessionData{
		Weather:             Weather(r.ReadUint8()),
		TrackTemperature:    r.ReadInt8(),
		AirTemperature:      r.ReadInt8(),
		TotalLaps:           r.ReadUint8(),
		TrackLength:         r.ReadUint16(),
		SessionType:         SessionType(r.ReadUint8()),
		TrackID:             r.ReadInt8(),
		Formula:             r.ReadUint8(),
		SessionTimeLeft:     r.ReadUint16(),
		SessionDuration:     r.ReadUint16(),
		PitSpeedLimit:       r.ReadUint8(),
		GamePaused:          r.ReadUint8(),
		IsSpectating:        r.ReadUint8(),
		SpectatorCarIndex:   r.ReadUint8(),
		SLIProNativeSupport: r.ReadUint8(),
	}

	// the zone and forecast arrays have a fixed width on the wire, the counts only say how many
	// of the slots are in use.
	numMarshalZones := int(r.ReadUint8())

	if numMarshalZones > maxMarshalZones {
		return nil, errors.Wrapf(ErrTooManyMarshalZones, "f1: %d marshal zones", numMarshalZones)
	}

	zones := make([]MarshalZone, maxMarshalZones)

	for i := range zones {
		zones[i] = MarshalZone{
			ZoneStart: r.ReadFloat32(),
			ZoneFlag:  r.ReadInt8(),
		}
	}

	s.MarshalZones = zones[:numMarshalZones]
	s.SafetyCarStatus = r.ReadUint8()
	s.NetworkGame = r.ReadUint8()

	numSamples := int(r.ReadUint8())

	if numSamples > maxWeatherForecastSample {
		return nil, errors.Wrapf(ErrTooManyWeatherSample, "f1: %d forecast samples", numSamples)
	}

	samples := make([]WeatherForecastSample, maxWeatherForecastSample)

	for i := range samples {
		samples[i] = WeatherForecastSample{
			SessionType:      SessionType(r.ReadUint8()),
			TimeOffset:       r.ReadUint8(),
			Weather:          Weather(r.ReadUint8()),
			TrackTemperature: r.ReadInt8(),
			AirTemperature:   r.ReadInt8(),
		}
	}

	s.WeatherForecastSamples = samples[:numSamples]

	return s, nil
}
