package f1

// EventCode is the four character ASCII tag at the start of an event payload.
type EventCode string

const (
	EventCodeSessionStarted EventCode = "SSTA"
	EventCodeSessionEnded   EventCode = "SEND"
	EventCodeFastestLap     EventCode = "FTLP"
	EventCodeRetirement     EventCode = "RTMT"
	EventCodeDRSEnabled     EventCode = "DRSE"
	EventCodeDRSDisabled    EventCode = "DRSD"
	EventCodeTeammateInPits EventCode = "TMPT"
	EventCodeChequeredFlag  EventCode = "CHQF"
	EventCodeRaceWinner     EventCode = "RCWN"
	EventCodePenaltyIssued  EventCode = "PENA"
	EventCodeSpeedTrap      EventCode = "SPTP"

	// EventCodeUnknown is used for any tag not listed above.
	EventCodeUnknown EventCode = "XXXX"
)

const eventCodeSize = 4

// EventDetails is one of EmptyEvent, FastestLap, Retirement, TeammateInPits, RaceWinner,
// Penalty or SpeedTrap.
type EventDetails interface {
	isEventDetails()
}

// EmptyEvent is the details of events that carry no payload, and of unknown events.
type EmptyEvent struct{}

type FastestLap struct {
	VehicleIdx uint8   `json:"VehicleIdx"`
	LapTime    float32 `json:"LapTime"` // seconds
}

type Retirement struct {
	VehicleIdx uint8 `json:"VehicleIdx"`
}

type TeammateInPits struct {
	VehicleIdx uint8 `json:"VehicleIdx"`
}

type RaceWinner struct {
	VehicleIdx uint8 `json:"VehicleIdx"`
}

type Penalty struct {
	PenaltyType      uint8 `json:"PenaltyType"`
	InfringementType uint8 `json:"InfringementType"`
	VehicleIdx       uint8 `json:"VehicleIdx"`
	OtherVehicleIdx  uint8 `json:"OtherVehicleIdx"`
	Time             uint8 `json:"Time"`
	LapNum           uint8 `json:"LapNum"`
	PlacesGained     uint8 `json:"PlacesGained"`
}

type SpeedTrap struct {
	VehicleIdx uint8   `json:"VehicleIdx"`
	Speed      float32 `json:"Speed"` // km/h
}

func (EmptyEvent) isEventDetails()     {}
func (FastestLap) isEventDetails()     {}
func (Retirement) isEventDetails()     {}
func (TeammateInPits) isEventDetails() {}
func (RaceWinner) isEventDetails()     {}
func (Penalty) isEventDetails()        {}
func (SpeedTrap) isEventDetails()      {}

type EventPacket struct {
	Code    EventCode    `json:"Code"`
	RawCode string       `json:"RawCode"`
	Details EventDetails `json:"Details"`
}

func (*EventPacket) PacketType() PacketType {
	return PacketTypeEvent
}

func resolveEventCode(raw string) EventCode {
	switch code := EventCode(raw); code {
	case EventCodeSessionStarted, EventCodeSessionEnded, EventCodeFastestLap, EventCodeRetirement,
		EventCodeDRSEnabled, EventCodeDRSDisabled, EventCodeTeammateInPits, EventCodeChequeredFlag,
		EventCodeRaceWinner, EventCodePenaltyIssued, EventCodeSpeedTrap:
		return code
	default:
		return EventCodeUnknown
	}
}

func readEventPacket(r *reader) *EventPacket {
	raw := string(r.take(eventCodeSize))
	code := resolveEventCode(raw)

	p := &EventPacket{
		Code:    code,
		RawCode: raw,
	}

	switch code {
	case EventCodeFastestLap:
		p.Details = FastestLap{
			VehicleIdx: r.ReadUint8(),
			LapTime:    r.ReadFloat32(),
		}
	case EventCodeRetirement:
		p.Details = Retirement{VehicleIdx: r.ReadUint8()}
	case EventCodeTeammateInPits:
		p.Details = TeammateInPits{VehicleIdx: r.ReadUint8()}
	case EventCodeRaceWinner:
		p.Details = RaceWinner{VehicleIdx: r.ReadUint8()}
	case EventCodePenaltyIssued:
		p.Details = Penalty{
			PenaltyType:      r.ReadUint8(),
			InfringementType: r.ReadUint8(),
			VehicleIdx:       r.ReadUint8(),
			OtherVehicleIdx:  r.ReadUint8(),
			Time:             r.ReadUint8(),
			LapNum:           r.ReadUint8(),
			PlacesGained:     r.ReadUint8(),
		}
	case EventCodeSpeedTrap:
		p.Details = SpeedTrap{
			VehicleIdx: r.ReadUint8(),
			Speed:      r.ReadFloat32(),
		}
	default:
		p.Details = EmptyEvent{}
	}

	return p
}
