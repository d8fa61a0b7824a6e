package f1

const lapDataSize = 53

type PitStatus uint8

const (
	PitStatusNone PitStatus = iota
	PitStatusPitting
	PitStatusInPitArea
	PitStatusUnknown PitStatus = 255
)

type DriverStatus uint8

const (
	DriverStatusInGarage DriverStatus = iota
	DriverStatusFlyingLap
	DriverStatusInLap
	DriverStatusOutLap
	DriverStatusOnTrack
	DriverStatusUnknown DriverStatus = 255
)

type ResultStatus uint8

const (
	ResultStatusInvalid ResultStatus = iota
	ResultStatusInactive
	ResultStatusActive
	ResultStatusFinished
	ResultStatusDisqualified
	ResultStatusNotClassified
	ResultStatusRetired
	ResultStatusUnknown ResultStatus = 255
)

type LapData struct {
	LastLapTime                float32 `json:"LastLapTime"` // seconds
	CurrentLapTime             float32 `json:"CurrentLapTime"`
	Sector1TimeInMS            uint16  `json:"Sector1TimeInMS"`
	Sector2TimeInMS            uint16  `json:"Sector2TimeInMS"`
	BestLapTime                float32 `json:"BestLapTime"`
	BestLapNum                 uint8   `json:"BestLapNum"`
	BestLapSector1TimeInMS     uint16  `json:"BestLapSector1TimeInMS"`
	BestLapSector2TimeInMS     uint16  `json:"BestLapSector2TimeInMS"`
	BestLapSector3TimeInMS     uint16  `json:"BestLapSector3TimeInMS"`
	BestOverallSector1TimeInMS uint16  `json:"BestOverallSector1TimeInMS"`
	BestOverallSector1LapNum   uint8   `json:"BestOverallSector1LapNum"`
	BestOverallSector2TimeInMS uint16  `json:"BestOverallSector2TimeInMS"`
	BestOverallSector2LapNum   uint8   `json:"BestOverallSector2LapNum"`
	BestOverallSector3TimeInMS uint16  `json:"BestOverallSector3TimeInMS"`
	BestOverallSector3LapNum   uint8   `json:"BestOverallSector3LapNum"`
	LapDistance                float32 `json:"LapDistance"` // negative until the line is crossed
	TotalDistance              float32 `json:"TotalDistance"`
	SafetyCarDelta             float32 `json:"SafetyCarDelta"`
	CarPosition                uint8   `json:"CarPosition"`
	CurrentLapNum              uint8   `json:"CurrentLapNum"`
	PitStatusCode              uint8   `json:"PitStatus"`
	Sector                     uint8   `json:"Sector"` // 0 based
	CurrentLapInvalid          uint8   `json:"CurrentLapInvalid"`
	Penalties                  uint8   `json:"Penalties"` // seconds
	GridPosition               uint8   `json:"GridPosition"`
	DriverStatusCode           uint8   `json:"DriverStatus"`
	ResultStatusCode           uint8   `json:"ResultStatus"`
}

func (l LapData) PitStatus() PitStatus {
	if l.PitStatusCode > uint8(PitStatusInPitArea) {
		return PitStatusUnknown
	}

	return PitStatus(l.PitStatusCode)
}

func (l LapData) DriverStatus() DriverStatus {
	if l.DriverStatusCode > uint8(DriverStatusOnTrack) {
		return DriverStatusUnknown
	}

	return DriverStatus(l.DriverStatusCode)
}

func (l LapData) ResultStatus() ResultStatus {
	if l.ResultStatusCode > uint8(ResultStatusRetired) {
		return ResultStatusUnknown
	}

	return ResultStatus(l.ResultStatusCode)
}

func (l LapData) LapInvalid() bool {
	return l.CurrentLapInvalid == 1
}

type LapDataPacket struct {
	Cars [CarCount]LapData `json:"Cars"`
}

func (*LapDataPacket) PacketType() PacketType {
	return PacketTypeLapData
}

func readLapData(r *reader) LapData {
	return LapData{
		LastLapTime:                r.ReadFloat32(),
		CurrentLapTime:             r.ReadFloat32(),
		Sector1TimeInMS:            r.ReadUint16(),
		Sector2TimeInMS:            r.ReadUint16(),
		BestLapTime:                r.ReadFloat32(),
		BestLapNum:                 r.ReadUint8(),
		BestLapSector1TimeInMS:     r.ReadUint16(),
		BestLapSector2TimeInMS:     r.ReadUint16(),
		BestLapSector3TimeInMS:     r.ReadUint16(),
		BestOverallSector1TimeInMS: r.ReadUint16(),
		BestOverallSector1LapNum:   r.ReadUint8(),
		BestOverallSector2TimeInMS: r.ReadUint16(),
		BestOverallSector2LapNum:   r.ReadUint8(),
		BestOverallSector3TimeInMS: r.ReadUint16(),
		BestOverallSector3LapNum:   r.ReadUint8(),
		LapDistance:                r.ReadFloat32(),
		TotalDistance:              r.ReadFloat32(),
		SafetyCarDelta:             r.ReadFloat32(),
		CarPosition:                r.ReadUint8(),
		CurrentLapNum:              r.ReadUint8(),
		PitStatusCode:              r.ReadUint8(),
		Sector:                     r.ReadUint8(),
		CurrentLapInvalid:          r.ReadUint8(),
		Penalties:                  r.ReadUint8(),
		GridPosition:               r.ReadUint8(),
		DriverStatusCode:           r.ReadUint8(),
		ResultStatusCode:           r.ReadUint8(),
	}
}

func readLapDataPacket(r *reader) *LapDataPacket {
	p := &LapDataPacket{}

	for i := range p.Cars {
		p.Cars[i] = readLapData(r)
	}

	return p
}
