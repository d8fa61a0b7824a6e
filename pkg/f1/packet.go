// Package f1 decodes the UDP telemetry packets broadcast by the F1 2020 game.
//
// Every datagram starts with a 24 byte Header. The rest of the datagram is interpreted according
// to the header's packet id. All multi-byte fields are little-endian.
package f1

import (
	"fmt"

	"github.com/pkg/errors"
)

// PacketType identifies the payload that follows the header.
type PacketType uint8

const (
	PacketTypeMotion              PacketType = 0
	PacketTypeSession             PacketType = 1
	PacketTypeLapData             PacketType = 2
	PacketTypeEvent               PacketType = 3
	PacketTypeParticipants        PacketType = 4
	PacketTypeCarSetups           PacketType = 5
	PacketTypeCarTelemetry        PacketType = 6
	PacketTypeCarStatus           PacketType = 7
	PacketTypeFinalClassification PacketType = 8
	PacketTypeLobbyInfo           PacketType = 9
)

func (t PacketType) String() string {
	switch t {
	case PacketTypeMotion:
		return "motion"
	case PacketTypeSession:
		return "session"
	case PacketTypeLapData:
		return "lap_data"
	case PacketTypeEvent:
		return "event"
	case PacketTypeParticipants:
		return "participants"
	case PacketTypeCarSetups:
		return "car_setups"
	case PacketTypeCarTelemetry:
		return "car_telemetry"
	case PacketTypeCarStatus:
		return "car_status"
	case PacketTypeFinalClassification:
		return "final_classification"
	case PacketTypeLobbyInfo:
		return "lobby_info"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

const (
	// HeaderSize is the length of the header that prefixes every packet.
	HeaderSize = 24

	// CarCount is the fixed number of entries in every per-car array.
	CarCount = 22

	// DefaultPort is the game's default telemetry broadcast port.
	DefaultPort = 20777

	// DefaultPacketFormat is the packet format this package decodes.
	DefaultPacketFormat = 2020
)

var (
	ErrPacketTooShort       = errors.New("f1: packet too short")
	ErrTooManyParticipants  = errors.New("f1: participant count exceeds car count")
	ErrTooManyMarshalZones  = errors.New("f1: marshal zone count exceeds maximum")
	ErrTooManyWeatherSample = errors.New("f1: weather forecast sample count exceeds maximum")
)

// Header is present at the start of every packet.
type Header struct {
	PacketFormat            uint16     `json:"PacketFormat"`
	GameMajorVersion        uint8      `json:"GameMajorVersion"`
	GameMinorVersion        uint8      `json:"GameMinorVersion"`
	PacketVersion           uint8      `json:"PacketVersion"`
	PacketID                PacketType `json:"PacketID"`
	SessionUID              uint64     `json:"SessionUID"`
	SessionTime             float32    `json:"SessionTime"`
	FrameIdentifier         uint32     `json:"FrameIdentifier"`
	PlayerCarIndex          uint8      `json:"PlayerCarIndex"`
	SecondaryPlayerCarIndex uint8      `json:"SecondaryPlayerCarIndex"`
}

// PlayerCar returns the index of the locally controlled car in per-car arrays. The index is not
// valid while spectating an online session.
func (h Header) PlayerCar() (int, bool) {
	return int(h.PlayerCarIndex), int(h.PlayerCarIndex) < CarCount
}

// Data is the decoded payload of a packet. The concrete type is one of *SessionData,
// *LapDataPacket, *EventPacket, *ParticipantsPacket, *CarSetupPacket, *CarTelemetryPacket,
// *CarStatusPacket or EmptyData.
type Data interface {
	PacketType() PacketType
}

// EmptyData is the payload of packets this package does not decode. Its type is the id that was
// found in the header.
type EmptyData struct {
	ID PacketType `json:"ID"`
}

func (e EmptyData) PacketType() PacketType {
	return e.ID
}

// Packet is a header and its decoded payload.
type Packet struct {
	Header Header `json:"Header"`
	Data   Data   `json:"Data"`
}

func (p *Packet) Type() PacketType {
	return p.Header.PacketID
}

// IsEmpty reports whether the payload was left undecoded.
func (p *Packet) IsEmpty() bool {
	_, ok := p.Data.(EmptyData)

	return ok
}

// DecodeHeader reads the header only.
func DecodeHeader(b []byte) (Header, error) {
	r := newReader(b)

	h := readHeader(r)

	if r.err != nil {
		return Header{}, errors.Wrapf(r.err, "f1: decoding header (%d bytes)", len(b))
	}

	return h, nil
}

func readHeader(r *reader) Header {
	return Header{
		PacketFormat:            r.ReadUint16(),
		GameMajorVersion:        r.ReadUint8(),
		GameMinorVersion:        r.ReadUint8(),
		PacketVersion:           r.ReadUint8(),
		PacketID:                PacketType(r.ReadUint8()),
		SessionUID:              r.ReadUint64(),
		SessionTime:             r.ReadFloat32(),
		FrameIdentifier:         r.ReadUint32(),
		PlayerCarIndex:          r.ReadUint8(),
		SecondaryPlayerCarIndex: r.ReadUint8(),
	}
}

// Decode decodes a datagram. Unknown packet ids are not an error: they decode to EmptyData with
// the header intact. A buffer too short for the header or for the payload its header announces
// returns an error wrapping ErrPacketTooShort.
func Decode(b []byte) (*Packet, error) {
	r := newReader(b)

	header := readHeader(r)

	if r.err != nil {
		return nil, errors.Wrapf(r.err, "f1: decoding header (%d bytes)", len(b))
	}

	var (
		data Data
		err  error
	)

	switch header.PacketID {
	case PacketTypeSession:
		data, err = readSessionData(r)
	case PacketTypeLapData:
		data = readLapDataPacket(r)
	case PacketTypeEvent:
		data = readEventPacket(r)
	case PacketTypeParticipants:
		data, err = readParticipantsPacket(r)
	case PacketTypeCarSetups:
		data = readCarSetupPacket(r)
	case PacketTypeCarTelemetry:
		data = readCarTelemetryPacket(r)
	case PacketTypeCarStatus:
		data = readCarStatusPacket(r)
	default:
		data = EmptyData{ID: header.PacketID}
	}

	if err == nil {
		err = r.err
	}

	if err != nil {
		return nil, errors.Wrapf(err, "f1: decoding %s packet (%d bytes)", header.PacketID, len(b))
	}

	return &Packet{Header: header, Data: data}, nil
}

// PayloadSize returns the number of payload bytes consumed after the header for packet types
// with a fixed layout. Participants and event payloads are variable and report false.
func PayloadSize(t PacketType) (int, bool) {
	switch t {
	case PacketTypeSession:
		return sessionDataSize, true
	case PacketTypeLapData:
		return CarCount * lapDataSize, true
	case PacketTypeCarSetups:
		return CarCount * carSetupDataSize, true
	case PacketTypeCarTelemetry:
		return CarCount*carTelemetryDataSize + carTelemetryTrailerSize, true
	case PacketTypeCarStatus:
		return CarCount * carStatusDataSize, true
	default:
		return 0, false
	}
}
