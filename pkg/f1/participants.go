package f1

import "github.com/pkg/errors"

const (
	participantNameSize = 48

	// participantUnusedTail is the "your telemetry" restriction flag at the end of every entry,
	// which is not modelled.
	participantUnusedTail = 1

	participantDataSize = 5 + participantNameSize + participantUnusedTail
)

type ParticipantData struct {
	AIControlled uint8  `json:"AIControlled"`
	DriverID     uint8  `json:"DriverID"`
	TeamID       uint8  `json:"TeamID"`
	RaceNumber   uint8  `json:"RaceNumber"`
	Nationality  uint8  `json:"Nationality"`
	Name         string `json:"Name"`
}

func (p ParticipantData) IsAI() bool {
	return p.AIControlled == 1
}

func (p ParticipantData) Driver() Driver {
	return DriverByID(p.DriverID)
}

// ParticipantsPacket lists the active cars. Unlike the other per-car packets only the first
// NumActiveCars entries are sent.
type ParticipantsPacket struct {
	Participants []ParticipantData `json:"Participants"`
}

func (*ParticipantsPacket) PacketType() PacketType {
	return PacketTypeParticipants
}

func readParticipantData(r *reader) ParticipantData {
	p := ParticipantData{
		AIControlled: r.ReadUint8(),
		DriverID:     r.ReadUint8(),
		TeamID:       r.ReadUint8(),
		RaceNumber:   r.ReadUint8(),
		Nationality:  r.ReadUint8(),
		Name:         r.ReadString(participantNameSize),
	}

	r.skip(participantUnusedTail)

	return p
}

func readParticipantsPacket(r *reader) (*ParticipantsPacket, error) {
	count := int(r.ReadUint8())

	if count > CarCount {
		return nil, errors.Wrapf(ErrTooManyParticipants, "f1: %d participants", count)
	}

	p := &ParticipantsPacket{
		Participants: make([]ParticipantData, count),
	}

	for i := range p.Participants {
		p.Participants[i] = readParticipantData(r)
	}

	return p, nil
}
