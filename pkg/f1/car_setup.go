package f1

const carSetupDataSize = 49

type CarSetupData struct {
	FrontWing              uint8   `json:"FrontWing"`
	RearWing               uint8   `json:"RearWing"`
	OnThrottle             uint8   `json:"OnThrottle"`
	OffThrottle            uint8   `json:"OffThrottle"`
	FrontCamber            float32 `json:"FrontCamber"`
	RearCamber             float32 `json:"RearCamber"`
	FrontToe               float32 `json:"FrontToe"`
	RearToe                float32 `json:"RearToe"`
	FrontSuspension        uint8   `json:"FrontSuspension"`
	RearSuspension         uint8   `json:"RearSuspension"`
	FrontAntiRollBar       uint8   `json:"FrontAntiRollBar"`
	RearAntiRollBar        uint8   `json:"RearAntiRollBar"`
	FrontSuspensionHeight  uint8   `json:"FrontSuspensionHeight"`
	RearSuspensionHeight   uint8   `json:"RearSuspensionHeight"`
	BrakePressure          uint8   `json:"BrakePressure"`
	BrakeBias              uint8   `json:"BrakeBias"`
	RearLeftTyrePressure   float32 `json:"RearLeftTyrePressure"`
	RearRightTyrePressure  float32 `json:"RearRightTyrePressure"`
	FrontLeftTyrePressure  float32 `json:"FrontLeftTyrePressure"`
	FrontRightTyrePressure float32 `json:"FrontRightTyrePressure"`
	Ballast                uint8   `json:"Ballast"`
	FuelLoad               float32 `json:"FuelLoad"`
}

type CarSetupPacket struct {
	Cars [CarCount]CarSetupData `json:"Cars"`
}

func (*CarSetupPacket) PacketType() PacketType {
	return PacketTypeCarSetups
}

func readCarSetupData(r *reader) CarSetupData {
	return CarSetupData{
		FrontWing:              r.ReadUint8(),
		RearWing:               r.ReadUint8(),
		OnThrottle:             r.ReadUint8(),
		OffThrottle:            r.ReadUint8(),
		FrontCamber:            r.ReadFloat32(),
		RearCamber:             r.ReadFloat32(),
		FrontToe:               r.ReadFloat32(),
		RearToe:                r.ReadFloat32(),
		FrontSuspension:        r.ReadUint8(),
		RearSuspension:         r.ReadUint8(),
		FrontAntiRollBar:       r.ReadUint8(),
		RearAntiRollBar:        r.ReadUint8(),
		FrontSuspensionHeight:  r.ReadUint8(),
		RearSuspensionHeight:   r.ReadUint8(),
		BrakePressure:          r.ReadUint8(),
		BrakeBias:              r.ReadUint8(),
		RearLeftTyrePressure:   r.ReadFloat32(),
		RearRightTyrePressure:  r.ReadFloat32(),
		FrontLeftTyrePressure:  r.ReadFloat32(),
		FrontRightTyrePressure: r.ReadFloat32(),
		Ballast:                r.ReadUint8(),
		FuelLoad:               r.ReadFloat32(),
	}
}

func readCarSetupPacket(r *reader) *CarSetupPacket {
	p := &CarSetupPacket{}

	for i := range p.Cars {
		p.Cars[i] = readCarSetupData(r)
	}

	return p
}
