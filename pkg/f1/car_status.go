package f1

const carStatusDataSize = 60

type FIAFlag int8

const (
	FIAFlagUnknown FIAFlag = -1
	FIAFlagNone    FIAFlag = 0
	FIAFlagGreen   FIAFlag = 1
	FIAFlagBlue    FIAFlag = 2
	FIAFlagYellow  FIAFlag = 3
	FIAFlagRed     FIAFlag = 4
)

type CarStatusData struct {
	TractionControl         uint8    `json:"TractionControl"`
	AntiLockBrakes          uint8    `json:"AntiLockBrakes"`
	FuelMix                 uint8    `json:"FuelMix"` // 0 lean, 1 standard, 2 rich, 3 max
	FrontBrakeBias          uint8    `json:"FrontBrakeBias"`
	PitLimiterStatus        uint8    `json:"PitLimiterStatus"`
	FuelInTank              float32  `json:"FuelInTank"`
	FuelCapacity            float32  `json:"FuelCapacity"`
	FuelRemainingLaps       float32  `json:"FuelRemainingLaps"`
	MaxRPM                  uint16   `json:"MaxRPM"`
	IdleRPM                 uint16   `json:"IdleRPM"`
	MaxGears                uint8    `json:"MaxGears"`
	DRSAllowed              int8     `json:"DRSAllowed"` // -1 unknown
	DRSActivationDistance   uint16   `json:"DRSActivationDistance"`
	TyresWear               [4]uint8 `json:"TyresWear"`
	ActualTyreCompoundCode  uint8    `json:"ActualTyreCompound"`
	VisualTyreCompoundCode  uint8    `json:"VisualTyreCompound"`
	TyresAgeLaps            uint8    `json:"TyresAgeLaps"`
	TyresDamage             [4]uint8 `json:"TyresDamage"`
	FrontLeftWingDamage     uint8    `json:"FrontLeftWingDamage"`
	FrontRightWingDamage    uint8    `json:"FrontRightWingDamage"`
	RearWingDamage          uint8    `json:"RearWingDamage"`
	DRSFault                uint8    `json:"DRSFault"`
	EngineDamage            uint8    `json:"EngineDamage"`
	GearBoxDamage           uint8    `json:"GearBoxDamage"`
	VehicleFIAFlags         int8     `json:"VehicleFIAFlags"`
	ERSStoreEnergy          float32  `json:"ERSStoreEnergy"` // joules
	ERSDeployMode           uint8    `json:"ERSDeployMode"`
	ERSHarvestedThisLapMGUK float32  `json:"ERSHarvestedThisLapMGUK"`
	ERSHarvestedThisLapMGUH float32  `json:"ERSHarvestedThisLapMGUH"`
	ERSDeployedThisLap      float32  `json:"ERSDeployedThisLap"`
}

func (c CarStatusData) ActualTyreCompound() TyreCompound {
	return ActualTyreCompound(c.ActualTyreCompoundCode)
}

func (c CarStatusData) VisualTyreCompound() TyreCompound {
	return VisualTyreCompound(c.VisualTyreCompoundCode)
}

func (c CarStatusData) PitLimiter() bool {
	return c.PitLimiterStatus == 1
}

func (c CarStatusData) DRSAvailable() bool {
	return c.DRSActivationDistance > 0
}

func (c CarStatusData) FIAFlag() FIAFlag {
	if c.VehicleFIAFlags < int8(FIAFlagUnknown) || c.VehicleFIAFlags > int8(FIAFlagRed) {
		return FIAFlagUnknown
	}

	return FIAFlag(c.VehicleFIAFlags)
}

type CarStatusPacket struct {
	Cars [CarCount]CarStatusData `json:"Cars"`
}

func (*CarStatusPacket) PacketType() PacketType {
	return PacketTypeCarStatus
}

func readCarStatusData(r *reader) CarStatusData {
	return CarStatusData{
		TractionControl:         r.ReadUint8(),
		AntiLockBrakes:          r.ReadUint8(),
		FuelMix:                 r.ReadUint8(),
		FrontBrakeBias:          r.ReadUint8(),
		PitLimiterStatus:        r.ReadUint8(),
		FuelInTank:              r.ReadFloat32(),
		FuelCapacity:            r.ReadFloat32(),
		FuelRemainingLaps:       r.ReadFloat32(),
		MaxRPM:                  r.ReadUint16(),
		IdleRPM:                 r.ReadUint16(),
		MaxGears:                r.ReadUint8(),
		DRSAllowed:              r.ReadInt8(),
		DRSActivationDistance:   r.ReadUint16(),
		TyresWear:               r.ReadUint8x4(),
		ActualTyreCompoundCode:  r.ReadUint8(),
		VisualTyreCompoundCode:  r.ReadUint8(),
		TyresAgeLaps:            r.ReadUint8(),
		TyresDamage:             r.ReadUint8x4(),
		FrontLeftWingDamage:     r.ReadUint8(),
		FrontRightWingDamage:    r.ReadUint8(),
		RearWingDamage:          r.ReadUint8(),
		DRSFault:                r.ReadUint8(),
		EngineDamage:            r.ReadUint8(),
		GearBoxDamage:           r.ReadUint8(),
		VehicleFIAFlags:         r.ReadInt8(),
		ERSStoreEnergy:          r.ReadFloat32(),
		ERSDeployMode:           r.ReadUint8(),
		ERSHarvestedThisLapMGUK: r.ReadFloat32(),
		ERSHarvestedThisLapMGUH: r.ReadFloat32(),
		ERSDeployedThisLap:      r.ReadFloat32(),
	}
}

func readCarStatusPacket(r *reader) *CarStatusPacket {
	p := &CarStatusPacket{}

	for i := range p.Cars {
		p.Cars[i] = readCarStatusData(r)
	}

	return p
}
