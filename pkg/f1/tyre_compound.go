package f1

import "encoding/json"

// TyreCompound is decoded from either the actual or the visual compound code of a car. The two
// codes overlap, so each has its own mapping. Codes outside either mapping decode to
// TyreCompoundUnknown.
type TyreCompound uint8

const (
	TyreCompoundUnknown TyreCompound = iota
	TyreCompoundC1
	TyreCompoundC2
	TyreCompoundC3
	TyreCompoundC4
	TyreCompoundC5
	TyreCompoundInter
	TyreCompoundWet
	TyreCompoundDryClassic
	TyreCompoundWetClassic
	TyreCompoundSuperSoftF2
	TyreCompoundSoftF2
	TyreCompoundMediumF2
	TyreCompoundHardF2
	TyreCompoundWetF2
	TyreCompoundSoft
	TyreCompoundMedium
	TyreCompoundHard
)

var tyreCompoundNames = map[TyreCompound]string{
	TyreCompoundUnknown:     "Unknown",
	TyreCompoundC1:          "C1",
	TyreCompoundC2:          "C2",
	TyreCompoundC3:          "C3",
	TyreCompoundC4:          "C4",
	TyreCompoundC5:          "C5",
	TyreCompoundInter:       "Inter",
	TyreCompoundWet:         "Wet",
	TyreCompoundDryClassic:  "Dry (Classic)",
	TyreCompoundWetClassic:  "Wet (Classic)",
	TyreCompoundSuperSoftF2: "Super Soft (F2)",
	TyreCompoundSoftF2:      "Soft (F2)",
	TyreCompoundMediumF2:    "Medium (F2)",
	TyreCompoundHardF2:      "Hard (F2)",
	TyreCompoundWetF2:       "Wet (F2)",
	TyreCompoundSoft:        "Soft",
	TyreCompoundMedium:      "Medium",
	TyreCompoundHard:        "Hard",
}

func (t TyreCompound) String() string {
	if name, ok := tyreCompoundNames[t]; ok {
		return name
	}

	return tyreCompoundNames[TyreCompoundUnknown]
}

func (t TyreCompound) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// codes shared by the actual and visual mappings
var sharedCompoundCodes = map[uint8]TyreCompound{
	7:  TyreCompoundInter,
	8:  TyreCompoundWet,
	9:  TyreCompoundDryClassic,
	10: TyreCompoundWetClassic,
	11: TyreCompoundSuperSoftF2,
	12: TyreCompoundSoftF2,
	13: TyreCompoundMediumF2,
	14: TyreCompoundHardF2,
	15: TyreCompoundWetF2,
}

var actualCompoundCodes = map[uint8]TyreCompound{
	16: TyreCompoundC5,
	17: TyreCompoundC4,
	18: TyreCompoundC3,
	19: TyreCompoundC2,
	20: TyreCompoundC1,
}

var visualCompoundCodes = map[uint8]TyreCompound{
	16: TyreCompoundSoft,
	17: TyreCompoundMedium,
	18: TyreCompoundHard,
}

// ActualTyreCompound maps the actual compound code of a car status record.
func ActualTyreCompound(code uint8) TyreCompound {
	if c, ok := actualCompoundCodes[code]; ok {
		return c
	}

	if c, ok := sharedCompoundCodes[code]; ok {
		return c
	}

	return TyreCompoundUnknown
}

// VisualTyreCompound maps the visual compound code of a car status record.
func VisualTyreCompound(code uint8) TyreCompound {
	if c, ok := visualCompoundCodes[code]; ok {
		return c
	}

	if c, ok := sharedCompoundCodes[code]; ok {
		return c
	}

	return TyreCompoundUnknown
}
