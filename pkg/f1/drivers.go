package f1

// Driver is the abbreviation of a driver known to the game. Drivers missing from the table,
// including every human player, are DriverUnknown.
type Driver string

const DriverUnknown Driver = "ZZZ"

var driverIDs = map[uint8]Driver{
	0:  "SAI",
	1:  "KVY",
	2:  "RIC",
	6:  "RAI",
	7:  "HAM",
	9:  "VER",
	10: "HUL",
	11: "MAG",
	12: "GRO",
	13: "VET",
	14: "PER",
	15: "BOT",
	17: "OCO",
	19: "STR",
	45: "MAR",
	47: "GAL",
	48: "DEV",
	49: "AIT",
	50: "RUS",
	53: "GHI",
	54: "NOR",
	56: "DEL",
	57: "FUO",
	58: "LEC",
	59: "GAS",
	62: "ALB",
	63: "LAT",
	64: "BOC",
	66: "MER",
	67: "MAI",
	68: "LOR",
	74: "GIO",
	75: "KUB",
	78: "MAT",
	79: "MAZ",
	80: "ZHO",
	81: "SCH",
	82: "ILO",
	83: "COR",
	84: "KIN",
	85: "RAG",
	86: "CAL",
	87: "HUB",
	88: "ALE",
	89: "BOS",
}

func DriverByID(id uint8) Driver {
	if d, ok := driverIDs[id]; ok {
		return d
	}

	return DriverUnknown
}

