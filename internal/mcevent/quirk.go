package mcevent

// CPUFamily identifies a CPU family for the purposes of quirk filtering.
// Resolving cpuid into a CPUFamily happens elsewhere; callers populate
// ErrorEvent.Family however they resolve it.
type CPUFamily int

const (
	FamilyUnknown CPUFamily = iota
	FamilySandyBridgeEP
)

// quirk is one duplicate-suppression rule: drop events matching
// (family, bank, cpu) exactly. Kept as a table rather than a switch so a
// future platform quirk is one append, not a new branch.
type quirk struct {
	family CPUFamily
	bank   uint32
	cpu    uint32
}

// quirks is the known duplicate-APEI suppression table. On Sandy Bridge
// EP, firmware first reporting fabricates a duplicate record attributed
// to CPU 0 bank 1; drop it so corrected errors aren't double counted.
var quirks = []quirk{
	{family: FamilySandyBridgeEP, bank: 1, cpu: 0},
}

// Quirked reports whether e should be dropped as a known firmware-first
// duplicate.
func (e ErrorEvent) Quirked() bool {
	cpu := e.EffectiveCPU()

	for _, q := range quirks {
		if q.family == e.Family && q.bank == e.Bank && q.cpu == cpu {
			return true
		}
	}

	return false
}
