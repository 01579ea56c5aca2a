package orf

// Table is an NCBI-style genetic code: the codon-to-amino-acid mapping
// plus which codons act as stops and (canonical vs. alternate) starts for
// this code. MICA's translate.go (_examples/ndaniels-MICA/translate.go)
// hard-codes only the standard table; we generalize it into a small
// registry so genCode is a meaningful parameter rather than a dead one.
type Table struct {
	Name      string
	AA        map[string]byte
	Starts    []string
	AltStarts []string
	Stops     []string
}

var standardAA = map[string]byte{
	"TTT": 'F', "TTC": 'F', "TTA": 'L', "TTG": 'L',
	"CTT": 'L', "CTC": 'L', "CTA": 'L', "CTG": 'L',
	"ATT": 'I', "ATC": 'I', "ATA": 'I', "ATG": 'M',
	"GTT": 'V', "GTC": 'V', "GTA": 'V', "GTG": 'V',
	"TCT": 'S', "TCC": 'S', "TCA": 'S', "TCG": 'S',
	"CCT": 'P', "CCC": 'P', "CCA": 'P', "CCG": 'P',
	"ACT": 'T', "ACC": 'T', "ACA": 'T', "ACG": 'T',
	"GCT": 'A', "GCC": 'A', "GCA": 'A', "GCG": 'A',
	"TAT": 'Y', "TAC": 'Y', "TAA": '*', "TAG": '*',
	"CAT": 'H', "CAC": 'H', "CAA": 'Q', "CAG": 'Q',
	"AAT": 'N', "AAC": 'N', "AAA": 'K', "AAG": 'K',
	"GAT": 'D', "GAC": 'D', "GAA": 'E', "GAG": 'E',
	"TGT": 'C', "TGC": 'C', "TGA": '*', "TGG": 'W',
	"CGT": 'R', "CGC": 'R', "CGA": 'R', "CGG": 'R',
	"AGT": 'S', "AGC": 'S', "AGA": 'R', "AGG": 'R',
	"GGT": 'G', "GGC": 'G', "GGA": 'G', "GGG": 'G',
}

func cloneAA(overrides map[string]byte) map[string]byte {
	out := make(map[string]byte, len(standardAA))
	for k, v := range standardAA {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

var tables = map[int]Table{
	1: {
		Name:      "standard",
		AA:        standardAA,
		Starts:    []string{"ATG"},
		AltStarts: []string{"GTG", "TTG"},
		Stops:     []string{"TAA", "TAG", "TGA"},
	},
	2: {
		Name: "vertebrate_mitochondrial",
		AA: cloneAA(map[string]byte{
			"AGA": '*', "AGG": '*', "ATA": 'M', "TGA": 'W',
		}),
		Starts:    []string{"ATG"},
		AltStarts: []string{"ATA", "ATT", "ATC", "GTG"},
		Stops:     []string{"TAA", "TAG", "AGA", "AGG"},
	},
}

// LookupTable resolves an NCBI genetic code number to its Table. Only the
// standard code (1) and vertebrate mitochondrial code (2) are built in;
// callers needing others must supply their own Table via Extract's
// TableOverride parameter.
func LookupTable(genCode int) (Table, bool) {
	t, ok := tables[genCode]
	return t, ok
}

func codonSet(codons []string) map[string]bool {
	set := make(map[string]bool, len(codons))
	for _, c := range codons {
		set[c] = true
	}
	return set
}
