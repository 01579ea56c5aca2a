// Command kmeridx-inspect is a readline REPL for opening a sealed
// kmeridx index in attached (zero-copy) mode and poking at it: dumping
// metadata, looking up a k-mer's occurrence bucket, fetching a sequence
// from the masked/unmasked lookup, discovering an index file next to a
// database path, and round-tripping ORF headers.
//
// Structured after cmd/kevo/main.go's interactive shell: a completer,
// a readline.Config with history, and a dot-command plus verb dispatch
// loop instead of a one-shot flag parse.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/kmeridx/kmeridx/pkg/alphabet"
	"github.com/kmeridx/kmeridx/pkg/discovery"
	"github.com/kmeridx/kmeridx/pkg/indexfile"
	"github.com/kmeridx/kmeridx/pkg/kmerindex"
	"github.com/kmeridx/kmeridx/pkg/orf"
	"github.com/kmeridx/kmeridx/pkg/scorematrix"
	"github.com/kmeridx/kmeridx/pkg/seqlookup"
	"github.com/kmeridx/kmeridx/pkg/timer"
)

var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".open"),
	readline.PcItem(".close"),
	readline.PcItem(".exit"),
	readline.PcItem(".stats"),
	readline.PcItem("FIND"),
	readline.PcItem("KMER"),
	readline.PcItem("SEQ",
		readline.PcItem("masked"),
		readline.PcItem("unmasked"),
	),
	readline.PcItem("ORF-PARSE"),
	readline.PcItem("DUMP"),
)

const helpText = `
kmeridx-inspect - poke at a sealed k-mer prefilter index

Commands:
  .help                     - Show this help message
  .open PATH                - Open an index file at PATH (attached, zero-copy)
  .close                    - Close the current index
  .exit                     - Exit the program
  .stats                    - Show the index's META record, score matrix,
                              index space and which lookups are present

  FIND dbPath               - Probe dbPath.k5/.k6/.k7/.sk5/.sk6/.sk7 for a match
  KMER residues             - Encode residues (amino letters) and print the
                              occurrence bucket for the leading k-mer window
  SEQ id [masked|unmasked]  - Fetch a sequence's encoded residues by id
  ORF-PARSE header          - Round-trip parse an ORF header line
  DUMP                      - Print the container's table of contents
`

// session holds everything derived from an opened Reader; nil fields
// mean the corresponding blob was absent (spec.md §4.5's "missing
// optional blobs" rule).
type session struct {
	path     string
	reader   *indexfile.Reader
	meta     indexfile.Meta
	matrix   scorematrix.Matrix
	indexer  *alphabet.Indexer
	table    *kmerindex.Table
	masked   *seqlookup.Lookup
	unmasked *seqlookup.Lookup
	opened   *timer.Timer
}

func (s *session) close() {
	if s == nil {
		return
	}
	if s.table != nil {
		s.table.Close()
	}
	if s.masked != nil {
		s.masked.Close()
	}
	if s.unmasked != nil {
		s.unmasked.Close()
	}
	if s.reader != nil {
		s.reader.Close()
	}
}

func openSession(path string) (*session, error) {
	r, err := indexfile.Open(path, indexfile.ModeAttach)
	if err != nil {
		return nil, err
	}
	meta, err := r.Meta()
	if err != nil {
		r.Close()
		return nil, err
	}

	nameBlob, err := r.MustGet(indexfile.KeyScoreMatrixName)
	if err != nil {
		r.Close()
		return nil, err
	}
	matrix, err := scorematrix.Lookup(strings.TrimRight(string(nameBlob), "\x00"))
	if err != nil {
		r.Close()
		return nil, err
	}

	var pattern []bool
	if meta.SpacedKmer != 0 {
		patternBlob, err := r.MustGet(indexfile.KeyKmerPattern)
		if err != nil {
			r.Close()
			return nil, err
		}
		pattern = indexfile.DecodeKmerPattern(patternBlob)
	}
	indexer, err := alphabet.New(int(meta.AlphabetSize), alphabet.SeqType(meta.SeqType), int(meta.K), pattern)
	if err != nil {
		r.Close()
		return nil, err
	}

	entries, err := r.MustGet(indexfile.KeyEntries)
	if err != nil {
		r.Close()
		return nil, err
	}
	offsets, err := r.MustGet(indexfile.KeyEntriesOffsets)
	if err != nil {
		r.Close()
		return nil, err
	}
	table, err := kmerindex.Attach(entries, offsets, kmerindex.PositionWidth(meta.PositionWidthBytes))
	if err != nil {
		r.Close()
		return nil, err
	}

	s := &session{path: path, reader: r, meta: meta, matrix: matrix, indexer: indexer, table: table, opened: timer.New()}

	if seqOffsets, ok, _ := r.Get(indexfile.KeySeqIndexSeqOffset); ok {
		if data, ok, _ := r.Get(indexfile.KeyMaskedSeqIndexData); ok {
			if l, err := seqlookup.Attach(data, seqOffsets); err == nil {
				s.masked = l
			}
		}
		if data, ok, _ := r.Get(indexfile.KeyUnmaskedSeqIndexData); ok {
			if l, err := seqlookup.Attach(data, seqOffsets); err == nil {
				s.unmasked = l
			}
		}
	}

	return s, nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	fmt.Println("kmeridx-inspect")
	fmt.Println("Enter .help for usage hints.")

	var sess *session
	defer func() { sess.close() }()

	historyFile := filepath.Join(os.TempDir(), ".kmeridx_inspect_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "kmeridx> ",
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		return fmt.Errorf("kmeridx-inspect: readline: %w", err)
	}
	defer rl.Close()

	for {
		prompt := "kmeridx> "
		if sess != nil {
			prompt = fmt.Sprintf("kmeridx:%s> ", filepath.Base(sess.path))
		}
		rl.SetPrompt(prompt)

		line, readErr := rl.Readline()
		if readErr != nil {
			if readErr == readline.ErrInterrupt {
				continue
			}
			if readErr == io.EOF {
				fmt.Println("Goodbye!")
				return nil
			}
			return fmt.Errorf("kmeridx-inspect: %w", readErr)
		}
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case ".help":
			fmt.Print(helpText)

		case ".open":
			if len(parts) < 2 {
				fmt.Println("Error: missing path argument")
				continue
			}
			sess.close()
			sess = nil
			s, err := openSession(parts[1])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening %s: %s\n", parts[1], err)
				continue
			}
			sess = s
			fmt.Printf("Opened %s (k=%d, alphabet=%d) in %s\n", parts[1], sess.meta.K, sess.meta.AlphabetSize, sess.opened.Lap())

		case ".close":
			if sess == nil {
				fmt.Println("No index open")
				continue
			}
			sess.close()
			sess = nil
			fmt.Println("Index closed")

		case ".exit":
			fmt.Println("Goodbye!")
			return nil

		case ".stats":
			if sess == nil {
				fmt.Println("No index open")
				continue
			}
			fmt.Printf("k=%d alphabetSize=%d posWidth=%d maskMode=%d kmerScoreThreshold=%d maxSeqLen=%d seqType=%d\n",
				sess.meta.K, sess.meta.AlphabetSize, sess.meta.PositionWidthBytes, sess.meta.MaskMode,
				sess.meta.KmerScoreThreshold, sess.meta.MaxSeqLen, sess.meta.SeqType)
			fmt.Printf("scoreMatrix=%s indexSpace=%d\n", sess.matrix.Name(), sess.table.IndexSpace())
			fmt.Printf("masked lookup present: %v, unmasked lookup present: %v\n", sess.masked != nil, sess.unmasked != nil)

		default:
			switch strings.ToUpper(parts[0]) {
			case "FIND":
				if len(parts) < 2 {
					fmt.Println("Error: FIND requires a database path")
					continue
				}
				if found := discovery.Find(parts[1]); found != "" {
					fmt.Println(found)
				} else {
					fmt.Println("no compatible index found")
				}

			case "KMER":
				if sess == nil {
					fmt.Println("No index open")
					continue
				}
				if len(parts) < 2 {
					fmt.Println("Error: KMER requires a residue string")
					continue
				}
				digits, ok := encodeAA(parts[1], sess.matrix)
				if !ok {
					fmt.Println("Error: unmapped residue in input")
					continue
				}
				sess.indexer.Reset()
				idx, ok := sess.indexer.NextIndex(digits)
				if !ok {
					fmt.Println("Error: window too short or contains the reserved residue")
					continue
				}
				entries, err := sess.table.Lookup(idx)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					continue
				}
				fmt.Printf("index=%d entries=%d\n", idx, len(entries))
				for _, e := range entries {
					fmt.Printf("  seqId=%d position=%d\n", e.SeqID, e.Position)
				}

			case "SEQ":
				if sess == nil {
					fmt.Println("No index open")
					continue
				}
				if len(parts) < 2 {
					fmt.Println("Error: SEQ requires a sequence id")
					continue
				}
				id, err := strconv.ParseUint(parts[1], 10, 32)
				if err != nil {
					fmt.Println("Error: invalid sequence id")
					continue
				}
				lookup := sess.unmasked
				if len(parts) >= 3 && parts[2] == "masked" {
					lookup = sess.masked
				}
				if lookup == nil {
					fmt.Println("Error: requested lookup is not present in this index")
					continue
				}
				residues, err := lookup.Get(uint32(id))
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					continue
				}
				fmt.Printf("%d residues: %v\n", len(residues), residues)

			case "DUMP":
				if sess == nil {
					fmt.Println("No index open")
					continue
				}
				if err := sess.reader.DumpText(os.Stdout); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				}

			case "ORF-PARSE":
				if len(parts) < 2 {
					fmt.Println("Error: ORF-PARSE requires a header string")
					continue
				}
				header := strings.Join(parts[1:], " ")
				id, loc, err := orf.ParseHeader(header)
				if err != nil {
					fmt.Fprintf(os.Stderr, "Error: %s\n", err)
					continue
				}
				fmt.Printf("orfID=%d contigId=%d from=%d to=%d strand=%d incompleteStart=%v incompleteEnd=%v\n",
					id, loc.ContigID, loc.From, loc.To, loc.Strand, loc.IncompleteStart, loc.IncompleteEnd)

			default:
				fmt.Printf("Unknown command: %s\n", parts[0])
			}
		}
	}
}

// encodeAA maps an amino-acid letter string to matrix digit codes; ok is
// false if any letter is unmapped.
func encodeAA(raw string, matrix scorematrix.Matrix) ([]byte, bool) {
	aa2int := matrix.AA2Int()
	out := make([]byte, len(raw))
	for i := 0; i < len(raw); i++ {
		b := raw[i]
		if b >= 'a' && b <= 'z' {
			b -= 'a' - 'A'
		}
		code := aa2int[b]
		if code < 0 {
			return nil, false
		}
		out[i] = byte(code)
	}
	return out, true
}
