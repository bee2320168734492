package trace

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrSyntax indicates a malformed trace.
var ErrSyntax = errors.New("trace: syntax error")

// Kind is the operation type of one trace line.
type Kind byte

const (
	OpAlloc   Kind = 'a'
	OpRealloc Kind = 'r'
	OpFree    Kind = 'f'
)

func (k Kind) String() string {
	switch k {
	case OpAlloc:
		return "alloc"
	case OpRealloc:
		return "realloc"
	case OpFree:
		return "free"
	default:
		return fmt.Sprintf("Kind(%q)", byte(k))
	}
}

// Op is one trace operation.
type Op struct {
	Kind Kind
	ID   int
	Size int // unused for OpFree
	Line int // 1-based source line
}

func (o Op) String() string {
	if o.Kind == OpFree {
		return fmt.Sprintf("f %d", o.ID)
	}
	return fmt.Sprintf("%c %d %d", o.Kind, o.ID, o.Size)
}

// Trace is a parsed trace file.
type Trace struct {
	Name          string
	SuggestedHeap int
	NumIDs        int
	NumOps        int
	Weight        int
	Ops           []Op
}

// ParseFile reads and parses the trace at path.
func ParseFile(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("trace: %w", err)
	}
	defer f.Close()

	tr, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	tr.Name = path
	return tr, nil
}

// Parse reads a trace. The declared op count and id range are enforced.
func Parse(r io.Reader) (*Trace, error) {
	tr := &Trace{}
	header := []*int{&tr.SuggestedHeap, &tr.NumIDs, &tr.NumOps, &tr.Weight}
	nh := 0

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		if nh < len(header) {
			v, err := strconv.Atoi(text)
			if err != nil || v < 0 {
				return nil, fmt.Errorf("line %d: bad header value %q: %w", line, text, ErrSyntax)
			}
			*header[nh] = v
			nh++
			if nh == len(header) {
				tr.Ops = make([]Op, 0, min(tr.NumOps, 1<<20))
			}
			continue
		}

		op, err := parseOp(text, line)
		if err != nil {
			return nil, err
		}
		if op.ID >= tr.NumIDs {
			return nil, fmt.Errorf("line %d: id %d out of range [0, %d): %w", line, op.ID, tr.NumIDs, ErrSyntax)
		}
		if len(tr.Ops) == tr.NumOps {
			return nil, fmt.Errorf("line %d: more than the declared %d ops: %w", line, tr.NumOps, ErrSyntax)
		}
		tr.Ops = append(tr.Ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("trace: read: %w", err)
	}
	if nh < len(header) {
		return nil, fmt.Errorf("truncated header (%d of %d values): %w", nh, len(header), ErrSyntax)
	}
	if len(tr.Ops) != tr.NumOps {
		return nil, fmt.Errorf("declared %d ops, found %d: %w", tr.NumOps, len(tr.Ops), ErrSyntax)
	}
	return tr, nil
}

func parseOp(text string, line int) (Op, error) {
	fields := strings.Fields(text)
	if len(fields[0]) != 1 {
		return Op{}, fmt.Errorf("line %d: unknown op %q: %w", line, fields[0], ErrSyntax)
	}
	op := Op{Kind: Kind(fields[0][0]), Line: line}

	want := 3
	switch op.Kind {
	case OpAlloc, OpRealloc:
	case OpFree:
		want = 2
	default:
		return Op{}, fmt.Errorf("line %d: unknown op %q: %w", line, fields[0], ErrSyntax)
	}
	if len(fields) != want {
		return Op{}, fmt.Errorf("line %d: %s takes %d fields, got %d: %w", line, op.Kind, want, len(fields), ErrSyntax)
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil || id < 0 {
		return Op{}, fmt.Errorf("line %d: bad id %q: %w", line, fields[1], ErrSyntax)
	}
	op.ID = id
	if want == 3 {
		size, err := strconv.Atoi(fields[2])
		if err != nil || size < 0 {
			return Op{}, fmt.Errorf("line %d: bad size %q: %w", line, fields[2], ErrSyntax)
		}
		op.Size = size
	}
	return op, nil
}

// Write renders tr in the trace format.
func Write(w io.Writer, tr *Trace) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d\n%d\n%d\n%d\n", tr.SuggestedHeap, tr.NumIDs, len(tr.Ops), tr.Weight)
	for _, op := range tr.Ops {
		fmt.Fprintln(bw, op.String())
	}
	return bw.Flush()
}
