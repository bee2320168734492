package trace

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sample = `# two blocks, one resized
20000
2
5
1
a 0 512
a 1 128
r 0 640
f 1
f 0
`

func TestParse(t *testing.T) {
	tr, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.Equal(t, 20000, tr.SuggestedHeap)
	require.Equal(t, 2, tr.NumIDs)
	require.Equal(t, 5, tr.NumOps)
	require.Equal(t, 1, tr.Weight)
	require.Equal(t, []Op{
		{Kind: OpAlloc, ID: 0, Size: 512, Line: 6},
		{Kind: OpAlloc, ID: 1, Size: 128, Line: 7},
		{Kind: OpRealloc, ID: 0, Size: 640, Line: 8},
		{Kind: OpFree, ID: 1, Line: 9},
		{Kind: OpFree, ID: 0, Line: 10},
	}, tr.Ops)
}

func TestParse_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		msg   string
	}{
		{"truncated header", "100\n2\n", "truncated header"},
		{"bad header", "100\nx\n1\n1\n", "bad header"},
		{"unknown op", "100\n1\n1\n1\nx 0 8\n", "unknown op"},
		{"free with size", "100\n1\n1\n1\nf 0 8\n", "takes 2 fields"},
		{"alloc without size", "100\n1\n1\n1\na 0\n", "takes 3 fields"},
		{"id out of range", "100\n1\n1\n1\na 1 8\n", "out of range"},
		{"negative size", "100\n1\n1\n1\na 0 -8\n", "bad size"},
		{"too many ops", "100\n1\n1\n1\na 0 8\nf 0\n", "more than the declared"},
		{"too few ops", "100\n1\n2\n1\na 0 8\n", "declared 2 ops"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tc.input))
			require.ErrorIs(t, err, ErrSyntax)
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.rep")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	tr, err := ParseFile(path)
	require.NoError(t, err)
	require.Equal(t, path, tr.Name)
	require.Len(t, tr.Ops, 5)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.rep"))
	require.Error(t, err)
}

func TestWriteParses(t *testing.T) {
	tr, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, tr))
	again, err := Parse(&buf)
	require.NoError(t, err)
	require.Equal(t, len(tr.Ops), len(again.Ops))
	for i := range tr.Ops {
		require.Equal(t, tr.Ops[i].String(), again.Ops[i].String())
	}
}

func TestGenerate(t *testing.T) {
	tr := Generate(7, GenOptions{Ops: 500, MaxLive: 20, MaxSize: 1000, ReallocPct: 30})
	require.GreaterOrEqual(t, len(tr.Ops), 500)
	require.Equal(t, tr.NumOps, len(tr.Ops))

	live := map[int]bool{}
	for _, op := range tr.Ops {
		require.Less(t, op.ID, tr.NumIDs)
		switch op.Kind {
		case OpAlloc:
			require.False(t, live[op.ID])
			live[op.ID] = true
			require.LessOrEqual(t, len(live), 20)
		case OpRealloc:
			require.True(t, live[op.ID])
		case OpFree:
			require.True(t, live[op.ID])
			delete(live, op.ID)
		}
	}
	require.Empty(t, live, "every id is freed")

	require.Equal(t, tr.Ops, Generate(7, GenOptions{Ops: 500, MaxLive: 20, MaxSize: 1000, ReallocPct: 30}).Ops,
		"same seed, same trace")
}
