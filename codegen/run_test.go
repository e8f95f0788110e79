package codegen

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npillmayer/gorgel/alphabet"
	"github.com/npillmayer/gorgel/encode"
	"github.com/npillmayer/gorgel/redfsm"
	"github.com/npillmayer/gorgel/runtime"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The generated machines are compiled into one program, which scans every
// input with every machine and prints a line per scan. Placeholders start
// with '$'.
const mainHead = `package main

import (
	"fmt"
$imports)

func keys(s string) []int8 {
	d := make([]int8, len(s))
	for i := 0; i < len(s); i++ {
		d[i] = int8(s[i])
	}
	return d
}

func cond(name string, data []int8, p int) bool {
	switch name {
	case "upper":
		return p%2 == 0
	case "long":
		return data[p] == '_' || p%3 == 0
	}
	return false
}

func main() {
`

const mainScan = `	for _, in := range $inputs {
		m := &$pkg.Machine{}
		m.Init()
		data := keys(in)
		var hooks []string
		m.OnAction = func(_ *$pkg.Machine, a, p int) {
			hooks = append(hooks, fmt.Sprintf("%d@%d", a, p))
		}
		names := $conds
		m.OnCond = func(_ *$pkg.Machine, c, p int) bool {
			return cond(names[c], data, p)
		}
		p := m.Exec(data, true)
		fmt.Printf("%s %q cs=%d p=%d accepted=%v hooks=%v\n", $name, in, m.CS, p, m.Accepted, hooks)
	}
`

// scanLine formats the outcome of a scan the way the generated program does.
func scanLine(name, in string, cs, p int, accepted bool, hooks []string) string {
	return fmt.Sprintf("%s %q cs=%d p=%d accepted=%v hooks=%v", name, in, cs, p, accepted, hooks)
}

// condNames lists the conditions of an encoding in the order of the OnCond
// hook IDs.
func condNames(enc *encode.Encoding) []string {
	var names []string
	seen := make(map[string]bool)
	for _, space := range enc.CondSpaces {
		for _, c := range space {
			if !seen[c] {
				seen[c] = true
				names = append(names, c)
			}
		}
	}
	return names
}

// interpret scans inputs with runtime.Machine, with the same hooks and
// conditions as the generated program.
func interpret(t *testing.T, name string, enc *encode.Encoding, d runtime.DriverKind, inputs []string) []string {
	var hooks []string
	bind := runtime.NewBindings("run", nil).
		BindCond("upper", func(m *runtime.Machine) bool { return m.Pos()%2 == 0 }).
		BindCond("long", func(m *runtime.Machine) bool { return m.Key() == '_' || m.Pos()%3 == 0 })
	for _, a := range enc.Actions {
		if a.Kind != redfsm.Hook || a.Code != "" {
			continue
		}
		id := a.ID
		bind.BindAction(a.Name, func(m *runtime.Machine) {
			hooks = append(hooks, fmt.Sprintf("%d@%d", id, m.Pos()))
		})
	}
	m, err := runtime.New(enc, d, runtime.WithBindings(bind))
	require.NoError(t, err, name)
	var lines []string
	for _, in := range inputs {
		m.Init()
		hooks = nil
		data := make([]alphabet.Key, len(in))
		for i := 0; i < len(in); i++ {
			data[i] = alphabet.Key(in[i])
		}
		res, err := m.Exec(data, true)
		require.NoError(t, err, "%s: %q", name, in)
		lines = append(lines, scanLine(name, in, res.CS, res.P, res.Accepted, hooks))
	}
	return lines
}

func TestGeneratedCodeRuns(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.codegen")
	defer teardown()
	//
	gobin, err := exec.LookPath("go")
	if err != nil {
		t.Skip("go command not found")
	}
	if testing.Short() {
		t.Skip("compiles generated code")
	}
	graphs := []struct {
		g      *redfsm.Graph
		inputs []string
	}{
		{fullGraph(t), []string{"ab 12", "_x", "_1", "12a", "a.b", "x!y", "#ab", "", "9", "a1.", "  ", "ab!"}},
		{eofGraph(t), []string{"a", "b", "ba", "", "aa", "ab", "c"}},
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module gencheck\n\ngo 1.18\n"), 0644))
	var imports, scans strings.Builder
	var want []string
	n := 0
	for _, gr := range graphs {
		for _, e := range encodings() {
			for _, d := range drivers {
				name := fmt.Sprintf("%s/%s/%s", gr.g.Name, e.name, d)
				enc, err := encode.Encode(gr.g, e.opts)
				require.NoError(t, err, name)
				pkg := fmt.Sprintf("m%d", n)
				n++
				src, err := Generate(enc, Options{Package: pkg, Driver: d})
				require.NoError(t, err, name)
				require.NoError(t, os.Mkdir(filepath.Join(dir, pkg), 0755))
				require.NoError(t, os.WriteFile(filepath.Join(dir, pkg, "fsm.go"), src, 0644))
				fmt.Fprintf(&imports, "\t%q\n", "gencheck/"+pkg)
				scans.WriteString(strings.NewReplacer(
					"$inputs", fmt.Sprintf("%#v", gr.inputs),
					"$pkg", pkg,
					"$conds", fmt.Sprintf("%#v", append([]string{}, condNames(enc)...)),
					"$name", fmt.Sprintf("%q", name),
				).Replace(mainScan))
				want = append(want, interpret(t, name, enc, d, gr.inputs)...)
			}
		}
	}
	prog := strings.Replace(mainHead, "$imports", imports.String(), 1) + scans.String() + "}\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte(prog), 0644))
	//
	cmd := exec.Command(gobin, "run", ".")
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GOWORK=off", "GOFLAGS=-mod=mod")
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr
	require.NoError(t, cmd.Run(), "go run: %s", stderr.String())
	got := strings.Split(strings.TrimRight(stdout.String(), "\n"), "\n")
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}
