package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/npillmayer/gorgel/runtime"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const words = "../../graphfile/testdata/words.yaml"

func TestGenerate(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.cmd")
	defer teardown()
	//
	for _, enc := range []string{"flat", "bin", "switch"} {
		src, err := generate(words, encodeFlags{encoding: enc}, genFlags{driver: "goto", pkg: "words"})
		require.NoError(t, err, enc)
		assert.Contains(t, string(src), "package words", enc)
		assert.Contains(t, string(src), "Code generated by gorgel. DO NOT EDIT.", enc)
	}
	_, err := generate(words, encodeFlags{encoding: "bin"}, genFlags{driver: "jump"})
	assert.Error(t, err)
	_, err = generate(words, encodeFlags{encoding: "tree"}, genFlags{driver: "goto"})
	assert.Error(t, err)
	_, err = generate(words, encodeFlags{encoding: "bin", indices: "sometimes"}, genFlags{driver: "goto"})
	assert.Error(t, err)
}

func TestTableRows(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.cmd")
	defer teardown()
	//
	_, enc, err := loadGraph(words, encodeFlags{encoding: "flat", classes: true})
	require.NoError(t, err)
	rows := tableRows(enc)
	require.Len(t, rows, len(enc.Arrays())+1)
	assert.Equal(t, []string{"Table", "Type", "Length", "Bytes"}, rows[0])
	names := make([]string, 0, len(rows)-1)
	for _, r := range rows[1:] {
		names = append(names, r[0])
	}
	assert.Contains(t, names, "char_class")
}

func TestSession(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.cmd")
	defer teardown()
	//
	_, enc, err := loadGraph(words, encodeFlags{encoding: "bin"})
	require.NoError(t, err)
	var out bytes.Buffer
	s, err := newSession(enc, runtime.Break, &out)
	require.NoError(t, err)
	//
	quit, err := s.eval("ab 12")
	require.NoError(t, err)
	assert.False(t, quit)
	assert.Contains(t, out.String(), "accepted")
	assert.Equal(t, map[string]int{"mark": 1, "emit": 2, "count": 2}, s.hooks)
	//
	out.Reset()
	_, err = s.eval("12a")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "error")
	//
	out.Reset()
	_, err = s.eval("_x")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "error", "no condition holds")
	_, err = s.eval(":cond upper on")
	require.NoError(t, err)
	out.Reset()
	_, err = s.eval("_x")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "accepted")
	//
	_, err = s.eval(":reset")
	require.NoError(t, err)
	out.Reset()
	_, err = s.eval(":feed ab")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "suspended")
	_, err = s.eval(":keys 'c', 0x64")
	require.NoError(t, err)
	out.Reset()
	_, err = s.eval(":eof")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "accepted")
	//
	_, err = s.eval(":cond nope on")
	assert.Error(t, err)
	_, err = s.eval(":keys 'a'..'c'")
	assert.Error(t, err)
	_, err = s.eval(":frobnicate")
	assert.Error(t, err)
	quit, err = s.eval(":quit")
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestConfig(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "gorgel.cmd")
	defer teardown()
	//
	path := filepath.Join(t.TempDir(), "gorgel.yaml")
	doc := "encoding: switch\ndriver: var\nprefix: lex\nclasses: true\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	cfg, err := loadConfig(path)
	require.NoError(t, err)
	//
	cmd := &cobra.Command{Use: "test"}
	var prefix string
	cmd.Flags().StringVar(&prefix, "prefix", "", "")
	require.NoError(t, cmd.Flags().Set("prefix", "cli"))
	ef := encodeFlags{encoding: "bin"}
	gf := genFlags{driver: "goto", prefix: "cli"}
	cfg.apply(cmd, &ef, &gf)
	assert.Equal(t, "switch", ef.encoding)
	assert.True(t, ef.classes)
	assert.Equal(t, "var", gf.driver)
	assert.Equal(t, "cli", gf.prefix, "flags given on the command line win")
}
