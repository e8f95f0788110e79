/*
Command gorgel compiles state machine graphs to tables and Go source.

Graphs are read from YAML graph files (see package graphfile). Sub-commands:

    gorgel gen    --encoding bin --driver goto -o words_fsm.go words.yaml
    gorgel tables --encoding flat --classes words.yaml
    gorgel dot    words.yaml | dot -Tsvg > words.svg
    gorgel scan   words.yaml

'scan' starts an interactive session, feeding input lines to an interpreted
machine and printing the outcome of every scan.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package main

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'gorgel.cmd'.
func tracer() tracing.Trace {
	return tracing.Select("gorgel.cmd")
}

// traceKeys are the trace selectors of all packages of this module.
var traceKeys = []string{
	"gorgel",
	"gorgel.alphabet",
	"gorgel.tables",
	"gorgel.redfsm",
	"gorgel.encode",
	"gorgel.runtime",
	"gorgel.codegen",
	"gorgel.scanner",
	"gorgel.graphfile",
	"gorgel.cmd",
}

func setTraceLevel(level string) {
	l := tracing.TraceLevelFromString(level)
	for _, key := range traceKeys {
		tracing.Select(key).SetTraceLevel(l)
	}
}
