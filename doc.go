/*
Package gorgel is a toolbox for encoding reduced finite state machines
into compact integer tables and for driving them at match time.

Gorgel takes an already minimized automaton (states, transitions, guard
conditions, actions) and lays it out in one of several table encodings,
together with a driver loop which walks those tables. Package structure is
as follows:

■ alphabet: Package alphabet models the integer domain of input keys.

■ redfsm: Package redfsm holds the reduced FSM graph and a builder for it.

■ tables: Package tables implements the two-phase table array builder.

■ encode: Package encode implements the flat, binary and switch encodings.

■ runtime: Package runtime executes encoded tables with one of three driver
variants (goto, break, var).

■ codegen: Package codegen emits Go source for tables and driver.

■ scanner: Package scanner lexes and parses key expressions.

■ graphfile: Package graphfile loads graph descriptions from YAML.

Command gorgel (cmd/gorgel) generates tables and Go source from graph files
and runs machines interactively.

The base package contains data types which are used throughout all the other packages.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2022 Norbert Pillmayer <norbert@pillmayer.com>

*/
package gorgel
