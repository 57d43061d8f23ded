// Package simconfig parses the simulator's layered ini configuration format
// and expands its parameter sweeps into concrete run points.
//
// A document consists of a [General] section and named [Config X] sections.
// Sections inherit keys through `extends` chains, with nearer sections
// overriding farther ones and [General] always last. Values may embed
// iteration variables (`${mpr = 0.1, 0.5, 1.0}`), parallel variables that
// advance in lockstep with another (`${beacon = 0.1s, 0.2s ! mpr}`), numeric
// ranges (`${x = 0..5 step 1}`) and plain references (`${mpr}`). The set of
// runs for a config is the Cartesian product of its independent variables,
// with the repetition index as the innermost loop.
package simconfig
