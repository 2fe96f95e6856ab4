// Package scheduler builds the on-call integer program: one binary per
// (clinician, division, block) and per (clinician, weekend), a library of
// toggleable constraints and a weighted objective rewarding honoured time
// off and block/weekend adjacency. The Scheduler drives a mip.Solver and maps
// the optimal solution back onto the roster.
package scheduler
