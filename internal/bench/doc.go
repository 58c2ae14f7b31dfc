// Package bench drives select workloads on the asyncrt runtime and measures them.
//
// Each scenario gets its own executor with one companion task. An iteration
// spawns an entry task that performs Cycles select calls; every call races
// Branches probes over a fresh Rendezvous, of which only the leader (branch 0)
// ever completes. The companion fulfills the entry task's slot after every
// pass, so a parked entry task is resumed on the next scheduler turn.
package bench
