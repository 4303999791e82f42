package session

import (
	"sync"

	"github.com/urmzd/ipcom/pkg/device"
	"github.com/urmzd/ipcom/pkg/queue"
)

// Some controller firmwares switch off other outputs of a module when one of
// them is set. The verifier compares the snapshots that follow an acknowledged
// command with the module values seen just before it was sent.

type watch struct {
	cmd      queue.Command
	baseline []int
	afterSeq uint64
	seen     int
	ignore   map[int]bool // outputs commanded since the baseline
}

type siblingDrop struct {
	Command  queue.Command
	Sibling  device.OutputRef
	Previous int
}

type verifier struct {
	mu      sync.Mutex
	window  int
	watches []*watch
}

func newVerifier(window int) *verifier {
	return &verifier{window: window}
}

// expect starts watching the siblings of cmd. afterSeq is the store sequence at
// acknowledgment time; only later snapshots are compared.
func (v *verifier) expect(cmd queue.Command, baseline *device.Snapshot, afterSeq uint64) {
	if v.window <= 0 || baseline == nil {
		return
	}
	values, ok := baseline.ModuleValues(cmd.Ref.Module)
	if !ok {
		return
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.watches = append(v.watches, &watch{
		cmd:      cmd,
		baseline: values,
		afterSeq: afterSeq,
		ignore:   map[int]bool{cmd.Ref.Output: true},
	})
}

// touch excludes ref from every running watch. It is called before a command
// is sent so its own effect is never reported.
func (v *verifier) touch(ref device.OutputRef) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, w := range v.watches {
		if w.cmd.Ref.Module == ref.Module {
			w.ignore[ref.Output] = true
		}
	}
}

// check returns the siblings that went from on to off in snap.
func (v *verifier) check(snap *device.Snapshot) []siblingDrop {
	v.mu.Lock()
	defer v.mu.Unlock()

	var drops []siblingDrop
	kept := v.watches[:0]
	for _, w := range v.watches {
		if snap.Seq() <= w.afterSeq {
			kept = append(kept, w)
			continue
		}
		w.seen++
		if current, ok := snap.ModuleValues(w.cmd.Ref.Module); ok {
			for i, prev := range w.baseline {
				output := i + 1
				if w.ignore[output] || prev == 0 || i >= len(current) || current[i] != 0 {
					continue
				}
				w.ignore[output] = true
				drops = append(drops, siblingDrop{
					Command:  w.cmd,
					Sibling:  device.OutputRef{Module: w.cmd.Ref.Module, Output: output},
					Previous: prev,
				})
			}
		}
		if w.seen < v.window {
			kept = append(kept, w)
		}
	}
	clear(v.watches[len(kept):])
	v.watches = kept
	return drops
}

func (v *verifier) pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.watches)
}

func (v *verifier) reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.watches = nil
}
