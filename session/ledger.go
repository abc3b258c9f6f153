package session

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wippyai/wasm-repl/errors"
)

type resource string

const (
	resBuffer       resource = "buffer"
	resCompiled     resource = "compiled"
	resInstance     resource = "instance"
	resHost         resource = "host"
	resChainNode    resource = "chain"
	resRegistration resource = "registration"
)

// ledger counts outstanding resources so Reset can prove it released
// everything it acquired.
type ledger struct {
	outstanding map[resource]int
}

func newLedger() *ledger {
	return &ledger{outstanding: make(map[resource]int)}
}

func (l *ledger) acquire(r resource) {
	l.outstanding[r]++
}

func (l *ledger) release(r resource) {
	l.outstanding[r]--
}

func (l *ledger) count(r resource) int {
	return l.outstanding[r]
}

// check returns a leak error naming every unbalanced resource.
func (l *ledger) check() error {
	var bad []string
	for r, n := range l.outstanding {
		if n != 0 {
			bad = append(bad, fmt.Sprintf("%s=%d", r, n))
		}
	}
	if len(bad) == 0 {
		return nil
	}
	sort.Strings(bad)
	return errors.New(errors.PhaseRuntime, errors.KindLeak).
		Detail("unbalanced resources: %s", strings.Join(bad, ", ")).
		Build()
}
