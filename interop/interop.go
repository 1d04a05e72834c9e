// Package interop connects the search engine to github.com/mmcloughlin/addchain,
// whose chain and program types code generators such as gnark-crypto consume.
package interop

import (
	"context"
	"fmt"
	"math/big"

	mmc "github.com/mmcloughlin/addchain"
	"github.com/mmcloughlin/addchain/alg"

	"addchain.mleku.dev"
)

// Algorithm runs Search behind the alg.ChainAlgorithm interface. The zero
// value skips the branch-and-bound phase and keeps the direct constructions.
type Algorithm struct {
	Options addchain.Options
}

var _ alg.ChainAlgorithm = Algorithm{}

// NewAlgorithm returns an Algorithm with the default search options
func NewAlgorithm() Algorithm {
	return Algorithm{Options: addchain.DefaultOptions()}
}

// FindChain searches a chain ending at target
func (a Algorithm) FindChain(target *big.Int) (mmc.Chain, error) {
	c, _, err := addchain.Search(context.Background(), target, a.Options)
	if err != nil {
		return nil, err
	}
	return ToChain(c), nil
}

func (a Algorithm) String() string {
	return fmt.Sprintf("bbbd(window=%d,dichotomic=%t,factors=%t,nodes=%d)",
		a.Options.MaxWindow, a.Options.Dichotomic, a.Options.Factors, a.Options.MaxNodes)
}

// ToChain copies c into the addchain representation
func ToChain(c addchain.Chain) mmc.Chain {
	return mmc.Chain(c.Clone())
}

// FromChain copies c and checks that it is a valid chain
func FromChain(c mmc.Chain) (addchain.Chain, error) {
	out := addchain.Chain(c.Clone())
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Program converts decomposed steps into an addchain program. Programs list
// the smaller position first.
func Program(steps []addchain.Step) mmc.Program {
	p := make(mmc.Program, len(steps))
	for i, s := range steps {
		p[i] = mmc.Op{I: s.Right, J: s.Left}
	}
	return p
}

// Steps converts an addchain program into steps
func Steps(p mmc.Program) []addchain.Step {
	steps := make([]addchain.Step, len(p))
	for i, op := range p {
		steps[i] = addchain.Step{Left: max(op.I, op.J), Right: min(op.I, op.J)}
	}
	return steps
}
