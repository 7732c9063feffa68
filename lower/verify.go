package lower

import (
	"fmt"

	"github.com/llir/llvm/ir"
)

// VerificationError reports a structurally invalid function: a block that
// falls off the end without ever branching, returning, or reaching
// unreachable.
type VerificationError struct {
	Function string
	BlockIdx int
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("function %q: block %d falls off the end without a terminator", e.Function, e.BlockIdx)
}

// Verify walks every block of fn and confirms each ends in a terminator
// instruction. original_source/src/codegen.cpp hands this check to
// llvm::verifyFunction once a function's body has been generated; lower
// has no backend verifier to delegate to, so it performs the same
// terminator check directly, after the body pass and before the module is
// handed back to the caller.
func Verify(name string, fn *ir.Func) error {
	for i, blk := range fn.Blocks {
		if blk.Term == nil {
			return &VerificationError{Function: name, BlockIdx: i}
		}
	}
	return nil
}
