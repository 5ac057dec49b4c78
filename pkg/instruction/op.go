package instruction

// Op identifies one of the eight register-machine operations.
type Op uint8

const (
	OpAdd     Op = iota // x + y
	OpSub               // x - y
	OpMul               // x * y
	OpDiv               // x / y, skipped when y == 0
	OpCos               // cos(y)
	OpLn                // ln(y), skipped when y <= 0
	OpExp               // exp(y)
	OpCondNeg           // -x when x < y
)

// NumOps is the size of the instruction set.
const NumOps = 8

var opNames = [NumOps]string{"add", "sub", "mul", "div", "cos", "ln", "exp", "neg<"}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return "op?"
}
