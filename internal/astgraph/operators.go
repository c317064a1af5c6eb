package astgraph

import "strings"

var binaryOps = map[string]string{
	"+":  "Add",
	"-":  "Sub",
	"*":  "Mult",
	"@":  "MatMult",
	"/":  "Div",
	"%":  "Mod",
	"**": "Pow",
	"//": "FloorDiv",
	"<<": "LShift",
	">>": "RShift",
	"|":  "BitOr",
	"^":  "BitXor",
	"&":  "BitAnd",
}

var unaryOps = map[string]string{
	"-":   "USub",
	"+":   "UAdd",
	"~":   "Invert",
	"not": "Not",
}

var compareOps = map[string]string{
	"==":     "Eq",
	"!=":     "NotEq",
	"<>":     "NotEq",
	"<":      "Lt",
	"<=":     "LtE",
	">":      "Gt",
	">=":     "GtE",
	"is":     "Is",
	"is not": "IsNot",
	"in":     "In",
	"not in": "NotIn",
}

var boolOps = map[string]string{
	"and": "And",
	"or":  "Or",
}

// opName maps an operator token to its AST operator name. Unknown tokens are
// returned unchanged.
func opName(table map[string]string, tok string) string {
	if name, ok := table[tok]; ok {
		return name
	}
	return tok
}

// augmentedOp maps "+=" style tokens to the underlying binary operator.
func augmentedOp(tok string) string {
	return opName(binaryOps, strings.TrimSuffix(tok, "="))
}
