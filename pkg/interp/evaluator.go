// Package interp implements UnDAG's instruction set and execution driver:
// the evaluator resolves one commit message's arguments against the
// current table and dispatches the fixed instruction catalog (spec §4.4);
// the driver (driver.go) owns the program counter and advances it.
package interp

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"undag/pkg/lexer"
	"undag/pkg/table"
	"undag/pkg/value"
)

// StepResult reports what the driver should do after one instruction has
// run: either advance to the unique child, or — for branch — resolve a
// tag through the path router.
type StepResult struct {
	Branch  bool
	TagName string
}

// Evaluator owns the variable environment and the program's stdio handles.
// It has no notion of the commit graph; the driver supplies one message at
// a time and interprets the StepResult.
type Evaluator struct {
	table  *table.Table
	stdin  *bufio.Reader
	stdout io.Writer
}

// NewEvaluator creates an evaluator with a fresh root table.
func NewEvaluator(stdin io.Reader, stdout io.Writer) *Evaluator {
	return &Evaluator{
		table:  table.New(),
		stdin:  bufio.NewReader(stdin),
		stdout: stdout,
	}
}

// Table exposes the current table, mainly so callers such as tests can
// inspect bindings without the evaluator's package
// exporting it as part of normal instruction flow.
func (e *Evaluator) Table() *table.Table { return e.table }

// Exec lexes message and dispatches the resulting instruction. A false
// StepResult.Branch means the driver should advance to message's unique
// child; Branch true means it should resolve TagName via the router.
func (e *Evaluator) Exec(message string) (StepResult, error) {
	args, err := lexer.Tokenize(message)
	if err != nil {
		return StepResult{}, newErr(KindLexError, err)
	}
	if len(args) == 0 {
		return StepResult{}, nil
	}

	head := args[0]
	if head.Kind != lexer.KindLiteral {
		return StepResult{}, errf(KindParseError, "instruction name must be a bare word, got %s", head)
	}
	op := head.Literal
	rest := args[1:]

	switch op {
	case "":
		return StepResult{}, errf(KindParseError, "empty instruction name with %d argument(s) present", len(rest))
	case "set":
		return StepResult{}, e.execSet(rest)
	case "get":
		return StepResult{}, e.execGet(rest)
	case "del":
		return StepResult{}, e.execDel(rest)
	case "exists":
		return StepResult{}, e.execExists(rest)
	case "branch":
		return e.execBranch(rest)
	case "enter":
		return StepResult{}, e.execEnter(rest)
	case "exit":
		return StepResult{}, e.execExit(rest)
	case "match":
		return StepResult{}, e.execMatch(rest)
	case "print":
		return StepResult{}, e.execPrint(rest, false)
	case "println":
		return StepResult{}, e.execPrint(rest, true)
	case "inpln":
		return StepResult{}, e.execInpln(rest)
	case "concat":
		return StepResult{}, e.execConcat(rest)
	case "chars":
		return StepResult{}, e.execChars(rest)
	case "eq":
		return StepResult{}, e.execEq(rest)
	case "gt":
		return StepResult{}, e.execNumBinop(rest, "gt", func(a, b int64) int64 { return boolInt(a > b) })
	case "add":
		return StepResult{}, e.execNumBinop(rest, "add", func(a, b int64) int64 { return a + b })
	case "sub":
		return StepResult{}, e.execNumBinop(rest, "sub", func(a, b int64) int64 { return a - b })
	case "mul":
		return StepResult{}, e.execNumBinop(rest, "mul", func(a, b int64) int64 { return a * b })
	case "div":
		return StepResult{}, e.execDivMod(rest, "div", func(a, b int64) int64 { return a / b })
	case "mod":
		return StepResult{}, e.execDivMod(rest, "mod", func(a, b int64) int64 { return a % b })
	case "and":
		return StepResult{}, e.execNumBinop(rest, "and", func(a, b int64) int64 { return a & b })
	case "or":
		return StepResult{}, e.execNumBinop(rest, "or", func(a, b int64) int64 { return a | b })
	case "xor":
		return StepResult{}, e.execNumBinop(rest, "xor", func(a, b int64) int64 { return a ^ b })
	default:
		return StepResult{}, errf(KindParseError, "unknown instruction %q", op)
	}
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// resolve turns a lexed argument into a Value: a Literal becomes a Str, an
// IntLit becomes an Int, and a VarRef is looked up in the current table.
func (e *Evaluator) resolve(a lexer.Arg) (value.Value, error) {
	switch a.Kind {
	case lexer.KindLiteral:
		return value.Str(a.Literal), nil
	case lexer.KindIntLit:
		return value.Int(a.Int), nil
	case lexer.KindVarRef:
		v, err := e.table.Get(a.Literal)
		if err != nil {
			return nil, errf(KindNameError, "undefined variable %q", a.Literal)
		}
		val, ok := v.(value.Value)
		if !ok {
			return nil, errf(KindTypeError, "%q names a table, not a value", a.Literal)
		}
		return val, nil
	default:
		return nil, errf(KindParseError, "unrecognized argument %v", a)
	}
}

// nameOf resolves a to a Value and takes its string form, used for the
// name arguments that rawName does not cover: the destination of get,
// exists, del, match, inpln, concat, chars, eq and the numeric ops, and
// branch's tag. Resolution (including a VarRef lookup) happens first, so a
// name argument may itself be computed.
func (e *Evaluator) nameOf(a lexer.Arg) (string, error) {
	v, err := e.resolve(a)
	if err != nil {
		return "", err
	}
	return v.String(), nil
}

// rawName takes a's lexed text as-is, with no resolution: spec §4.4 marks
// a handful of name arguments literal even when lexed with a sigil —
// set's destination, get's source, exists' probed symbol, enter's
// namespace — so $x there names the variable "x" directly rather than
// looking x up and using its value as a name.
func rawName(a lexer.Arg) string {
	if a.Kind == lexer.KindIntLit {
		return strconv.FormatInt(a.Int, 10)
	}
	return a.Literal
}

func arity(op string, args []lexer.Arg, want int) error {
	if len(args) != want {
		return errf(KindArityError, "%s: expected %d argument(s), got %d", op, want, len(args))
	}
	return nil
}

func (e *Evaluator) execSet(args []lexer.Arg) error {
	if err := arity("set", args, 2); err != nil {
		return err
	}
	name := rawName(args[0])
	val, err := e.resolve(args[1])
	if err != nil {
		return err
	}
	return e.table.Set(name, val)
}

func (e *Evaluator) execGet(args []lexer.Arg) error {
	if err := arity("get", args, 2); err != nil {
		return err
	}
	name, err := e.nameOf(args[0])
	if err != nil {
		return err
	}
	srcName := rawName(args[1])
	v, err := e.table.Get(srcName)
	if err != nil {
		return errf(KindNameError, "get: undefined source %q", srcName)
	}
	val, ok := v.(value.Value)
	if !ok {
		return errf(KindTypeError, "get: %q names a table, not a value", srcName)
	}
	return e.table.Set(name, val)
}

func (e *Evaluator) execDel(args []lexer.Arg) error {
	if err := arity("del", args, 1); err != nil {
		return err
	}
	name, err := e.nameOf(args[0])
	if err != nil {
		return err
	}
	e.table.Delete(name)
	return nil
}

func (e *Evaluator) execExists(args []lexer.Arg) error {
	if err := arity("exists", args, 2); err != nil {
		return err
	}
	name, err := e.nameOf(args[0])
	if err != nil {
		return err
	}
	symbol := rawName(args[1])
	return e.table.Set(name, value.Int(boolInt(e.table.Exists(symbol))))
}

func (e *Evaluator) execBranch(args []lexer.Arg) (StepResult, error) {
	if err := arity("branch", args, 1); err != nil {
		return StepResult{}, err
	}
	tag, err := e.nameOf(args[0])
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Branch: true, TagName: tag}, nil
}

func (e *Evaluator) execEnter(args []lexer.Arg) error {
	if err := arity("enter", args, 1); err != nil {
		return err
	}
	name := rawName(args[0])
	var err error
	cur := e.table
	for _, seg := range strings.Split(name, "/") {
		cur, err = cur.Enter(seg)
		if err != nil {
			return errf(KindGraphError, "enter %q: %v", name, err)
		}
	}
	e.table = cur
	return nil
}

func (e *Evaluator) execExit(args []lexer.Arg) error {
	if err := arity("exit", args, 0); err != nil {
		return err
	}
	parent, err := e.table.Exit()
	if err != nil {
		return errf(KindNameError, "%v", err)
	}
	e.table = parent
	return nil
}

func (e *Evaluator) execMatch(args []lexer.Arg) error {
	if len(args) < 2 {
		return errf(KindArityError, "match: expected at least 2 arguments, got %d", len(args))
	}
	name, err := e.nameOf(args[0])
	if err != nil {
		return err
	}
	target, err := e.resolve(args[1])
	if err != nil {
		return err
	}
	pairs := args[2:]
	if len(pairs)%2 != 0 {
		return errf(KindArityError, "match: trailing branch pairs must come in (value, result) twos, got %d", len(pairs))
	}
	for i := 0; i < len(pairs); i += 2 {
		candidate, err := e.resolve(pairs[i])
		if err != nil {
			return err
		}
		if value.Equal(candidate, target) {
			result, err := e.resolve(pairs[i+1])
			if err != nil {
				return err
			}
			return e.table.Set(name, result)
		}
	}
	return nil
}

func (e *Evaluator) execPrint(args []lexer.Arg, newline bool) error {
	op := "print"
	if newline {
		op = "println"
	}
	if err := arity(op, args, 1); err != nil {
		return err
	}
	val, err := e.resolve(args[0])
	if err != nil {
		return err
	}
	text := val.String()
	if newline {
		text += "\n"
	}
	if _, err := io.WriteString(e.stdout, text); err != nil {
		return errf(KindIOError, "%s: %v", op, err)
	}
	return nil
}

func (e *Evaluator) execInpln(args []lexer.Arg) error {
	if err := arity("inpln", args, 1); err != nil {
		return err
	}
	name, err := e.nameOf(args[0])
	if err != nil {
		return err
	}
	line, readErr := e.stdin.ReadString('\n')
	if readErr != nil && readErr != io.EOF {
		return errf(KindIOError, "inpln: %v", readErr)
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return e.table.Set(name, value.Str(line))
}

func (e *Evaluator) execConcat(args []lexer.Arg) error {
	if err := arity("concat", args, 3); err != nil {
		return err
	}
	name, err := e.nameOf(args[0])
	if err != nil {
		return err
	}
	a, err := e.resolve(args[1])
	if err != nil {
		return err
	}
	b, err := e.resolve(args[2])
	if err != nil {
		return err
	}
	return e.table.Set(name, value.Str(a.String()+b.String()))
}

func (e *Evaluator) execChars(args []lexer.Arg) error {
	if err := arity("chars", args, 2); err != nil {
		return err
	}
	name, err := e.nameOf(args[0])
	if err != nil {
		return err
	}
	src, err := e.resolve(args[1])
	if err != nil {
		return err
	}
	sub, err := e.table.Fresh(name)
	if err != nil {
		return errf(KindGraphError, "chars: %v", err)
	}
	runes := []rune(src.String())
	for i, c := range runes {
		if err := sub.Set(strconv.Itoa(i), value.Str(string(c))); err != nil {
			return err
		}
	}
	return sub.Set("len", value.Int(int64(len(runes))))
}

func (e *Evaluator) execEq(args []lexer.Arg) error {
	if err := arity("eq", args, 3); err != nil {
		return err
	}
	name, err := e.nameOf(args[0])
	if err != nil {
		return err
	}
	a, err := e.resolve(args[1])
	if err != nil {
		return err
	}
	b, err := e.resolve(args[2])
	if err != nil {
		return err
	}
	return e.table.Set(name, value.Int(boolInt(value.Equal(a, b))))
}

func (e *Evaluator) execNumBinop(args []lexer.Arg, op string, fn func(a, b int64) int64) error {
	if err := arity(op, args, 3); err != nil {
		return err
	}
	name, err := e.nameOf(args[0])
	if err != nil {
		return err
	}
	av, err := e.resolve(args[1])
	if err != nil {
		return err
	}
	bv, err := e.resolve(args[2])
	if err != nil {
		return err
	}
	a, err := value.AsInt(av)
	if err != nil {
		return errf(KindTypeError, "%s: %v", op, err)
	}
	b, err := value.AsInt(bv)
	if err != nil {
		return errf(KindTypeError, "%s: %v", op, err)
	}
	return e.table.Set(name, value.Int(fn(a, b)))
}

func (e *Evaluator) execDivMod(args []lexer.Arg, op string, fn func(a, b int64) int64) error {
	if err := arity(op, args, 3); err != nil {
		return err
	}
	name, err := e.nameOf(args[0])
	if err != nil {
		return err
	}
	av, err := e.resolve(args[1])
	if err != nil {
		return err
	}
	bv, err := e.resolve(args[2])
	if err != nil {
		return err
	}
	a, err := value.AsInt(av)
	if err != nil {
		return errf(KindTypeError, "%s: %v", op, err)
	}
	b, err := value.AsInt(bv)
	if err != nil {
		return errf(KindTypeError, "%s: %v", op, err)
	}
	if b == 0 {
		return errf(KindDivisionByZero, "%s: division by zero", op)
	}
	return e.table.Set(name, value.Int(fn(a, b)))
}
