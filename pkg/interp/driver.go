package interp

import (
	"fmt"
	"io"

	"undag/pkg/graph"
)

// State is the driver's coarse-grained execution state (spec §4.4).
type State int

const (
	Running State = iota
	Halted
)

func (s State) String() string {
	if s == Halted {
		return "halted"
	}
	return "running"
}

// Config carries the ambient knobs the core itself has no opinion on: a
// step budget to catch a program that never reaches _end, and an optional
// sink for a step-by-step trace. Both are read by pkg/config from an
// optional undag.yml; neither changes the language's semantics.
type Config struct {
	MaxSteps int // 0 disables the guard
	Trace    io.Writer
}

// Driver owns the program counter and advances it across commits,
// delegating each step's instruction to an Evaluator (spec §4.4's "Driver
// state machine").
type Driver struct {
	graph *graph.CommitGraph
	eval  *Evaluator
	pc    graph.CommitID
	state State
	cfg   Config
	steps int
}

// NewDriver creates a driver positioned at g's _start commit.
func NewDriver(g *graph.CommitGraph, eval *Evaluator, cfg Config) *Driver {
	return &Driver{
		graph: g,
		eval:  eval,
		pc:    g.Start(),
		state: Running,
		cfg:   cfg,
	}
}

// PC returns the commit the driver is currently positioned at.
func (d *Driver) PC() graph.CommitID { return d.pc }

// State returns the driver's current state.
func (d *Driver) State() State { return d.state }

// Run advances the driver until it halts at _end or hits an error. Every
// returned error is an *Error carrying the offending commit's identity.
func (d *Driver) Run() error {
	for d.state == Running {
		if err := d.step(); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) step() error {
	if d.cfg.MaxSteps > 0 {
		d.steps++
		if d.steps > d.cfg.MaxSteps {
			return d.fail(errf(KindGraphError, "exceeded max_steps (%d) without reaching _end", d.cfg.MaxSteps))
		}
	}

	msg := d.graph.Message(d.pc)
	if d.cfg.Trace != nil {
		fmt.Fprintf(d.cfg.Trace, "%s: %s\n", d.pc, msg)
	}

	result, err := d.eval.Exec(msg)
	if err != nil {
		return d.fail(err)
	}

	// Spec §4.4: the _end commit's instruction still executes; only once
	// it has run does the driver halt, regardless of what that
	// instruction was.
	if d.pc == d.graph.End() {
		d.state = Halted
		return nil
	}

	if result.Branch {
		return d.advanceBranch(result.TagName)
	}
	return d.advanceStraightLine()
}

func (d *Driver) advanceBranch(tagName string) error {
	target, ok := d.graph.Tag(tagName)
	if !ok {
		return d.fail(errf(KindTagError, "branch: unknown tag %q", tagName))
	}
	next, err := graph.NextHop(d.graph, d.pc, target)
	if err != nil {
		return d.fail(errf(KindRoutingError, "branch: no path from current commit to tag %q", tagName))
	}
	d.pc = next
	return nil
}

func (d *Driver) advanceStraightLine() error {
	children := d.graph.Children(d.pc)
	if len(children) != 1 {
		return d.fail(errf(KindGraphError, "commit has %d children, straight-line advance requires exactly one (multi-child commits must be followed by branch)", len(children)))
	}
	d.pc = children[0]
	return nil
}

// fail attaches the driver's current position — commit identity and
// instruction text — to err (spec §7's "offending commit").
func (d *Driver) fail(err error) error {
	return withCommit(err, d.pc, d.graph.Message(d.pc))
}
