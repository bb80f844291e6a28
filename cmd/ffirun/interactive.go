package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/ffi-runtime/vptr"
)

const historySize = 5

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Pick and call exports interactively",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("tui needs a terminal; use the subcommands instead")
		}
		_, err := tea.NewProgram(newPicker(operations()), tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

type pickerMode int

const (
	modePick pickerMode = iota
	modeArgs
	modeResult
)

// call is one finished call, with the live handle count after it returned.
type call struct {
	op     string
	args   []string
	result string
	err    error
	live   int
}

// picker lists the operations, collects arguments and shows results. The
// live handle count after each call makes leaked closures and futures
// visible.
type picker struct {
	ops     []operation
	cursor  int
	mode    pickerMode
	fields  []textinput.Model
	focus   int
	last    *call
	history []call
}

func newPicker(ops []operation) *picker {
	return &picker{ops: ops}
}

func (p *picker) Init() tea.Cmd { return nil }

func (p *picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case call:
		p.last = &msg
		p.history = append(p.history, msg)
		if len(p.history) > historySize {
			p.history = p.history[1:]
		}
		p.mode = modeResult
		return p, nil

	case tea.KeyMsg:
		if cmd, handled := p.key(msg.String()); handled {
			return p, cmd
		}
	}

	if p.mode != modeArgs {
		return p, nil
	}
	cmds := make([]tea.Cmd, len(p.fields))
	for i := range p.fields {
		p.fields[i], cmds[i] = p.fields[i].Update(msg)
	}
	return p, tea.Batch(cmds...)
}

// key handles navigation keys. Unhandled keys go to the argument fields.
func (p *picker) key(k string) (tea.Cmd, bool) {
	switch k {
	case "ctrl+c":
		return tea.Quit, true
	case "q":
		if p.mode != modeArgs {
			return tea.Quit, true
		}
	case "up", "k":
		if p.mode == modePick && p.cursor > 0 {
			p.cursor--
			return nil, true
		}
	case "down", "j":
		if p.mode == modePick && p.cursor < len(p.ops)-1 {
			p.cursor++
			return nil, true
		}
	case "tab":
		if p.mode == modeArgs && len(p.fields) > 1 {
			p.fields[p.focus].Blur()
			p.focus = (p.focus + 1) % len(p.fields)
			p.fields[p.focus].Focus()
			return nil, true
		}
	case "esc":
		if p.mode != modePick {
			p.back()
			return nil, true
		}
	case "enter":
		switch p.mode {
		case modePick:
			p.openArgs()
			if len(p.fields) == 0 {
				return p.invoke, true
			}
			p.mode = modeArgs
		case modeArgs:
			return p.invoke, true
		case modeResult:
			p.back()
		}
		return nil, true
	}
	return nil, false
}

func (p *picker) back() {
	p.mode = modePick
	p.fields = nil
	p.last = nil
}

func (p *picker) openArgs() {
	op := p.ops[p.cursor]
	p.fields = make([]textinput.Model, len(op.params))
	for i, prm := range op.params {
		f := textinput.New()
		f.Prompt = prm.name + ": "
		f.Placeholder = prm.typeStr
		f.Width = 40
		if i == 0 {
			f.Focus()
		}
		p.fields[i] = f
	}
	p.focus = 0
}

func (p *picker) invoke() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
	defer cancel()

	op := p.ops[p.cursor]
	args := make([]string, len(p.fields))
	for i, f := range p.fields {
		args[i] = f.Value()
	}
	result, err := op.run(ctx, args)
	return call{op: op.name, args: args, result: result, err: err, live: vptr.Live()}
}

func (p *picker) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("ffi producer"))
	b.WriteString(hintStyle.Render(fmt.Sprintf("  live handles: %d", vptr.Live())))
	b.WriteString("\n\n")

	switch p.mode {
	case modePick:
		b.WriteString("Select an export to call:\n\n")
		for i, op := range p.ops {
			line := formatOp(op)
			if i == p.cursor {
				line = cursorStyle.Render("> " + line)
			} else {
				line = "  " + line
			}
			b.WriteString(line + "\n")
		}
		if len(p.history) > 0 {
			b.WriteString("\nRecent calls:\n")
			for _, c := range p.history {
				b.WriteString("  " + formatCall(c) + "\n")
			}
		}
		b.WriteString("\n" + hintStyle.Render("↑/↓ select • enter call • q quit"))

	case modeArgs:
		op := p.ops[p.cursor]
		fmt.Fprintf(&b, "Calling %s\n\n", opStyle.Render(op.name))
		for i, f := range p.fields {
			b.WriteString(f.View() + " " + argStyle.Render(op.params[i].typeStr) + "\n")
		}
		b.WriteString("\n" + hintStyle.Render("tab next field • enter call • esc back"))

	case modeResult:
		if p.last != nil {
			b.WriteString(formatCall(*p.last))
			fmt.Fprintf(&b, "\n\n%s", hintStyle.Render(fmt.Sprintf("live handles after call: %d", p.last.live)))
		}
		b.WriteString("\n\n" + hintStyle.Render("enter continue • q quit"))
	}
	return b.String()
}

func formatOp(op operation) string {
	params := make([]string, len(op.params))
	for i, prm := range op.params {
		params[i] = prm.name + ": " + argStyle.Render(prm.typeStr)
	}
	return opStyle.Render(op.name) + "(" + strings.Join(params, ", ") + ")"
}

func formatCall(c call) string {
	head := opStyle.Render(c.op) + "(" + strings.Join(c.args, ", ") + ")"
	if c.err != nil {
		return head + " " + errorStyle.Render("error: "+c.err.Error())
	}
	return head + " = " + valueStyle.Render(c.result)
}
