package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jedib0t/go-pretty/v6/table"
)

const (
	LevelTrace slog.Level = slog.LevelDebug - 4
)

// Trace logs simulation events below the debug level.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

// DumpState renders the register file and the execution status of the core.
func (c *Core) DumpState(w io.Writer) {
	regTable := table.NewWriter()
	regTable.SetOutputMirror(w)
	regTable.SetTitle(fmt.Sprintf("%s (PC=%#x, ErrCode=%s, Insts=%d)",
		c.Name(), c.state.PC, c.state.ErrCode, c.state.NumInsts))

	regTable.AppendHeader(table.Row{"Row", "+0", "+1", "+2", "+3", "+4", "+5", "+6", "+7"})

	for row := 0; row < numRegs/8; row++ {
		regRow := table.Row{fmt.Sprintf("$%d", row*8)}
		for i := 0; i < 8; i++ {
			regRow = append(regRow, fmt.Sprintf("%#08x", c.state.Registers[row*8+i]))
		}
		regTable.AppendRow(regRow)
	}

	regTable.Render()
}
