// Copyright (C) 2021  Antonio Lassandro

// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU General Public License as published by the Free
// Software Foundation, either version 3 of the License, or (at your option)
// any later version.

// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU General Public License for
// more details.

// You should have received a copy of the GNU General Public License along
// with this program.  If not, see <http://www.gnu.org/licenses/>.

// Package trace logs machine execution one instruction at a time.
package trace

import (
	"github.com/tliron/commonlog"

	"github.com/lassandro/intcode/pkg/debugger"
	"github.com/lassandro/intcode/pkg/machine"
)

// Tracer is a machine.MachineDebugger that logs every step and memory access
// made by the instruction set, then forwards the call to Next.
type Tracer struct {
	Log  commonlog.Logger
	Next machine.MachineDebugger

	last machine.Status
}

func New(name string, next machine.MachineDebugger) *Tracer {
	return &Tracer{Log: commonlog.GetLogger(name), Next: next}
}

// Attach installs a tracer in front of the machine's current debugger.
func Attach(mc *machine.Machine, name string) *Tracer {
	tracer := New(name, mc.Debugger)
	mc.Debugger = tracer
	return tracer
}

func (tracer *Tracer) Step(mc *machine.Machine) {
	status := mc.Status()

	if tracer.Log.AllowLevel(commonlog.Debug) {
		text, _ := debugger.Disassemble(mc, mc.IP())
		tracer.Log.Debugf(
			"step %d ip=%d rb=%d next: %s", mc.Steps(), mc.IP(), mc.RelativeBase(), text,
		)
	}

	if status == machine.ProducedOutput || (status != tracer.last && status != machine.Runnable) {
		switch status {
		case machine.ProducedOutput:
			tracer.Log.Infof("output %d at ip %d", mc.State.Output[len(mc.State.Output)-1], mc.IP())
		default:
			tracer.Log.Infof("%s at ip %d after %d steps", status, mc.IP(), mc.Steps())
		}
	}

	tracer.last = status

	if tracer.Next != nil {
		tracer.Next.Step(mc)
	}
}

func (tracer *Tracer) Read(addr int64, mc *machine.Machine) {
	if tracer.Log.AllowLevel(commonlog.Debug) {
		value, _ := mc.Peek(addr)
		tracer.Log.Debugf("read [%d] = %d", addr, value)
	}

	if tracer.Next != nil {
		tracer.Next.Read(addr, mc)
	}
}

func (tracer *Tracer) Write(addr int64, mc *machine.Machine) {
	if tracer.Log.AllowLevel(commonlog.Debug) {
		value, _ := mc.Peek(addr)
		tracer.Log.Debugf("write [%d] = %d", addr, value)
	}

	if tracer.Next != nil {
		tracer.Next.Write(addr, mc)
	}
}
