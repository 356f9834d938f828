package controller

import (
	"encoding/binary"
	"math"
)

// InputType identifies the value type of a controller input.
type InputType uint8

const (
	// InputEmpty marks an unused input slot. It occupies no storage.
	InputEmpty InputType = iota
	// InputFloat is a float32 input.
	InputFloat
	// InputBool is a boolean input.
	InputBool
	// InputI32 is a signed 32-bit integer input.
	InputI32
)

func (t InputType) String() string {
	switch t {
	case InputFloat:
		return "float"
	case InputBool:
		return "bool"
	case InputI32:
		return "i32"
	default:
		return "empty"
	}
}

// ParseInputType maps a type name ("float", "bool", "i32") to an InputType.
func ParseInputType(s string) (InputType, bool) {
	switch s {
	case "float":
		return InputFloat, true
	case "bool":
		return InputBool, true
	case "i32", "int":
		return InputI32, true
	case "empty", "":
		return InputEmpty, true
	}
	return InputEmpty, false
}

// size returns the number of bytes an input of this type occupies in the value buffer.
func (t InputType) size() int {
	switch t {
	case InputFloat, InputI32:
		return 4
	case InputBool:
		return 1
	default:
		return 0
	}
}

// Input is a single declared input.
type Input struct {
	Name   string
	Type   InputType
	Offset int
}

// InputDecl is the ordered list of named, typed inputs a controller reads.
// Byte offsets into the value buffer follow declaration order.
type InputDecl struct {
	inputs []Input
	size   int
}

// Add declares a new input and returns its index.
//
// Parameters:
//   - name: the input name
//   - typ: the input type
//
// Returns:
//   - int: the index of the new input
func (d *InputDecl) Add(name string, typ InputType) int {
	d.inputs = append(d.inputs, Input{Name: name, Type: typ, Offset: d.size})
	d.size += typ.size()
	return len(d.inputs) - 1
}

// Len returns the number of declared inputs.
func (d *InputDecl) Len() int {
	return len(d.inputs)
}

// Input returns the declaration at index i.
func (d *InputDecl) Input(i int) Input {
	return d.inputs[i]
}

// Index returns the index of the named input, or -1 if it is not declared.
func (d *InputDecl) Index(name string) int {
	for i, in := range d.inputs {
		if in.Name == name {
			return i
		}
	}
	return -1
}

// Size returns the number of bytes needed to hold every input value.
func (d *InputDecl) Size() int {
	return d.size
}

// Inputs is a value buffer laid out by an InputDecl.
type Inputs struct {
	decl *InputDecl
	buf  []byte
}

func newInputs(decl *InputDecl) Inputs {
	return Inputs{decl: decl, buf: make([]byte, decl.Size())}
}

func (v *Inputs) valid(i int, typ InputType) bool {
	return i >= 0 && i < v.decl.Len() && v.decl.inputs[i].Type == typ
}

// SetFloat stores a float input. It reports false if the index is out of range or not a float.
func (v *Inputs) SetFloat(i int, value float32) bool {
	if !v.valid(i, InputFloat) {
		return false
	}
	binary.LittleEndian.PutUint32(v.buf[v.decl.inputs[i].Offset:], math.Float32bits(value))
	return true
}

// SetBool stores a bool input. It reports false if the index is out of range or not a bool.
func (v *Inputs) SetBool(i int, value bool) bool {
	if !v.valid(i, InputBool) {
		return false
	}
	var b byte
	if value {
		b = 1
	}
	v.buf[v.decl.inputs[i].Offset] = b
	return true
}

// SetI32 stores an i32 input. It reports false if the index is out of range or not an i32.
func (v *Inputs) SetI32(i int, value int32) bool {
	if !v.valid(i, InputI32) {
		return false
	}
	binary.LittleEndian.PutUint32(v.buf[v.decl.inputs[i].Offset:], uint32(value))
	return true
}

// Float returns a float input, or 0 if the index is out of range or not a float.
func (v *Inputs) Float(i int) float32 {
	if !v.valid(i, InputFloat) {
		return 0
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(v.buf[v.decl.inputs[i].Offset:]))
}

// Bool returns a bool input, or false if the index is out of range or not a bool.
func (v *Inputs) Bool(i int) bool {
	if !v.valid(i, InputBool) {
		return false
	}
	return v.buf[v.decl.inputs[i].Offset] != 0
}

// I32 returns an i32 input, or 0 if the index is out of range or not an i32.
func (v *Inputs) I32(i int) int32 {
	if !v.valid(i, InputI32) {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(v.buf[v.decl.inputs[i].Offset:]))
}

// Value returns any input converted to float: bools read as 0 or 1.
func (v *Inputs) Value(i int) float32 {
	if i < 0 || i >= v.decl.Len() {
		return 0
	}
	switch v.decl.inputs[i].Type {
	case InputFloat:
		return v.Float(i)
	case InputBool:
		if v.Bool(i) {
			return 1
		}
		return 0
	case InputI32:
		return float32(v.I32(i))
	}
	return 0
}
