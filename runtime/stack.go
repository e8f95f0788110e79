package runtime

import (
	"fmt"
)

// This module implements bounded stacks of frames. A machine has two: the
// call stack of fcall/fret and the stack of pending NFA alternates.

// Frame is an entry of a stack.
type Frame struct {
	State    int   // state to continue in
	Pos      int64 // NFA: absolute input position of the alternate
	PopTrans int   // NFA: action location of the pop test
	Parent   *Frame
}

func (f *Frame) String() string {
	return fmt.Sprintf("<frame state=%d pos=%d>", f.State, f.Pos)
}

// IsRoot is a predicate: Is this the bottommost frame?
func (f *Frame) IsRoot() bool {
	return f.Parent == nil
}

// ---------------------------------------------------------------------------

// FrameStack is a stack of frames with a depth limit.
type FrameStack struct {
	Name  string
	Limit int
	base  *Frame
	tos   *Frame
	depth int
	max   int
}

// Current gets the top of stack.
func (st *FrameStack) Current() *Frame {
	if st.tos == nil {
		panic(fmt.Sprintf("runtime.FrameStack.Current: %s is empty", st.Name))
	}
	return st.tos
}

// Depth returns the number of frames on the stack.
func (st *FrameStack) Depth() int {
	return st.depth
}

// MaxDepth returns the highest depth reached since the last Reset.
func (st *FrameStack) MaxDepth() int {
	return st.max
}

// IsEmpty is a predicate: no frames on the stack?
func (st *FrameStack) IsEmpty() bool {
	return st.tos == nil
}

// Push pushes a frame. It returns false if the stack is full.
func (st *FrameStack) Push(f Frame) bool {
	if st.depth >= st.Limit {
		return false
	}
	nf := &f
	nf.Parent = st.tos
	if st.tos == nil {
		st.base = nf
	}
	st.tos = nf
	st.depth++
	if st.depth > st.max {
		st.max = st.depth
	}
	tracer().P("stack", st.Name).Debugf("push %v", nf)
	return true
}

// Pop pops the top-most frame. It returns false if the stack is empty.
func (st *FrameStack) Pop() (Frame, bool) {
	if st.tos == nil {
		return Frame{}, false
	}
	f := st.tos
	st.tos = f.Parent
	if st.tos == nil {
		st.base = nil
	}
	st.depth--
	tracer().P("stack", st.Name).Debugf("pop %v", f)
	return *f, true
}

// Reset empties the stack.
func (st *FrameStack) Reset() {
	st.base, st.tos = nil, nil
	st.depth, st.max = 0, 0
}
