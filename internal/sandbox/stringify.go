package sandbox

import (
	"strings"

	"github.com/dop251/goja"
)

// line renders one console call: arguments stringified and joined by
// single spaces
func (r *Runtime) line(args []goja.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = r.display(arg)
	}
	return strings.Join(parts, " ")
}

// display renders a single console argument. Plain objects and arrays
// serialize through the VM's own JSON.stringify; everything else takes
// its natural string conversion. The stringify callable is captured at
// setup time, so a snippet reassigning JSON cannot alter capture.
func (r *Runtime) display(v goja.Value) string {
	if v == nil {
		return "undefined"
	}

	obj, isObj := v.(*goja.Object)
	if !isObj {
		return v.String()
	}
	if _, isFn := goja.AssertFunction(obj); isFn {
		return v.String()
	}
	if r.stringify == nil {
		return v.String()
	}

	s, err := r.stringify(goja.Undefined(), obj)
	if err != nil || s == nil || goja.IsUndefined(s) {
		// Cyclic or otherwise unserializable values fall back to
		// their default string form
		return v.String()
	}
	return s.String()
}

// captureStringify caches JSON.stringify before any snippet runs
func (r *Runtime) captureStringify() {
	r.stringify = nil
	jsonVal := r.vm.Get("JSON")
	if jsonVal == nil {
		return
	}
	jsonObj := jsonVal.ToObject(r.vm)
	if jsonObj == nil {
		return
	}
	if fn, ok := goja.AssertFunction(jsonObj.Get("stringify")); ok {
		r.stringify = fn
	}
}
