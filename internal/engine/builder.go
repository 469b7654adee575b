package engine

import (
	"fmt"
	"time"

	"codeberg.org/sigterm-de/scripter/internal/completions"
	"codeberg.org/sigterm-de/scripter/internal/take"
	"github.com/dop251/goja"
)

// builder is the `take` object passed to main(take). It records the steps
// in call order; Result turns them into a validated take.Script.
//
// postError() discards everything and fails the evaluation. postInfo() is
// surfaced alongside a successful result.
type builder struct {
	startBuffer string
	cursor      *int
	filled      string
	steps       []take.Step
	cached      map[int][]completions.Candidate

	errorPosted  bool
	errorMessage string
	infoPosted   bool
	infoMessage  string
}

func newBuilder() *builder {
	return &builder{}
}

// PostError records the first error message.
func (b *builder) PostError(msg string) {
	if !b.errorPosted {
		b.errorPosted = true
		b.errorMessage = msg
	}
}

// PostInfo records the first info message.
func (b *builder) PostInfo(msg string) {
	if !b.infoPosted {
		b.infoPosted = true
		b.infoMessage = msg
	}
}

// Result validates the recorded take.
func (b *builder) Result(name string) Result {
	base := Result{Name: name}
	if b.errorPosted {
		base.ErrorMessage = b.errorMessage
		return base
	}

	s := take.Script{
		Name:          name,
		Steps:         b.steps,
		StartBuffer:   b.startBuffer,
		FilledBuffer:  b.filled,
		InitialCursor: b.cursor,
		Cached:        b.cached,
	}
	take.Normalize(&s)
	if err := take.Validate(s); err != nil {
		base.ErrorMessage = err.Error()
		return base
	}
	base.Success = true
	base.Script = s
	if b.infoPosted {
		base.InfoMessage = b.infoMessage
	}
	return base
}

// bindBuilder exposes b to the VM. Every step method returns the take object
// so calls can be chained.
func bindBuilder(vm *goja.Runtime, b *builder) *goja.Object {
	obj := vm.NewObject()
	self := func(fn func(call goja.FunctionCall)) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			fn(call)
			return obj
		}
	}

	obj.Set("start", self(func(call goja.FunctionCall) {
		b.startBuffer = call.Argument(0).String()
		if v := call.Argument(1); present(v) {
			n := int(v.ToInteger())
			b.cursor = &n
		}
	}))

	obj.Set("filled", self(func(call goja.FunctionCall) {
		b.filled = call.Argument(0).String()
	}))

	// chars(seq, ms) or chars(seq, {ms, skipCompletions})
	obj.Set("chars", self(func(call goja.FunctionCall) {
		c := take.Chars{Sequence: call.Argument(0).String()}
		switch v := call.Argument(1); {
		case !present(v):
		case isObject(v):
			o := v.ToObject(vm)
			c.Amount = millis(o.Get("ms"))
			c.SkipCompletions = boolean(o.Get("skipCompletions"))
		default:
			c.Amount = millis(v)
		}
		b.steps = append(b.steps, c)
	}))

	obj.Set("pause", self(func(call goja.FunctionCall) {
		b.steps = append(b.steps, take.Pause{Amount: millis(call.Argument(0))})
	}))

	obj.Set("completion", self(func(call goja.FunctionCall) {
		v := call.Argument(0)
		if !isObject(v) {
			panic(vm.NewTypeError("completion requires an options object"))
		}
		o := v.ToObject(vm)
		placement, err := take.ParsePlacement(str(o.Get("placement")))
		if err != nil {
			panic(vm.NewGoError(err))
		}
		b.steps = append(b.steps, take.Completion{
			Select:                 str(o.Get("select")),
			Complete:               str(o.Get("complete")),
			FinalSelectionWait:     millis(o.Get("finalSelectionWait")),
			CursorCaption:          str(o.Get("cursorCaption")),
			CursorCaptionPlacement: placement,
			MarginTop:              int(integer(o.Get("marginTop"))),
			MarginLeft:             int(integer(o.Get("marginLeft"))),
			AfterClass:             str(o.Get("afterClass")),
			Amount:                 millis(o.Get("ms")),
		})
	}))

	obj.Set("caption", self(func(call goja.FunctionCall) {
		c := take.Caption{Text: call.Argument(0).String()}
		if v := call.Argument(1); isObject(v) {
			c.CompletionCaptionPadding = boolean(v.ToObject(vm).Get("padding"))
		}
		b.steps = append(b.steps, c)
	}))

	obj.Set("hideCaption", self(func(goja.FunctionCall) {
		b.steps = append(b.steps, take.Caption{Hide: true})
	}))

	// cache(offset, [{display, insert, hint, symbolId}, ...])
	obj.Set("cache", self(func(call goja.FunctionCall) {
		offset := int(call.Argument(0).ToInteger())
		var items []completions.Candidate
		if err := vm.ExportTo(call.Argument(1), &items); err != nil {
			panic(vm.NewGoError(fmt.Errorf("cache: %w", err)))
		}
		if b.cached == nil {
			b.cached = make(map[int][]completions.Candidate)
		}
		b.cached[offset] = append(b.cached[offset], items...)
	}))

	obj.Set("postError", func(call goja.FunctionCall) goja.Value {
		b.PostError(call.Argument(0).String())
		return goja.Undefined()
	})
	obj.Set("postInfo", func(call goja.FunctionCall) goja.Value {
		b.PostInfo(call.Argument(0).String())
		return goja.Undefined()
	})

	return obj
}

func present(v goja.Value) bool {
	return v != nil && !goja.IsUndefined(v) && !goja.IsNull(v)
}

func isObject(v goja.Value) bool {
	if !present(v) {
		return false
	}
	_, ok := v.(*goja.Object)
	return ok
}

func str(v goja.Value) string {
	if !present(v) {
		return ""
	}
	return v.String()
}

func integer(v goja.Value) int64 {
	if !present(v) {
		return 0
	}
	return v.ToInteger()
}

func boolean(v goja.Value) bool {
	return present(v) && v.ToBoolean()
}

func millis(v goja.Value) time.Duration {
	return time.Duration(integer(v)) * time.Millisecond
}
