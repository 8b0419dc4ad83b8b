package rendergraph

import "fmt"

// ErrorKind is the compile-time error taxonomy from spec §7. All errors
// abort Compile immediately; state built by stages that already ran is
// not rolled back (see RenderGraph.Compile).
type ErrorKind int

const (
	ErrUnknownAttachment ErrorKind = iota
	ErrDoubleDef
	ErrUseOfOwnDef
	ErrUseBeforeDef
	ErrTypeMismatch
	ErrIncompatibleView
	ErrLayerOutOfRange
	ErrBufferOutOfRange
	ErrFormatMismatch
	ErrOnSurfaceDef
	ErrRenderPassInvalidDef
	ErrFramebufferBindingConflict
	ErrUnusedDefUnsupported
	ErrDoubleDefUnsupported
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnknownAttachment:
		return "UnknownAttachment"
	case ErrDoubleDef:
		return "DoubleDef"
	case ErrUseOfOwnDef:
		return "UseOfOwnDef"
	case ErrUseBeforeDef:
		return "UseBeforeDef"
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrIncompatibleView:
		return "IncompatibleView"
	case ErrLayerOutOfRange:
		return "LayerOutOfRange"
	case ErrBufferOutOfRange:
		return "BufferOutOfRange"
	case ErrFormatMismatch:
		return "FormatMismatch"
	case ErrOnSurfaceDef:
		return "OnSurfaceDef"
	case ErrRenderPassInvalidDef:
		return "RenderPassInvalidDef"
	case ErrFramebufferBindingConflict:
		return "FramebufferBindingConflict"
	case ErrUnusedDefUnsupported:
		return "UnusedDefUnsupported"
	case ErrDoubleDefUnsupported:
		return "DoubleDefUnsupported"
	default:
		return "Unknown"
	}
}

// CompileError is the single error value compile() (or addDef/addUse)
// surfaces to the caller: a kind, the pass/attachment context it happened
// in, and a human-readable message.
type CompileError struct {
	Kind       ErrorKind
	PassName   string
	Attachment string
	Message    string
}

func (e *CompileError) Error() string {
	switch {
	case e.PassName != "" && e.Attachment != "":
		return fmt.Sprintf("%s: pass %q, attachment %q: %s", e.Kind, e.PassName, e.Attachment, e.Message)
	case e.PassName != "":
		return fmt.Sprintf("%s: pass %q: %s", e.Kind, e.PassName, e.Message)
	case e.Attachment != "":
		return fmt.Sprintf("%s: attachment %q: %s", e.Kind, e.Attachment, e.Message)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

func newErr(kind ErrorKind, pass, attachment, format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: kind, PassName: pass, Attachment: attachment, Message: fmt.Sprintf(format, args...)}
}
