package report

import "errors"

// Kind tells apart the ways report rendering can fail.
type Kind int

const (
	// KindRender covers any failure while drawing or writing the document.
	KindRender Kind = iota
	// KindBackendUnavailable means the renderer or its font could not be loaded.
	KindBackendUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindBackendUnavailable:
		return "backend_unavailable"
	default:
		return "render"
	}
}

// Sentinels for errors.Is checks against an *Error.
var (
	ErrRender             = errors.New("report rendering failed")
	ErrBackendUnavailable = errors.New("report backend unavailable")
)

// Error is the tagged failure returned by Render.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == KindBackendUnavailable {
		return ErrBackendUnavailable.Error() + ": " + e.Err.Error()
	}
	return ErrRender.Error() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrBackendUnavailable:
		return e.Kind == KindBackendUnavailable
	case ErrRender:
		return e.Kind == KindRender
	}
	return false
}

// KindOf reports the kind of a rendering error. Errors that did not come from
// Render are treated as KindRender.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return KindRender
}
