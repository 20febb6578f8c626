package checkout

import (
	"errors"
	"fmt"

	"github.com/fjod/go_travel/internal/commerce"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrRemoteCallFailed  = errors.New("remote call failed")
	ErrDraftMissing      = errors.New("transaction draft missing")
	ErrBusy              = errors.New("checkout step in progress")
	ErrIllegalTransition = errors.New("illegal checkout transition")
	ErrFinished          = errors.New("checkout already finished")
)

// GenericRemoteMessage is shown when the remote API gave no message of its own.
const GenericRemoteMessage = "Something went wrong, please try again."

type Kind int

const (
	KindValidation Kind = iota + 1
	KindRemoteCall
	KindDraftMissing
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindRemoteCall:
		return "remote_call_failed"
	case KindDraftMissing:
		return "draft_missing"
	default:
		return "unknown"
	}
}

// Error is a stage failure. Message is what the user sees.
type Error struct {
	Kind    Kind
	Stage   Stage
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s at %s: %s: %v", e.Kind, e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s at %s: %s", e.Kind, e.Stage, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrRemoteCallFailed:
		return e.Kind == KindRemoteCall
	case ErrDraftMissing:
		return e.Kind == KindDraftMissing
	}
	return false
}

func validationError(stage Stage, msg string) *Error {
	return &Error{Kind: KindValidation, Stage: stage, Message: msg}
}

func draftMissingError() *Error {
	return &Error{Kind: KindDraftMissing, Stage: StageReview, Message: "Your cart selection is gone, please return to the cart."}
}

// remoteError wraps a failed remote call, preferring the API's own message.
func remoteError(stage Stage, err error) *Error {
	msg := commerce.Message(err)
	if msg == "" {
		msg = GenericRemoteMessage
	}
	return &Error{Kind: KindRemoteCall, Stage: stage, Message: msg, Err: err}
}
