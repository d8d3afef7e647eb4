package session

import (
	"encoding/json"
	"errors"

	apperrors "github.com/vango-dev/gigmarket/internal/errors"
	"github.com/vango-dev/gigmarket/pkg/api"
	"github.com/vango-dev/gigmarket/pkg/modal"
	"github.com/vango-dev/gigmarket/pkg/notify"
	"github.com/vango-dev/gigmarket/pkg/views"
)

// Message types. Every frame is a JSON Message; Data depends on Type.
const (
	// TypeIntent carries a views.Intent from the browser.
	TypeIntent = "intent"

	// TypeConfirm carries a confirm.Request to the browser and a
	// ConfirmAnswer back.
	TypeConfirm = "confirm"

	// TypeModal carries a modal.Change to the browser and a ModalCommand
	// back.
	TypeModal = "modal"

	// TypeHello is the first server message.
	TypeHello = "hello"

	// TypeState carries a StateMessage.
	TypeState = "state"

	// TypePopup carries a notify.Popup.
	TypePopup = notify.EventName

	// TypeError carries an ErrorMessage.
	TypeError = "error"
)

// Message is a WebSocket frame.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ConfirmAnswer is the browser's answer to a confirmation dialog.
type ConfirmAnswer struct {
	ID        string `json:"id"`
	Confirmed bool   `json:"confirmed"`
}

// ModalCommand opens or closes a dialog from the browser.
type ModalCommand struct {
	ID      modal.ID `json:"id"`
	Open    bool     `json:"open"`
	Payload string   `json:"payload,omitempty"`
}

// Hello tells the browser which session it is attached to.
type Hello struct {
	SessionID string   `json:"sessionId"`
	UserID    string   `json:"userId"`
	Role      api.Role `json:"role"`
	Resumed   bool     `json:"resumed"`
}

// StateMessage is a full dashboard snapshot. Seq increases with every
// snapshot so the browser can drop stale ones.
type StateMessage struct {
	Seq       uint64 `json:"seq"`
	Dashboard any    `json:"dashboard"`
}

// errInvalid marks frames the session could not decode.
var errInvalid = errors.New("session: invalid message")

// ErrorMessage reports a request the session could not handle.
type ErrorMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func encode(typ string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: typ, Data: raw})
}

// errorMessage classifies err for the browser.
func errorMessage(err error) ErrorMessage {
	var ae *apperrors.AppError
	var status *api.StatusError
	switch {
	case errors.As(err, &ae):
	case errors.As(err, &status):
		ae = apperrors.New(apperrors.ErrBackendRejected).Wrap(err)
	case errors.Is(err, views.ErrUnavailable):
		ae = apperrors.New(apperrors.ErrSearchUnavailable).Wrap(err)
	case errors.Is(err, views.ErrUnknownView), errors.Is(err, views.ErrUnknownAction),
		errors.Is(err, views.ErrUnknownItem), errors.Is(err, views.ErrBusy), errors.Is(err, errInvalid):
		ae = apperrors.New(apperrors.ErrInvalidRequest).Wrap(err)
	default:
		ae = apperrors.New(apperrors.ErrBackendRequest).Wrap(err)
	}
	return ErrorMessage{Code: ae.Code, Message: ae.Error()}
}
