package tg

import (
	"errors"

	"github.com/zelenin/go-tdlib/client"
)

var ErrNotAuthorized = errors.New("tdlib: session is not authorized, run with AUTH_MODE=true")

// runtimeAuthorizer без консоли: состояния, где нужен ввод пользователя, сразу завершаются ошибкой.
// Остальное (параметры TDLib, закрытие) делает обычный ClientAuthorizer.
type runtimeAuthorizer struct {
	client.AuthorizationStateHandler
}

func newRuntimeAuthorizer(inner client.AuthorizationStateHandler) *runtimeAuthorizer {
	return &runtimeAuthorizer{AuthorizationStateHandler: inner}
}

func (a *runtimeAuthorizer) Handle(c *client.Client, state client.AuthorizationState) error {
	if needsUserInput(state) {
		return ErrNotAuthorized
	}
	return a.AuthorizationStateHandler.Handle(c, state)
}

func needsUserInput(state client.AuthorizationState) bool {
	switch state.AuthorizationStateType() {
	case client.TypeAuthorizationStateWaitPhoneNumber,
		client.TypeAuthorizationStateWaitCode,
		client.TypeAuthorizationStateWaitPassword,
		client.TypeAuthorizationStateWaitEmailAddress,
		client.TypeAuthorizationStateWaitEmailCode,
		client.TypeAuthorizationStateWaitOtherDeviceConfirmation,
		client.TypeAuthorizationStateWaitRegistration:
		return true
	}
	return false
}
