// Package errors provides custom error types and client-facing messages of the API layer.
package errors

// Messages shown to the client as is.
const (
	MsgLoginRejected      = "SteamID не подходит для пополнения"
	MsgVerificationFailed = "Ошибка при проверке SteamID"
	MsgMaintenance        = "Сервис на технических работах"
	MsgMethodNotAllowed   = "Method Not Allowed"
	MsgOrderNotFound      = "Заказ не найден"
	MsgTimeout            = "Превышено время ожидания"
)

type (
	HandlersFoundNilArgument struct {
		Msg string
	}
)

func (e *HandlersFoundNilArgument) Error() string {
	return e.Msg
}
