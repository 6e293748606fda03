package api

import "encoding/json"

// ErrorResponse представляет тело ошибки от сервера.
// Поле detail исторически имеет три формы:
//   - строка: {"detail": "Invalid credentials"}
//   - список ошибок валидации: {"detail": [{"msg": "field required"}, ...]}
//   - вложенный объект: {"detail": {"message": "Email already registered"}}
//
// HumanMessage нормализует все три формы в одну строку для пользователя.
type ErrorResponse struct {
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Detail  json.RawMessage `json:"detail,omitempty"`
}

type detailItem struct {
	Msg string `json:"msg"`
}

type detailObject struct {
	Message string `json:"message"`
}

// HumanMessage извлекает человекочитаемое сообщение из тела ошибки.
// Возвращает пустую строку, если извлечь нечего.
func (e *ErrorResponse) HumanMessage() string {
	if len(e.Detail) > 0 {
		var s string
		if err := json.Unmarshal(e.Detail, &s); err == nil && s != "" {
			return s
		}

		var items []detailItem
		if err := json.Unmarshal(e.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
			return items[0].Msg
		}

		var obj detailObject
		if err := json.Unmarshal(e.Detail, &obj); err == nil && obj.Message != "" {
			return obj.Message
		}
	}

	if e.Message != "" {
		return e.Message
	}
	return e.Error
}
