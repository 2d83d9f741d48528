package dto

// ErrorResponse стандартный формат ошибки API.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа с сообщением.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ToggleResponse текущее состояние бинарной отметки (задание в
// сохранённых, отзыв отмечен полезным).
type ToggleResponse struct {
	Active bool `json:"active"`
}

// NearbyHelperResponse исполнитель рядом с заданием.
type NearbyHelperResponse struct {
	ID         string  `json:"id"`
	Username   string  `json:"username"`
	Rating     float64 `json:"rating"`
	IsVerified bool    `json:"is_verified"`
	DistKm     float64 `json:"distance_km"`
}
