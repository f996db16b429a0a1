package model

// LoginResponse - ответ мутации login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Message     string `json:"message"`
	UserID      string `json:"userId"`
}

type UnfollowResponse struct {
	Message string `json:"message"`
}
