package handler

type loginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"a@x.com"`
	Password string `json:"password" validate:"required" example:"secret1"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email,max=254" example:"a@x.com"`
	Password string `json:"password" validate:"required,min=6,max=72" example:"secret1"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type meResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// tokenEnvelope and errorEnvelope exist for the API docs only.
type tokenEnvelope struct {
	Success bool          `json:"success" example:"true"`
	Data    tokenResponse `json:"data"`
}

type meEnvelope struct {
	Success bool       `json:"success" example:"true"`
	Data    meResponse `json:"data"`
}

type errorEnvelope struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"invalid credentials"`
}
