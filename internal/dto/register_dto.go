package dto

type CreateRegisterRequest struct {
	Name     string  `json:"name"     validate:"required,min=2"`
	Location *string `json:"location"`
}

type RegisterResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Location *string `json:"location,omitempty"`
	Active   bool    `json:"active"`
}
