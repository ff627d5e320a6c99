package domain

type Interest struct {
	ID       int64  `json:"interest_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}
