package categories

import "time"

// Category groups articles. Names are unique per user.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Input is the create payload.
type Input struct {
	Name string `json:"name" form:"name" validate:"required,title,max=64"`
}
