package models

// Book is one recommendation returned by the AI librarian.
type Book struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Genre       string `json:"genre" validate:"required"`
	Description string `json:"description" validate:"required"`
	Reason      string `json:"reason" validate:"required"`
}

// Preferences is what a reader tells the librarian. At least genres or mood is required.
type Preferences struct {
	FavoriteGenres string `json:"favorite_genres" validate:"required_without=Mood,max=500"`
	LastRead       string `json:"last_read" validate:"max=500"`
	Mood           string `json:"mood" validate:"required_without=FavoriteGenres,max=500"`
}
