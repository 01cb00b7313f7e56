package words

import "errors"

var ErrInvalidUnit = errors.New("book or unit out of range")

// Layout describes how the flat dictionary splits into books of units.
type Layout struct {
	WordsInUnit int `json:"words_in_one_unit"`
	UnitsInBook int `json:"units_in_one_book"`
	Books       int `json:"books_count"`
}

func (l Layout) Valid(book, unit int) bool {
	return book >= 1 && book <= l.Books && unit >= 1 && unit <= l.UnitsInBook
}

// Offset is the position of the first word of (book, unit) in the
// dictionary.
func (l Layout) Offset(book, unit int) int {
	return (book-1)*l.UnitsInBook*l.WordsInUnit + (unit-1)*l.WordsInUnit
}

// AbsoluteUnit numbers units across books starting at 1.
func (l Layout) AbsoluteUnit(book, unit int) int {
	return (book-1)*l.UnitsInBook + unit
}

func (l Layout) WordsCount() int {
	return l.WordsInUnit * l.UnitsInBook * l.Books
}
