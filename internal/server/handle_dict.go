package server

import (
	"errors"
	"net/http"

	"github.com/playperu/wordrace/internal/store"
	"github.com/playperu/wordrace/internal/wordrace"
	"github.com/playperu/wordrace/internal/words"
)

type DictionaryResponse struct {
	WordsCount int `json:"words_count"`
	words.Layout
}

type UnitWordsResponse struct {
	Book  int             `json:"book"`
	Unit  int             `json:"unit"`
	Words []wordrace.Word `json:"words"`
}

func handleDictionary(layout words.Layout) http.HandlerFunc {
	resp := DictionaryResponse{WordsCount: layout.WordsCount(), Layout: layout}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, resp)
	}
}

// bookUnit reads the book and unit query parameters, both defaulting to 1.
func bookUnit(r *http.Request, layout words.Layout) (int, int, bool) {
	book, ok := queryInt(r, "book", 1)
	if !ok {
		return 0, 0, false
	}
	unit, ok := queryInt(r, "unit", 1)
	if !ok {
		return 0, 0, false
	}
	return book, unit, layout.Valid(book, unit)
}

func handleUnitWords(catalog *words.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		book, unit, ok := bookUnit(r, catalog.Layout())
		if !ok {
			writeError(w, http.StatusBadRequest, words.ErrInvalidUnit.Error())
			return
		}

		list, err := catalog.Unit(r.Context(), book, unit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, UnitWordsResponse{Book: book, Unit: unit, Words: list})
	}
}

func handleCompleteUnit(users *store.SQLiteStore, layout words.Layout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		book, unit, ok := bookUnit(r, layout)
		if !ok {
			writeError(w, http.StatusBadRequest, words.ErrInvalidUnit.Error())
			return
		}

		user := currentUser(r)
		absolute := layout.AbsoluteUnit(book, unit)
		if user.CompletedUnit >= absolute {
			writeError(w, http.StatusBadRequest, "you have already completed this unit")
			return
		}
		if err := users.SetCompletedUnit(r.Context(), user.ID, absolute); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "user not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, MeResponse{
			Username:      user.Username,
			Name:          user.Name,
			CompletedUnit: absolute,
		})
	}
}
