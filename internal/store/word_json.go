package store

import (
	"encoding/json"
	"errors"

	"github.com/playperu/wordrace/internal/wordrace"
)

var errEmptyWord = errors.New("word needs at least one en and one uz form")

func encodeWord(w wordrace.Word) (string, error) {
	if len(w.En) == 0 || len(w.Uz) == 0 {
		return "", errEmptyWord
	}
	b, err := json.Marshal(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeWord(data string) (wordrace.Word, error) {
	var w wordrace.Word
	err := json.Unmarshal([]byte(data), &w)
	return w, err
}
