package server

import (
	"net/http"
	"testing"
)

func TestDictionary(t *testing.T) {
	env := setupServer(t)

	rec := env.do(t, http.MethodGet, "/dict/", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[map[string]int](t, rec)
	want := map[string]int{"words_count": 8, "words_in_one_unit": 4, "units_in_one_book": 2, "books_count": 1}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %d, want %d", k, got[k], v)
		}
	}
}

func TestUnitWords(t *testing.T) {
	env := setupServer(t)
	_, token := env.user(t, "alice")

	rec := env.do(t, http.MethodGet, "/dict/words?book=1&unit=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	resp := decode[UnitWordsResponse](t, rec)
	if resp.Book != 1 || resp.Unit != 2 || len(resp.Words) != 4 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Words[0].En[0] != "en4" || resp.Words[0].Uz[0] != "uz4" {
		t.Errorf("first word = %+v, want en4/uz4", resp.Words[0])
	}

	defaults := decode[UnitWordsResponse](t, env.do(t, http.MethodGet, "/dict/words", token, nil))
	if defaults.Book != 1 || defaults.Unit != 1 || defaults.Words[0].En[0] != "en0" {
		t.Errorf("default unit = %+v", defaults)
	}

	for _, path := range []string{"/dict/words?book=2&unit=1", "/dict/words?unit=3", "/dict/words?book=x"} {
		if rec := env.do(t, http.MethodGet, path, token, nil); rec.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", path, rec.Code)
		}
	}
	if rec := env.do(t, http.MethodGet, "/dict/words", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", rec.Code)
	}
}

func TestCompleteUnit(t *testing.T) {
	env := setupServer(t)
	_, token := env.user(t, "alice")

	rec := env.do(t, http.MethodPost, "/dict/complete-unit?book=1&unit=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if got := decode[MeResponse](t, rec).CompletedUnit; got != 2 {
		t.Errorf("completed unit = %d, want 2", got)
	}

	for _, unit := range []string{"1", "2"} {
		rec := env.do(t, http.MethodPost, "/dict/complete-unit?book=1&unit="+unit, token, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("unit %s again status = %d, want 400", unit, rec.Code)
		}
	}

	me := decode[MeResponse](t, env.do(t, http.MethodGet, "/auth/me", token, nil))
	if me.CompletedUnit != 2 {
		t.Errorf("me.completed_unit = %d, want 2", me.CompletedUnit)
	}
}
