package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
)

const (
	defaultPage    = 1
	defaultPerPage = 20
	maxPerPage     = 1000
)

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// pageParams reads page and perPage from the query string, falling back to
// defaults for missing or invalid values. perPage is capped, and page is
// capped so the row offset still fits the store's int32.
func pageParams(r *http.Request) (page, perPage int) {
	page, perPage = defaultPage, defaultPerPage
	if v, err := strconv.Atoi(r.URL.Query().Get("perPage")); err == nil && v > 0 {
		perPage = min(v, maxPerPage)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = min(v, math.MaxInt32/perPage+1)
	}
	return page, perPage
}

func pageOffset(page, perPage int) int32 {
	return int32((page - 1) * perPage)
}

func totalPages(total int64, perPage int) int64 {
	if perPage <= 0 {
		return 0
	}
	return (total + int64(perPage) - 1) / int64(perPage)
}
