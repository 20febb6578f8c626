package listing

import (
	"math"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

type place struct {
	Title string
	City  string
}

var places = []place{
	{Title: "Bromo Sunrise", City: "Malang"},
	{Title: "Ubud Rice Terraces", City: "Gianyar"},
	{Title: "Kawah Ijen Blue Fire", City: "Banyuwangi"},
	{Title: "Nusa Penida Snorkeling", City: "Klungkung"},
	{Title: "Borobudur Sunrise", City: "Magelang"},
}

func placeFields(p place) []string {
	return []string{p.Title, p.City}
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{name: "defaults", query: "", want: Params{Page: 1, PerPage: DefaultPerPage}},
		{name: "values", query: "q=+bali+&page=3&per_page=5", want: Params{Query: "bali", Page: 3, PerPage: 5}},
		{name: "bad numbers", query: "page=x&per_page=-2", want: Params{Page: 1, PerPage: DefaultPerPage}},
		{name: "capped", query: "per_page=1000", want: Params{Page: 1, PerPage: MaxPerPage}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ParseParams(v))
		})
	}
}

func TestSearch_CaseInsensitive(t *testing.T) {
	got := Search(places, "SUNRISE", placeFields)
	assert.Equal(t, []place{places[0], places[4]}, got)

	got = Search(places, "klung", placeFields)
	assert.Equal(t, []place{places[3]}, got)

	assert.Equal(t, places, Search(places, "", placeFields))
	assert.Empty(t, Search(places, "paris", placeFields))
}

func TestFilter(t *testing.T) {
	got := Filter(places, func(p place) bool { return p.City == "Gianyar" })
	assert.Equal(t, []place{places[1]}, got)
}

func TestPaginate(t *testing.T) {
	p := Paginate(places, 2, 2)
	assert.Equal(t, []place{places[2], places[3]}, p.Items)
	assert.Equal(t, 5, p.Total)
	assert.Equal(t, 3, p.TotalPages)

	p = Paginate(places, 3, 2)
	assert.Equal(t, []place{places[4]}, p.Items)

	p = Paginate(places, 9, 2)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)

	p = Paginate(places, math.MaxInt, 10)
	assert.Empty(t, p.Items)
	assert.Equal(t, math.MaxInt, p.Page)

	p = Paginate([]place(nil), 1, 0)
	assert.Equal(t, 0, p.TotalPages)
	assert.Equal(t, DefaultPerPage, p.PerPage)
}
