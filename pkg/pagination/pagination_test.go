package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		query       string
		wantPage    int
		wantPerPage int
		wantOffset  int
	}{
		{"", 1, DefaultPerPage, 0},
		{"?page=3&per_page=10", 3, 10, 20},
		{"?page=-1", 1, DefaultPerPage, 0},
		{"?page=abc&per_page=xyz", 1, DefaultPerPage, 0},
		{"?per_page=0", 1, DefaultPerPage, 0},
		{"?per_page=1000", 1, MaxPerPage, 0},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			p := FromRequest(httptest.NewRequest(http.MethodGet, "/api/v1/catalog"+tt.query, nil))
			assert.Equal(t, tt.wantPage, p.Page)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
			assert.Equal(t, tt.wantOffset, p.Offset())
			assert.Equal(t, tt.wantPerPage, p.Limit())
		})
	}
}

func TestNewResult(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		params    Params
		wantPages int
		wantNext  bool
		wantPrev  bool
	}{
		{"empty", 0, Params{Page: 1, PerPage: 12}, 0, false, false},
		{"exact fit", 24, Params{Page: 1, PerPage: 12}, 2, true, false},
		{"remainder", 25, Params{Page: 3, PerPage: 12}, 3, false, true},
		{"zero per page", 5, Params{Page: 1}, 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResult[string](nil, tt.total, tt.params)
			assert.Equal(t, tt.wantPages, r.TotalPages)
			assert.Equal(t, tt.wantNext, r.HasNext)
			assert.Equal(t, tt.wantPrev, r.HasPrev)
			assert.NotNil(t, r.Data)
		})
	}
}
