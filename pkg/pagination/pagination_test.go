package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func ctxWithQuery(query string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+query, nil)
	return c
}

func TestGetPage(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 1},
		{"page=3", 3},
		{"page=0", 1},
		{"page=-2", 1},
		{"page=abc", 1},
	}
	for _, tt := range tests {
		if got := GetPage(ctxWithQuery(tt.query)); got != tt.want {
			t.Errorf("GetPage(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestGetPageSize(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 50},
		{"page_size=25", 25},
		{"page_size=0", 50},
		{"page_size=1000", 200},
		{"page_size=junk", 50},
	}
	for _, tt := range tests {
		if got := GetPageSize(ctxWithQuery(tt.query)); got != tt.want {
			t.Errorf("GetPageSize(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}

func TestGetOffset(t *testing.T) {
	if got := GetOffset(1, 50); got != 0 {
		t.Fatalf("GetOffset(1, 50) = %d", got)
	}
	if got := GetOffset(3, 25); got != 50 {
		t.Fatalf("GetOffset(3, 25) = %d", got)
	}
}
