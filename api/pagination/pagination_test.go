package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	testCases := []struct {
		query   string
		want    Query
		wantErr bool
	}{
		{query: "", want: Query{Start: 0, Limit: 20}},
		{query: "start=40&limit=10", want: Query{Start: 40, Limit: 10}},
		{query: "limit=1000", want: Query{Start: 0, Limit: 100}},
		{query: "start=-1", wantErr: true},
		{query: "limit=0", wantErr: true},
		{query: "limit=ten", wantErr: true},
	}
	for _, c := range testCases {
		ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
		ctx.Request = httptest.NewRequest("GET", "/?"+c.query, nil)

		q, err := FromContext(ctx)
		if (err != nil) != c.wantErr {
			t.Errorf("query %q returned error %v, want error %v", c.query, err, c.wantErr)
			continue
		}
		if err == nil && *q != c.want {
			t.Errorf("query %q returned %+v, want %+v", c.query, *q, c.want)
		}
	}
}
