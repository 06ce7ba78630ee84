package orm

import (
	"sync"
	"testing"

	"gorm.io/gorm/schema"
)

func TestTransactionTypeRoundTrip(t *testing.T) {
	testCases := []struct {
		str  string
		want TransactionType
	}{
		{str: "initial_deposit", want: InitialDeposit},
		{str: "renewal", want: Renewal},
		{str: "RENEWAL", want: Invalid},
	}
	for _, c := range testCases {
		if got := StrToType(c.str); got != c.want {
			t.Errorf("StrToType(%q) = %v, want %v", c.str, got, c.want)
		}
	}

	var tt TransactionType
	if err := tt.Scan([]byte("renewal")); err != nil || tt != Renewal {
		t.Errorf("scan renewal: got %v, err %v", tt, err)
	}
	if err := tt.Scan("withdrawal"); err == nil {
		t.Errorf("scan of unknown type should fail")
	}
	if _, err := Invalid.Value(); err == nil {
		t.Errorf("invalid type should not be stored")
	}
}

func TestContentCIDColumn(t *testing.T) {
	cache := &sync.Map{}
	for _, model := range []interface{}{&Upload{}, &Transaction{}} {
		s, err := schema.Parse(model, cache, schema.NamingStrategy{})
		if err != nil {
			t.Fatalf("parse %T: %v", model, err)
		}
		f := s.LookUpField("ContentCID")
		if f == nil {
			t.Fatalf("%T has no ContentCID field", model)
		}
		if f.DBName != "content_cid" {
			t.Errorf("%T.ContentCID column = %q, want content_cid", model, f.DBName)
		}
	}
}
