package rdbms

import (
	"testing"

	"github.com/relloyd/campaignpipe/logger"
)

func TestSchemaTable(t *testing.T) {
	log := logger.NewLogger("campaignpipe", "info", true)
	cases := []struct {
		input  string
		schema string
		table  string
	}{
		{"stg_campaign_performance", "", "stg_campaign_performance"},
		{"staging.stg_campaign_performance", "staging", "stg_campaign_performance"},
		{`schema."table"`, "schema", `"table"`},
		{`"random.table"`, "", `"random.table"`},
	}
	for _, c := range cases {
		log.Info("Testing SchemaTable: ", c.input)
		st, err := ParseSchemaTable(c.input)
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", c.input, err)
		}
		if st.Schema != c.schema || st.Table != c.table {
			t.Fatalf("expected schema = %q, table = %q; got %+v", c.schema, c.table, st)
		}
		if st.String() != c.input {
			t.Fatalf("expected %q; got %q", c.input, st.String())
		}
	}

	// Names that could inject SQL are rejected.
	for _, bad := range []string{"", "a.b.c", "t; drop table x", "t--", "1table", "a."} {
		if _, err := ParseSchemaTable(bad); err == nil {
			t.Fatalf("expected error for table name %q", bad)
		}
	}
}
