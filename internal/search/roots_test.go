package search

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/leapstack-labs/dbrefs/internal/corpus"
	"github.com/leapstack-labs/dbrefs/pkg/core"
)

func customerIndex() *corpus.Index {
	return &corpus.Index{
		Databases: []corpus.Database{
			{
				Name: "Crm",
				Objects: map[core.Kind][]corpus.Script{
					core.Table: {
						{Name: "Customer", Schema: "dbo"},
						{Name: "CustomerAddress", Schema: "dbo"},
					},
					core.View: {
						{Name: "vCustomer", Schema: "rpt"},
					},
				},
			},
			{
				Name: "Sales",
				Objects: map[core.Kind][]corpus.Script{
					core.Table: {
						{Name: "customer", Schema: "dbo"},
					},
				},
			},
		},
	}
}

func TestFindRoots(t *testing.T) {
	r := NewResolver(customerIndex(), nil, nil)

	tests := []struct {
		name  string
		names []string
		kinds []core.Kind
		exact bool
		want  []string
	}{
		{
			name:  "exact",
			names: []string{"Customer"},
			kinds: []core.Kind{core.Table},
			exact: true,
			want:  []string{"Crm:dbo.Customer (table)", "Sales:dbo.customer (table)"},
		},
		{
			name:  "contains",
			names: []string{"Customer"},
			kinds: []core.Kind{core.Table},
			want: []string{
				"Crm:dbo.Customer (table)",
				"Crm:dbo.CustomerAddress (table)",
				"Sales:dbo.customer (table)",
			},
		},
		{
			name:  "all kinds when empty",
			names: []string{"customer"},
			exact: true,
			want:  []string{"Crm:dbo.Customer (table)", "Sales:dbo.customer (table)"},
		},
		{
			name:  "database qualifier",
			names: []string{"crm:Customer"},
			want: []string{
				"Crm:dbo.Customer (table)",
				"Crm:dbo.CustomerAddress (table)",
				"Crm:rpt.vCustomer (view)",
			},
		},
		{
			name:  "overlapping names are not deduplicated",
			names: []string{"Customer", "CustomerAddress"},
			kinds: []core.Kind{core.Table},
			want: []string{
				"Crm:dbo.Customer (table)",
				"Crm:dbo.CustomerAddress (table)",
				"Crm:dbo.CustomerAddress (table)",
				"Sales:dbo.customer (table)",
			},
		},
		{
			name:  "no match",
			names: []string{"Invoice"},
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roots := r.FindRoots(tt.names, tt.kinds, tt.exact)
			got := make([]string, 0, len(roots))
			for _, o := range roots {
				got = append(got, o.String())
				assert.Nil(t, o.Usages)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
