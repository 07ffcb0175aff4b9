package nl2sql

import (
	"reflect"
	"testing"
)

func TestExtractColumns(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "simple select",
			sql:  "SELECT id, name FROM users",
			want: []string{"id", "name"},
		},
		{
			name: "aliases stripped",
			sql:  "SELECT id AS user_id, name as full_name FROM users",
			want: []string{"id", "name"},
		},
		{
			name: "star skipped",
			sql:  "SELECT * FROM users",
			want: []string{},
		},
		{
			name: "duplicates kept",
			sql:  "SELECT id, id, name FROM users",
			want: []string{"id", "id", "name"},
		},
		{
			name: "no from clause",
			sql:  "SELECT 1",
			want: nil,
		},
		{
			name: "not a select",
			sql:  "DELETE things",
			want: nil,
		},
		{
			name: "empty input",
			sql:  "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractColumns(tt.sql)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("ExtractColumns(%q) = %v, want %v", tt.sql, got, tt.want)
			}
		})
	}
}
