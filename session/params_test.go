package session

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPlaceholderExtraction(t *testing.T) {
	for _, tc := range []struct {
		sql    string
		expect []string
	}{
		{"SELECT 1", nil},
		{"SELECT * FROM t WHERE a = :a AND b = @b OR c = $c", []string{"a", "b", "c"}},
		{"INSERT INTO t VALUES (:v, :v, :other_1)", []string{"other_1", "v"}},
		{"SELECT ?, ?2, :named", []string{"named"}},
		{"SELECT ':notme', \":nor\", `:this`, [:or]", nil},
		{"SELECT 'it''s :quoted', :yes", []string{"yes"}},
		{"SELECT :a -- :comment\n, :b /* :block */", []string{"a", "b"}},
		{"SELECT :ünï", []string{"ünï"}},
		{"SELECT a::b", []string{"b"}},
		{"SELECT 'unterminated :x", nil},
	} {
		var got []string
		for name := range placeholders(tc.sql) {
			got = append(got, name)
		}
		sort.Strings(got)
		require.Equal(t, tc.expect, got, tc.sql)
	}
}
