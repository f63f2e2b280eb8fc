package pdf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePageGroups(t *testing.T) {
	tests := []struct {
		name  string
		expr  string
		total int
		want  []pageGroup
	}{
		{
			name:  "single pages",
			expr:  "1,3,5",
			total: 5,
			want:  []pageGroup{{1, 1}, {3, 3}, {5, 5}},
		},
		{
			name:  "ranges and singles mixed",
			expr:  "1-3,5",
			total: 10,
			want:  []pageGroup{{1, 3}, {5, 5}},
		},
		{
			name:  "whitespace tolerated",
			expr:  " 1 - 2 , 4 ",
			total: 5,
			want:  []pageGroup{{1, 2}, {4, 4}},
		},
		{
			name:  "out of bounds dropped",
			expr:  "0,2,99,3-12",
			total: 10,
			want:  []pageGroup{{2, 2}},
		},
		{
			name:  "inverted range dropped",
			expr:  "5-2,3",
			total: 10,
			want:  []pageGroup{{3, 3}},
		},
		{
			name:  "garbage tokens dropped",
			expr:  "abc,1-x,2",
			total: 10,
			want:  []pageGroup{{2, 2}},
		},
		{
			name:  "duplicates and overlaps preserved",
			expr:  "1-3,2,2",
			total: 5,
			want:  []pageGroup{{1, 3}, {2, 2}, {2, 2}},
		},
		{
			name:  "empty expression",
			expr:  "",
			total: 5,
			want:  nil,
		},
		{
			name:  "all tokens invalid",
			expr:  "99,100-200",
			total: 5,
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePageGroups(tt.expr, tt.total)
			if tt.want == nil {
				require.Empty(t, got)
				return
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestIntervalGroups(t *testing.T) {
	require.Equal(t, []pageGroup{{1, 2}, {3, 4}, {5, 5}}, intervalGroups(2, 5))
	require.Equal(t, []pageGroup{{1, 5}}, intervalGroups(5, 5))
	require.Equal(t, []pageGroup{{1, 3}}, intervalGroups(10, 3))
	require.Empty(t, intervalGroups(0, 5))
	require.Empty(t, intervalGroups(-1, 5))
}
