package renamer

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertPicksBaseThenSuffixed(t *testing.T) {
	r := New[int]("type", "match")

	tests := []struct {
		key  int
		base string
		want string
	}{
		{1, "point", "point"},
		{2, "point", "point_0"},
		{3, "point", "point_1"},
		{4, "type", "type_0"},
		{5, "match", "match_0"},
		{6, "point_0", "point_0_0"},
	}
	for _, tt := range tests {
		got, err := r.Insert(tt.key, tt.base)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "key %d", tt.key)
	}
}

func TestInsertTwiceFails(t *testing.T) {
	r := New[string]()
	_, err := r.Insert("a", "x")
	require.NoError(t, err)

	_, err = r.Insert("a", "y")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNameAssigned))

	// the failed insert did not consume "y"
	assert.False(t, r.IsUsed("y"))
}

func TestDistinctKeysNeverShareReservedNames(t *testing.T) {
	reserved := []string{"fn", "loop", "self"}
	r := New[int](reserved...)

	a, err := r.Insert(1, "loop")
	require.NoError(t, err)
	b, err := r.Insert(2, "loop")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	for _, name := range []string{a, b} {
		assert.NotContains(t, reserved, name)
	}
}

func TestAlias(t *testing.T) {
	r := New[int]()
	name, err := r.Insert(1, "node")
	require.NoError(t, err)

	require.NoError(t, r.Alias(2, 1))
	got, ok := r.Get(2)
	require.True(t, ok)
	assert.Equal(t, name, got)

	// aliasing does not consume a new slot
	next, err := r.Insert(3, "node")
	require.NoError(t, err)
	assert.Equal(t, "node_0", next)

	assert.Error(t, r.Alias(4, 99), "alias of an unnamed key")
	if diff := cmp.Diff([]string{"node", "node_0"}, r.Names()); diff != "" {
		t.Errorf("Names() mismatch (-want +got):\n%s", diff)
	}
}

func TestBind(t *testing.T) {
	r := New[int]()
	picked := r.PickName("outer_inner")
	require.NoError(t, r.Bind(1, picked))

	got, ok := r.Get(1)
	require.True(t, ok)
	assert.Equal(t, "outer_inner", got)

	assert.Error(t, r.Bind(2, "never_picked"))
	err := r.Bind(1, picked)
	assert.True(t, errors.Is(err, ErrNameAssigned))
}

func TestGetIsPure(t *testing.T) {
	r := New[int]()
	_, ok := r.Get(7)
	assert.False(t, ok)
	_, ok = r.Get(7)
	assert.False(t, ok)
	assert.Empty(t, r.Names())
}

func TestFresh(t *testing.T) {
	r := New[int]()
	assert.Equal(t, "fresh", r.Fresh())
	assert.Equal(t, "fresh_0", r.Fresh())
	assert.Equal(t, "fresh_1", r.Fresh())
}

func TestDeterministic(t *testing.T) {
	run := func() []string {
		r := New[int]("as")
		var out []string
		for i, base := range []string{"a", "as", "a", "", "9lives", "a"} {
			name, err := r.Insert(i, base)
			require.NoError(t, err)
			out = append(out, name)
		}
		return out
	}
	first := run()
	if diff := cmp.Diff(first, run()); diff != "" {
		t.Errorf("renaming is not deterministic:\n%s", diff)
	}
	want := []string{"a", "as_0", "a_0", "unnamed", "_9lives", "a_1"}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"with space", "with_space"},
		{"a-b.c", "a_b_c"},
		{"1st", "_1st"},
		{"x1", "x1"},
		{"", "unnamed"},
		{"naïve", "na_ve"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "Sanitize(%q)", tt.in)
	}
}
