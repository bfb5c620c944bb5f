package models

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNote_KeepsFieldOrder(t *testing.T) {
	n, err := ParseNote([]byte(`{"title":"t","text":"x","meta":{"b":1,"a":[1,2]}}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "text", "meta"}, n.Keys())

	out, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Equal(t, `{"title":"t","text":"x","meta":{"b":1,"a":[1,2]}}`, string(out))
}

func TestParseNote_RejectsNonObjects(t *testing.T) {
	for _, in := range []string{`[]`, `"hi"`, `42`, `null`, ``, `{"a":`} {
		_, err := ParseNote([]byte(in))
		assert.Error(t, err, "input %q", in)
	}
}

func TestSetID_AppendsWhenAbsent(t *testing.T) {
	n, err := ParseNote([]byte(`{"text":"hi"}`))
	require.NoError(t, err)
	n.SetID(1)

	out, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Equal(t, `{"text":"hi","id":1}`, string(out))
}

func TestSetID_OverwritesInPlace(t *testing.T) {
	n, err := ParseNote([]byte(`{"id":"client","text":"hi"}`))
	require.NoError(t, err)
	n.SetID(7)

	out, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Equal(t, `{"id":7,"text":"hi"}`, string(out))

	id, ok := n.ID()
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}

func TestID_IgnoresNonIntegers(t *testing.T) {
	for _, in := range []string{`{"id":"3"}`, `{"id":2.5}`, `{"id":null}`, `{}`} {
		n, err := ParseNote([]byte(in))
		require.NoError(t, err)
		_, ok := n.ID()
		assert.False(t, ok, "input %s", in)
	}
}

func TestParseCollection(t *testing.T) {
	c, err := ParseCollection([]byte(`[]`))
	require.NoError(t, err)
	assert.Empty(t, c)

	for _, bad := range []string{`null`, `{}`, `[1]`, `[null]`, `not json`, ``} {
		_, err := ParseCollection([]byte(bad))
		assert.Error(t, err, "input %q", bad)
	}
}

func TestCollection_RoundTrip(t *testing.T) {
	in := `[{"text":"a","id":1},{"id":3,"text":"b","tags":["x"]},{"text":"c","id":2}]`
	c, err := ParseCollection([]byte(in))
	require.NoError(t, err)

	out, err := c.Encode()
	require.NoError(t, err)
	assert.Equal(t, in, string(out))
}

func TestCollection_NextID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
	}{
		{"empty", `[]`, 1},
		{"gap uses max", `[{"text":"a","id":1},{"text":"b","id":3}]`, 4},
		{"unordered", `[{"id":5},{"id":2}]`, 6},
		{"no numeric ids", `[{"id":"9"},{"text":"x"}]`, 1},
		{"negative ids", `[{"id":-4}]`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCollection([]byte(tt.in))
			require.NoError(t, err)
			got, err := c.NextID()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollection_NextIDExhausted(t *testing.T) {
	c, err := ParseCollection([]byte(`[{"id":9223372036854775807}]`))
	require.NoError(t, err)

	_, err = c.NextID()
	assert.ErrorIs(t, err, ErrIDExhausted)

	next, err := NextAfter(math.MaxInt64 - 1)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), next)
}

func TestEncode_DoesNotEscapeHTML(t *testing.T) {
	in := `[{"text":"<b>Tom & Jerry</b>","id":1},{"a<b":"x>y"}]`
	c, err := ParseCollection([]byte(in))
	require.NoError(t, err)

	out, err := c.Encode()
	require.NoError(t, err)
	assert.Equal(t, in, string(out))

	n := NewNote()
	require.NoError(t, n.Set("html", "<i>&</i>"))
	raw, err := json.Marshal(n)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `\u003ci\u003e`, "json.Marshal escapes on its own")
	enc, err := Collection{n}.Encode()
	require.NoError(t, err)
	assert.Equal(t, `[{"html":"<i>&</i>"}]`, string(enc))
}

func TestCollection_Without(t *testing.T) {
	c, err := ParseCollection([]byte(`[{"id":1},{"id":2},{"id":3}]`))
	require.NoError(t, err)

	got, err := c.Without(2).Encode()
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1},{"id":3}]`, string(got))

	got, err = c.Without(99).Encode()
	require.NoError(t, err)
	assert.Equal(t, `[{"id":1},{"id":2},{"id":3}]`, string(got))
}

func TestCollection_Checksum(t *testing.T) {
	a, err := ParseCollection([]byte(`[{"id":1}]`))
	require.NoError(t, err)
	b, err := ParseCollection([]byte(`[ { "id" : 1 } ]`))
	require.NoError(t, err)

	ca, err := a.Checksum()
	require.NoError(t, err)
	cb, err := b.Checksum()
	require.NoError(t, err)
	assert.Equal(t, ca, cb)
	assert.Len(t, ca, 64)
}

func TestClone_IsIndependent(t *testing.T) {
	n, err := ParseNote([]byte(`{"text":"a"}`))
	require.NoError(t, err)
	c := n.Clone()
	c.SetID(1)
	require.NoError(t, c.Set("text", "b"))

	_, ok := n.ID()
	assert.False(t, ok)
	raw, _ := n.Get("text")
	assert.Equal(t, `"a"`, string(raw))
}
