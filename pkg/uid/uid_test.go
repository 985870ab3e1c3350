package uid

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var uidPattern = regexp.MustCompile(`^(0|[1-9][0-9]*)(\.(0|[1-9][0-9]*))*$`)

func TestNew(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		u := New()
		require.NoError(t, Validate(u))
		assert.Regexp(t, uidPattern, u)
		assert.LessOrEqual(t, len(u), 44)
		assert.False(t, seen[u], "duplicate uid %s", u)
		seen[u] = true
	}
}

func TestFromUUID(t *testing.T) {
	assert.Equal(t, "2.25.0", FromUUID(uuid.Nil))
	u := uuid.MustParse("f81d4fae-7dec-11d0-a765-00a0c91e6bf6")
	assert.Equal(t, "2.25.329800735698586629295641978511506172918", FromUUID(u))
}

func TestValidate(t *testing.T) {
	valid := []string{"1.2.840.10008.1.2.1", "0", "2.25.0", "1.2.10"}
	for _, s := range valid {
		assert.NoError(t, Validate(s), s)
	}

	cases := map[string]error{
		"":              ErrEmpty,
		"1..2":          ErrComponent,
		"1.2.":          ErrComponent,
		".1":            ErrComponent,
		"1.2.a":         ErrCharacter,
		"1.2 .3":        ErrCharacter,
		"1.02.3":        ErrLeadingZero,
		"1." + long(64): ErrTooLong,
	}
	for s, want := range cases {
		assert.ErrorIs(t, Validate(s), want, s)
		assert.False(t, IsValid(s))
	}
}

func long(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = '1'
	}
	return string(b)
}
