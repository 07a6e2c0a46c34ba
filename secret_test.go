package unifi

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretRedaction(t *testing.T) {
	t.Parallel()

	s := NewSecret("hunter2")

	tests := []struct {
		name string
		got  string
	}{
		{"verb v", fmt.Sprintf("%v", s)},
		{"verb s", fmt.Sprintf("%s", s)},
		{"verb q", fmt.Sprintf("%q", s)},
		{"verb d", fmt.Sprintf("%d", s)},
		{"plus v", fmt.Sprintf("%+v", s)},
		{"stringer", s.String()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.NotContains(t, tt.got, "hunter2")
			assert.Contains(t, tt.got, "[REDACTED]")
		})
	}
}

func TestSecretGoString(t *testing.T) {
	t.Parallel()

	s := NewSecret("hunter2")
	got := fmt.Sprintf("%#v", s)
	assert.NotContains(t, got, "hunter2")
	assert.Contains(t, got, "[REDACTED]")
}

func TestSecretInStruct(t *testing.T) {
	t.Parallel()

	wrapper := struct {
		Name     string
		Password Secret
	}{Name: "admin", Password: NewSecret("hunter2")}

	for _, got := range []string{
		fmt.Sprintf("%v", wrapper),
		fmt.Sprintf("%+v", wrapper),
	} {
		assert.NotContains(t, got, "hunter2")
	}
}

func TestSecretMarshalJSON(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(map[string]Secret{"password": NewSecret("hunter2")})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
	assert.JSONEq(t, `{"password":"[REDACTED]"}`, string(data))
}

func TestSecretReveal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "hunter2", NewSecret("hunter2").Reveal())
	assert.True(t, Secret{}.IsZero())
	assert.False(t, NewSecret("x").IsZero())
	assert.Empty(t, Secret{}.Reveal())
}
