package envelope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fedibtc/unifi-client/internal/envelope"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantOK   bool
		wantMsg  string
		wantData string
	}{
		{
			name:     "success with data",
			body:     `{"meta":{"rc":"ok"},"data":[{"name":"default"}]}`,
			wantOK:   true,
			wantData: `[{"name":"default"}]`,
		},
		{
			name:    "error with message",
			body:    `{"meta":{"rc":"error","msg":"api.err.NoSiteContext"},"data":[]}`,
			wantOK:  false,
			wantMsg: "api.err.NoSiteContext",
		},
		{
			name:   "empty body is ok",
			body:   "",
			wantOK: true,
		},
		{
			name:   "object without meta",
			body:   `{"unique_id":"abc"}`,
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env, err := envelope.Decode([]byte(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, env.OK())
			assert.Equal(t, tt.wantMsg, env.Meta.Msg)
			if tt.wantData != "" {
				assert.JSONEq(t, tt.wantData, string(env.Data))
			}
		})
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	t.Parallel()

	_, err := envelope.Decode([]byte("<html>not json</html>"))
	require.Error(t, err)
}

func TestIsLoginRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want bool
	}{
		{
			name: "login required envelope",
			body: `{"meta":{"rc":"error","msg":"api.err.LoginRequired"},"data":[]}`,
			want: true,
		},
		{
			name: "other error envelope",
			body: `{"meta":{"rc":"error","msg":"api.err.NoSiteContext"},"data":[]}`,
			want: false,
		},
		{
			name: "success envelope",
			body: `{"meta":{"rc":"ok"},"data":[]}`,
			want: false,
		},
		{
			name: "not an envelope",
			body: `<html></html>`,
			want: false,
		},
		{
			name: "empty body",
			body: "",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, envelope.IsLoginRequired([]byte(tt.body)))
		})
	}
}
