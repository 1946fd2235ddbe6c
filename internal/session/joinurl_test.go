package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare host",
			input: "https://ask.example.com",
			want:  "https://ask.example.com/",
		},
		{
			name:  "trailing slash preserved as one",
			input: "https://ask.example.com/",
			want:  "https://ask.example.com/",
		},
		{
			name:  "multiple trailing slashes collapsed",
			input: "https://ask.example.com///",
			want:  "https://ask.example.com/",
		},
		{
			name:  "path prefix",
			input: "https://example.com/askline",
			want:  "https://example.com/askline/",
		},
		{
			name:  "path prefix with trailing slash",
			input: "https://example.com/askline/",
			want:  "https://example.com/askline/",
		},
		{
			name:  "fragment stripped",
			input: "https://ask.example.com/app#/dashboard",
			want:  "https://ask.example.com/app/",
		},
		{
			name:  "query stripped",
			input: "https://ask.example.com/app?tab=stats",
			want:  "https://ask.example.com/app/",
		},
		{
			name:  "http allowed",
			input: "http://localhost:8080",
			want:  "http://localhost:8080/",
		},
		{
			name:    "missing scheme",
			input:   "ask.example.com",
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			input:   "ftp://ask.example.com",
			wantErr: true,
		},
		{
			name:    "missing host",
			input:   "https://",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			afterScheme := got[strings.Index(got, "://")+3:]
			assert.NotContains(t, afterScheme, "//")
		})
	}
}

func TestCanonicalize_Deterministic(t *testing.T) {
	first, err := Canonicalize("https://example.com/app///#frag")
	require.NoError(t, err)
	second, err := Canonicalize(first)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestJoinURL(t *testing.T) {
	got, err := JoinURL("https://ask.example.com/app#/x", "AB12CD")
	require.NoError(t, err)
	assert.Equal(t, "https://ask.example.com/app/join/AB12CD", got)
}

func TestJoinURL_EscapesCode(t *testing.T) {
	got, err := JoinURL("https://ask.example.com", "a/b")
	require.NoError(t, err)
	assert.Equal(t, "https://ask.example.com/join/a%2Fb", got)
}

func TestJoinURL_InvalidBase(t *testing.T) {
	_, err := JoinURL("not a url", "AB12CD")
	assert.Error(t, err)
}
