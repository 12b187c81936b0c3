package utils

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateInvitationToken(t *testing.T) {
	first, err := GenerateInvitationToken()
	require.NoError(t, err)
	second, err := GenerateInvitationToken()
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Len(t, first, 43)
	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z0-9_-]+$`), first)
}

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{"Acme Creative", "acme-creative-"},
		{"  Über Agency!! ", "uber-agency-"},
		{"Café Ñandú", "cafe-nandu-"},
		{"!!!", "org-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GenerateSlug(tt.name)
			require.NoError(t, err)
			assert.Regexp(t, "^"+regexp.QuoteMeta(tt.prefix)+"[0-9a-f]{6}$", got)
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}
