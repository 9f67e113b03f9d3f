package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveSlug(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple name",
			input:    "Wooden Bowl",
			expected: "wooden-bowl",
		},
		{
			name:     "accents folded and stray symbols dropped",
			input:    "Categoria com Acentos é Símbolos!@#",
			expected: "categoria-com-acentos-simbolos",
		},
		{
			name:     "uppercase and punctuation",
			input:    "Hand-Made: Ceramic Vase (Large)",
			expected: "hand-made-ceramic-vase-large",
		},
		{
			name:     "digits survive even as single tokens",
			input:    "Vase No 5",
			expected: "vase-no-5",
		},
		{
			name:     "collapses repeated separators",
			input:    "  too   many --- spaces  ",
			expected: "too-many-spaces",
		},
		{
			name:     "cedilla and tilde",
			input:    "Decoração São João",
			expected: "decoracao-sao-joao",
		},
		{
			name:     "only symbols yields empty",
			input:    "!!! @@@ ###",
			expected: "",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, DeriveSlug(tc.input))
		})
	}
}
