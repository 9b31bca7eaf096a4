package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "DIENST 08:00-16:00", "DIENST 08:00-16:00"},
		{"non-breaking space", "DIENST\u00a008:00-16:00", "DIENST 08:00-16:00"},
		{"en dash", "08:00\u201316:00", "08:00-16:00"},
		{"em dash", "08:00\u201416:00", "08:00-16:00"},
		{"windows line endings", "a\r\nb", "a\nb"},
		{"old mac line endings", "a\rb", "a\nb"},
		{"form feed page break", "a\fb", "a\nb"},
		{"decomposed accent", "Co\u0308rdinatie", "Co\u00f6rdinatie"},
		{"invalid utf-8", "a\x80\x80b", "a\ufffdb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "coordinatie", fold("Coördinatie"))
	assert.Equal(t, "verkeer", fold("VERKEER"))
}

func TestTextHelpers(t *testing.T) {
	assert.Equal(t, "a b c", collapseSpace("  a \t b\n\nc "))
	assert.Equal(t, "éé", truncateRunes("ééé", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 10))
	assert.Equal(t, "een twee", firstWords("een  twee drie", 2))
	assert.Equal(t, "Patrouille Centrum", titleCase("patrouille CENTRUM"))
}
