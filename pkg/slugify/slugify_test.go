package slugify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"spaces and parens", "My File (1).PDF", "my-file-1.pdf"},
		{"already slugged", "my-file-1.pdf", "my-file-1.pdf"},
		{"no extension", "Relazione Finale", "relazione-finale"},
		{"multiple dots", "a.b.c.PDF", "a-b-c.pdf"},
		{"leading trailing junk", "  --Fattura--  .pdf", "fattura.pdf"},
		{"all punctuation base", "!!!.pdf", ".pdf"},
		{"uppercase extension only", "preventivo.PDF", "preventivo.pdf"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Filename(tc.in))
		})
	}
}

func TestFilenameIdempotent(t *testing.T) {
	inputs := []string{
		"My File (1).PDF",
		"Contratto 2024 — rev. 3.pdf",
		"senza estensione",
		"___.___",
	}
	for _, in := range inputs {
		once := Filename(in)
		assert.Equal(t, once, Filename(once), "slug of %q must be stable", in)
	}
}
