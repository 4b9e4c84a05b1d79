package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBareHost(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"https scheme", "https://acme.com", "acme.com"},
		{"http scheme", "http://acme.com", "acme.com"},
		{"www prefix", "https://www.acme.com", "acme.com"},
		{"path stripped", "https://acme.com/about/us", "acme.com"},
		{"bare domain", "acme.com", "acme.com"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, BareHost(tt.in))
		})
	}
}

func TestCompanyIdentifiers(t *testing.T) {
	t.Parallel()

	c := Company{Name: "Acme Inc", Domain: "https://www.acme.com/home"}
	assert.Equal(t, []string{"acme inc", "acme.com"}, c.Identifiers())

	assert.Empty(t, Company{}.Identifiers())
}
