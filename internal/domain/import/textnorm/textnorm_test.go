package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Café con Leche", "cafe con leche"},
		{"  Café ", "cafe"},
		{"\uFEFFFecha", "fecha"},
		{"items(json)", "items json"},
		{"Método de Pago", "metodo de pago"},
		{"totalCosto", "totalcosto"},
		{"---", ""},
		{"Ñandú 2x", "nandu 2x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.in))
		})
	}
}

func TestFold(t *testing.T) {
	assert.Equal(t, "agua tonica 500ml", Fold("Agua Tónica 500ml"))
	assert.Equal(t, "cafe + medialuna", Fold("CAFÉ + Medialuna"))
}
