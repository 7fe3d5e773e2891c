package sniffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectConfig(t *testing.T) {
	t.Run("comma export with quoted json items", func(t *testing.T) {
		data := []byte("\uFEFFFecha,Cliente,Total,items(json)\n" +
			`2024-03-05 14:30,Ana,"3.500,00","[{""nombre"":""Café"",""qty"":1}]"` + "\n")

		cfg, err := DetectConfig(data)
		require.NoError(t, err)
		assert.Equal(t, ',', cfg.Delimiter)
		assert.Equal(t, 0, cfg.SkipLines)
		assert.Equal(t, []string{"Fecha", "Cliente", "Total", "items(json)"}, cfg.Headers)
		require.Len(t, cfg.SampleRows, 1)
		assert.Equal(t, "3.500,00", cfg.SampleRows[0][2])
	})

	t.Run("semicolon export after metadata lines", func(t *testing.T) {
		data := []byte("Reporte de ventas\nGenerado hoy\nfecha;cliente;mesa;total\n05/03/2024;Ana;Mesa 2;1200\n")

		cfg, err := DetectConfig(data)
		require.NoError(t, err)
		assert.Equal(t, ';', cfg.Delimiter)
		assert.Equal(t, 2, cfg.SkipLines)
		assert.Equal(t, []string{"fecha", "cliente", "mesa", "total"}, cfg.Headers)
	})

	t.Run("explicit header row", func(t *testing.T) {
		data := []byte("x|y\na|b|c\n")
		cfg, err := DetectConfigWithOptions(data, &DetectOptions{HeaderRowIndex: 1})
		require.NoError(t, err)
		assert.Equal(t, '|', cfg.Delimiter)
		assert.Equal(t, []string{"a", "b", "c"}, cfg.Headers)
	})

	t.Run("errors", func(t *testing.T) {
		_, err := DetectConfig(nil)
		assert.ErrorIs(t, err, ErrEmptyFile)

		_, err = DetectConfig([]byte("solo una columna\n"))
		assert.ErrorIs(t, err, ErrNoHeadersFound)

		_, err = DetectConfigWithOptions([]byte("a,b\n"), &DetectOptions{HeaderRowIndex: 5})
		assert.ErrorIs(t, err, ErrNoHeadersFound)
	})
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]string{"Fecha", "Total (ARS)"})
	b := Fingerprint([]string{"fecha", "total ars"})
	c := Fingerprint([]string{"fecha", "cliente"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
