package sefaz

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfetools/dfesync/internal/core/domain"
)

// TestBuildEnvelope_GoldenProduction pins the exact production request
// bytes against a golden file.
func TestBuildEnvelope_GoldenProduction(t *testing.T) {
	got, err := BuildEnvelope("12345678000190", "SP", domain.EnvProduction, "123")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "envelope_prod", got)
}

// TestBuildEnvelope_GoldenHomologation pins the homologation variant.
func TestBuildEnvelope_GoldenHomologation(t *testing.T) {
	got, err := BuildEnvelope("12345678000190", "MG", domain.EnvHomologation, "0")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "envelope_hom", got)
}

// TestBuildEnvelope_PadsNSU tests the fixed-width padding property for
// cursors of any input width.
func TestBuildEnvelope_PadsNSU(t *testing.T) {
	for _, nsu := range []string{"", "0", "7", "123", "999999999999999"} {
		got, err := BuildEnvelope("12345678000190", "RJ", domain.EnvProduction, nsu)
		require.NoError(t, err)

		want := fmt.Sprintf("<consNSU><NSU>%s</NSU></consNSU>", domain.PadNSU(nsu))
		assert.Contains(t, string(got), want, "nsu %q", nsu)
		assert.Len(t, domain.PadNSU(nsu), domain.NSUWidth)
	}
}

// TestBuildEnvelope_Environment tests the tpAmb flag encoding.
func TestBuildEnvelope_Environment(t *testing.T) {
	prod, err := BuildEnvelope("12345678000190", "SP", domain.EnvProduction, "1")
	require.NoError(t, err)
	assert.Contains(t, string(prod), "<tpAmb>1</tpAmb>")

	hom, err := BuildEnvelope("12345678000190", "SP", domain.EnvHomologation, "1")
	require.NoError(t, err)
	assert.Contains(t, string(hom), "<tpAmb>2</tpAmb>")
}

// TestBuildEnvelope_UnknownUF tests the fail-fast decision for
// unrecognised jurisdictions.
func TestBuildEnvelope_UnknownUF(t *testing.T) {
	_, err := BuildEnvelope("12345678000190", "XX", domain.EnvProduction, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUsage)
}

// TestUFCode tests the IBGE lookup table.
func TestUFCode(t *testing.T) {
	code, err := UFCode("sp")
	require.NoError(t, err)
	assert.Equal(t, 35, code)

	code, err = UFCode("RJ")
	require.NoError(t, err)
	assert.Equal(t, 33, code)

	_, err = UFCode("ZZ")
	assert.Error(t, err)
}

// TestEndpoint tests environment-to-URL resolution.
func TestEndpoint(t *testing.T) {
	assert.True(t, strings.HasPrefix(Endpoint(domain.EnvProduction), "https://www1."))
	assert.True(t, strings.HasPrefix(Endpoint(domain.EnvHomologation), "https://hom1."))
}
