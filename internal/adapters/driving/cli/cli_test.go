package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfetools/dfesync/internal/adapters/driven/storage/memory"
	"github.com/nfetools/dfesync/internal/core/domain"
	"github.com/nfetools/dfesync/internal/core/ports/driven"
)

const testAccessKey = "35251112345678000190550010000000451000000007"

const testInvoiceXML = `<nfeProc xmlns="http://www.portalfiscal.inf.br/nfe" versao="4.00">
  <NFe>
    <infNFe Id="NFe` + testAccessKey + `" versao="4.00">
      <ide><nNF>000045</nNF><dhEmi>2025-11-03T09:15:00-03:00</dhEmi></ide>
    </infNFe>
  </NFe>
  <protNFe versao="4.00"><infProt><chNFe>` + testAccessKey + `</chNFe></infProt></protNFe>
</nfeProc>`

// cannedTransport returns the same response body for every query.
type cannedTransport struct {
	body  []byte
	calls int
}

func (t *cannedTransport) Post(_ context.Context, _ string, _ []byte) (int, []byte, error) {
	t.calls++
	return 200, t.body, nil
}

func noDocsResponse() []byte {
	return []byte(`<soap:Envelope xmlns:soap="http://www.w3.org/2003/05/soap-envelope"><soap:Body>
<retDistDFeInt versao="1.01"><tpAmb>1</tpAmb><cStat>137</cStat>
<xMotivo>Nenhum documento localizado</xMotivo><ultNSU>000000000000000</ultNSU>
</retDistDFeInt></soap:Body></soap:Envelope>`)
}

// execute runs the root command with args and captures its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// swapAdapters replaces the adapter factories with test doubles and
// returns a cleanup func.
func swapAdapters(transport driven.Transport, store driven.CursorStore) func() {
	oldTransport := newTransport
	oldStore := openCursorStore
	newTransport = func(_, _ string) (driven.Transport, error) {
		return transport, nil
	}
	openCursorStore = func(_, _ string) (driven.CursorStore, error) {
		return store, nil
	}
	return func() {
		newTransport = oldTransport
		openCursorStore = oldStore
	}
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dfesync version dev")
}

func TestSyncCmd_RequiresCNPJ(t *testing.T) {
	cleanup := swapAdapters(&cannedTransport{}, memory.NewCursorStore())
	defer cleanup()

	_, err := execute(t, "sync",
		"--config-dir", t.TempDir(),
		"--cnpj", "",
		"--dest", t.TempDir(),
		"--uf", "SP", "--cert-pfx", "cert.pfx")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUsage)
}

func TestSyncCmd_RequiresUFBeforeNetwork(t *testing.T) {
	transport := &cannedTransport{body: noDocsResponse()}
	cleanup := swapAdapters(transport, memory.NewCursorStore())
	defer cleanup()

	_, err := execute(t, "sync",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190",
		"--dest", t.TempDir(),
		"--uf", "", "--env", "prod", "--cert-pfx", "cert.pfx")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUsage)
	assert.Zero(t, transport.calls)
}

func TestSyncCmd_RejectsUnknownUF(t *testing.T) {
	transport := &cannedTransport{body: noDocsResponse()}
	cleanup := swapAdapters(transport, memory.NewCursorStore())
	defer cleanup()

	_, err := execute(t, "sync",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190",
		"--dest", t.TempDir(),
		"--uf", "XX", "--env", "prod", "--cert-pfx", "cert.pfx")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUsage)
	assert.Zero(t, transport.calls)
}

func TestSyncCmd_RequiresCertPFX(t *testing.T) {
	cleanup := swapAdapters(&cannedTransport{}, memory.NewCursorStore())
	defer cleanup()

	_, err := execute(t, "sync",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190",
		"--dest", t.TempDir(),
		"--uf", "SP", "--cert-pfx", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUsage)
}

func TestSyncCmd_RejectsUnknownEnvironment(t *testing.T) {
	cleanup := swapAdapters(&cannedTransport{}, memory.NewCursorStore())
	defer cleanup()

	_, err := execute(t, "sync",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190",
		"--dest", t.TempDir(),
		"--uf", "SP", "--env", "staging", "--cert-pfx", "cert.pfx")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUsage)
}

func TestSyncCmd_NoNewData(t *testing.T) {
	transport := &cannedTransport{body: noDocsResponse()}
	store := memory.NewCursorStore()
	cleanup := swapAdapters(transport, store)
	defer cleanup()

	out, err := execute(t, "sync",
		"--config-dir", t.TempDir(),
		"--cnpj", "12.345.678/0001-90",
		"--dest", t.TempDir(),
		"--uf", "SP", "--env", "prod", "--cert-pfx", "cert.pfx")
	require.NoError(t, err)

	assert.Equal(t, 1, transport.calls)
	assert.Contains(t, out, "no-new-data")

	cursor, err := store.Load(context.Background(), "12345678000190", domain.EnvProduction)
	require.NoError(t, err)
	assert.False(t, cursor.NextAllowed.IsZero())
}

func TestScanCmd_PlacesInvoice(t *testing.T) {
	scanDir := t.TempDir()
	writeTestFile(t, scanDir, "invoice.xml", testInvoiceXML)

	out, err := execute(t, "scan",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190",
		"--dest", t.TempDir(),
		"--dir", scanDir)
	require.NoError(t, err)
	assert.Contains(t, out, "considered 1, placed 1")
}

func TestScanCmd_MonthFilter(t *testing.T) {
	scanDir := t.TempDir()
	writeTestFile(t, scanDir, "invoice.xml", testInvoiceXML)

	out, err := execute(t, "scan",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190",
		"--dest", t.TempDir(),
		"--dir", scanDir,
		"--month", "2025-10")
	require.NoError(t, err)
	assert.Contains(t, out, "considered 1, placed 0")
}

func TestScanCmd_BadMonth(t *testing.T) {
	_, err := execute(t, "scan",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190",
		"--dest", t.TempDir(),
		"--dir", t.TempDir(),
		"--month", "november")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUsage)
}

func TestScanCmd_RequiresDir(t *testing.T) {
	_, err := execute(t, "scan",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190",
		"--dest", t.TempDir(),
		"--dir", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUsage)
}

func TestCursorCmd_ShowNeverSynchronised(t *testing.T) {
	cleanup := swapAdapters(&cannedTransport{}, memory.NewCursorStore())
	defer cleanup()

	out, err := execute(t, "cursor", "show",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190", "--env", "prod")
	require.NoError(t, err)
	assert.Contains(t, out, "never synchronised")
}

func TestCursorCmd_ShowAndReset(t *testing.T) {
	store := memory.NewCursorStore()
	require.NoError(t, store.Save(context.Background(), "12345678000190", domain.EnvProduction,
		domain.Cursor{LastNSU: "000000000000123"}))
	cleanup := swapAdapters(&cannedTransport{}, store)
	defer cleanup()

	out, err := execute(t, "cursor", "show",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190", "--env", "prod")
	require.NoError(t, err)
	assert.Contains(t, out, "000000000000123")

	out, err = execute(t, "cursor", "reset",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190", "--env", "prod")
	require.NoError(t, err)
	assert.Contains(t, out, "reset")

	out, err = execute(t, "cursor", "show",
		"--config-dir", t.TempDir(),
		"--cnpj", "12345678000190", "--env", "prod")
	require.NoError(t, err)
	assert.Contains(t, out, "never synchronised")
}

func TestCursorCmd_RequiresCNPJ(t *testing.T) {
	_, err := execute(t, "cursor", "show",
		"--config-dir", t.TempDir(),
		"--cnpj", "", "--env", "prod")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUsage)
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
