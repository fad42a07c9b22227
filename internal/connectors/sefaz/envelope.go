package sefaz

import (
	"fmt"
	"strings"

	"github.com/nfetools/dfesync/internal/core/domain"
)

// SOAPAction is the WSDL action for the distribution query.
const SOAPAction = "http://www.portalfiscal.inf.br/nfe/wsdl/NFeDistribuicaoDFe/nfeDistDFeInteresse"

// ufCodes maps UF abbreviations to IBGE codes (cUFAutor).
var ufCodes = map[string]int{
	"AC": 12, "AL": 27, "AM": 13, "AP": 16, "BA": 29, "CE": 23,
	"DF": 53, "ES": 32, "GO": 52, "MA": 21, "MG": 31, "MS": 50,
	"MT": 51, "PA": 15, "PB": 25, "PE": 26, "PI": 22, "PR": 41,
	"RJ": 33, "RN": 24, "RO": 11, "RR": 14, "RS": 43, "SC": 42,
	"SE": 28, "SP": 35, "TO": 17,
}

// endpoints holds the national environment URLs.
var endpoints = map[domain.Environment]string{
	domain.EnvProduction:   "https://www1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx",
	domain.EnvHomologation: "https://hom1.nfe.fazenda.gov.br/NFeDistribuicaoDFe/NFeDistribuicaoDFe.asmx",
}

// Endpoint returns the distribution service URL for an environment.
func Endpoint(env domain.Environment) string {
	return endpoints[env]
}

// UFCode resolves a UF abbreviation to its IBGE code. Unknown UFs are
// an error; the legacy silent fallback to SP was dropped on purpose.
func UFCode(uf string) (int, error) {
	code, ok := ufCodes[strings.ToUpper(uf)]
	if !ok {
		return 0, fmt.Errorf("%w: unknown UF %q", domain.ErrUsage, uf)
	}
	return code, nil
}

const envelopeTemplate = `<?xml version="1.0" encoding="utf-8"?>
<soap12:Envelope xmlns:soap12="http://www.w3.org/2003/05/soap-envelope"
                 xmlns:nfe="http://www.portalfiscal.inf.br/nfe/wsdl/NFeDistribuicaoDFe">
  <soap12:Body>
    <nfe:nfeDistDFeInteresse>
      <nfe:nfeDadosMsg>
        <distDFeInt xmlns="http://www.portalfiscal.inf.br/nfe" versao="1.01">
          <tpAmb>%s</tpAmb>
          <cUFAutor>%d</cUFAutor>
          <CNPJ>%s</CNPJ>
          <consNSU><NSU>%s</NSU></consNSU>
        </distDFeInt>
      </nfe:nfeDadosMsg>
    </nfe:nfeDistDFeInteresse>
  </soap12:Body>
</soap12:Envelope>`

// BuildEnvelope produces the SOAP 1.2 request for a distribution query
// at the given sequence number. The NSU is zero-padded to the fixed
// width and the environment is encoded as the tpAmb flag (1=prod,
// 2=homologation). No I/O happens here.
func BuildEnvelope(cnpj, uf string, env domain.Environment, nsu string) ([]byte, error) {
	code, err := UFCode(uf)
	if err != nil {
		return nil, err
	}
	tpAmb := "2"
	if env == domain.EnvProduction {
		tpAmb = "1"
	}
	envelope := fmt.Sprintf(envelopeTemplate, tpAmb, code, cnpj, domain.PadNSU(nsu))
	return []byte(envelope), nil
}
