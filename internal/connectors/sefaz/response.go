package sefaz

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nfetools/dfesync/internal/core/domain"
)

// Provider status codes the sync loop recognises.
const (
	// StatusDocsFound (138) signals documents are present and more
	// may follow.
	StatusDocsFound = 138

	// StatusNoDocs (137) signals the subscriber is queried up to date.
	StatusNoDocs = 137

	// StatusMisuse (656) signals the provider detected over-frequent
	// queries and blocked the subscriber temporarily.
	StatusMisuse = 656
)

// DocZip is one compressed document container from a response.
type DocZip struct {
	// NSU is the sequence number the provider assigned to this
	// individual document.
	NSU string

	// Schema tags the document type (e.g. procNFe, procEventoNFe).
	Schema string

	// Payload is the base64 text of the gzip-compressed body.
	Payload string
}

// Response is the classified result of one distribution query.
type Response struct {
	// Status is the provider status code (cStat).
	Status int

	// Reason is the provider status message (xMotivo).
	Reason string

	// LastNSU is the new cursor value (ultNSU); empty when absent.
	LastNSU string

	// MaxNSU is the provider's known maximum at query time; empty
	// when absent.
	MaxNSU string

	// Docs are the document containers, in response order.
	Docs []DocZip
}

// FaultError is a SOAP-level fault envelope, a distinct failure
// category from a malformed response.
type FaultError struct {
	Detail string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("SOAP fault: %s", e.Detail)
}

// Unwrap classifies faults as transport-level failures.
func (e *FaultError) Unwrap() error {
	return domain.ErrTransport
}

// faultXML captures the inner markup of a Fault element for reporting.
type faultXML struct {
	Inner string `xml:",innerxml"`
}

// docZipXML is the wire shape of a docZip element.
type docZipXML struct {
	NSU    string `xml:"NSU,attr"`
	Schema string `xml:"schema,attr"`
	Text   string `xml:",chardata"`
}

// ClassifyResponse parses a distribution response into its status
// code, cursor values and document containers. The walk matches
// elements by local name so namespace-prefix variations across
// provider deployments do not matter.
func ClassifyResponse(body []byte) (*Response, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	resp := &Response{Status: -1}
	sawResult := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}

		switch start.Name.Local {
		case "Fault":
			var fault faultXML
			if err := dec.DecodeElement(&fault, &start); err != nil {
				return nil, fmt.Errorf("%w: decoding fault: %v", domain.ErrParse, err)
			}
			return nil, &FaultError{Detail: strings.TrimSpace(fault.Inner)}

		case "retDistDFeInt":
			sawResult = true

		case "cStat":
			text, err := decodeText(dec, &start)
			if err != nil {
				return nil, err
			}
			status, convErr := strconv.Atoi(strings.TrimSpace(text))
			if convErr != nil {
				return nil, fmt.Errorf("%w: non-numeric cStat %q", domain.ErrParse, text)
			}
			resp.Status = status

		case "xMotivo":
			text, err := decodeText(dec, &start)
			if err != nil {
				return nil, err
			}
			resp.Reason = strings.TrimSpace(text)

		case "ultNSU":
			text, err := decodeText(dec, &start)
			if err != nil {
				return nil, err
			}
			resp.LastNSU = strings.TrimSpace(text)

		case "maxNSU":
			text, err := decodeText(dec, &start)
			if err != nil {
				return nil, err
			}
			resp.MaxNSU = strings.TrimSpace(text)

		case "docZip":
			var dz docZipXML
			if err := dec.DecodeElement(&dz, &start); err != nil {
				return nil, fmt.Errorf("%w: decoding docZip: %v", domain.ErrParse, err)
			}
			resp.Docs = append(resp.Docs, DocZip{
				NSU:     dz.NSU,
				Schema:  dz.Schema,
				Payload: strings.TrimSpace(dz.Text),
			})
		}
	}

	if !sawResult {
		return nil, fmt.Errorf("%w: retDistDFeInt not found in response", domain.ErrParse)
	}
	if resp.Status < 0 {
		return nil, fmt.Errorf("%w: mandatory cStat field absent", domain.ErrParse)
	}
	return resp, nil
}

func decodeText(dec *xml.Decoder, start *xml.StartElement) (string, error) {
	var s string
	if err := dec.DecodeElement(&s, start); err != nil {
		return "", fmt.Errorf("%w: decoding %s: %v", domain.ErrParse, start.Name.Local, err)
	}
	return s, nil
}
