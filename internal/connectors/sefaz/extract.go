package sefaz

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nfetools/dfesync/internal/core/domain"
)

// gzipMagic is the two-byte gzip header signature.
var gzipMagic = []byte{0x1f, 0x8b}

// DecodeDocZip base64-decodes a container payload and, when the bytes
// carry the gzip signature, decompresses them. Uncompressed bodies
// pass through unchanged: some provider deployments return plain XML
// despite the contract. A base64 failure is a per-document error.
func DecodeDocZip(payload string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode: %v", domain.ErrDocument, err)
	}
	return Decompress(raw)
}

// Decompress gunzips raw when it starts with the gzip magic bytes,
// detected by signature rather than by schema tag.
func Decompress(raw []byte) ([]byte, error) {
	if !bytes.HasPrefix(raw, gzipMagic) {
		return raw, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: gzip open: %v", domain.ErrDocument, err)
	}
	defer zr.Close()
	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: gzip read: %v", domain.ErrDocument, err)
	}
	return out, nil
}

// Identify parses a decompressed document, determines its kind from
// the root element and, for invoices, derives the identity key, access
// key and emission month.
//
// Invariant: an invoice must yield a non-empty number or access key;
// otherwise identification fails with a document error.
func Identify(raw []byte) (domain.Document, error) {
	doc := domain.Document{Kind: domain.KindOther, Raw: raw}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	var path []string
	rootSeen := false

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Document{}, fmt.Errorf("%w: xml parse: %v", domain.ErrDocument, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			local := t.Name.Local
			if !rootSeen {
				rootSeen = true
				doc.Kind = kindForRoot(local)
			}
			path = append(path, local)

			if doc.Kind != domain.KindInvoice {
				continue
			}
			switch {
			case local == "chNFe" && parentIs(path, "infProt"):
				text, err := decodeText(dec, &t)
				if err != nil {
					return domain.Document{}, err
				}
				doc.AccessKey = strings.TrimSpace(text)
				path = path[:len(path)-1]
			case local == "nNF" && parentIs(path, "ide"):
				text, err := decodeText(dec, &t)
				if err != nil {
					return domain.Document{}, err
				}
				doc.Number = domain.NormalizeNumber(text)
				path = path[:len(path)-1]
			case (local == "dhEmi" || local == "dEmi") && parentIs(path, "ide"):
				text, err := decodeText(dec, &t)
				if err != nil {
					return domain.Document{}, err
				}
				if doc.Emission.IsZero() {
					doc.Emission = parseEmission(text)
				}
				path = path[:len(path)-1]
			}

		case xml.EndElement:
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
		}
	}

	if !rootSeen {
		return domain.Document{}, fmt.Errorf("%w: empty document", domain.ErrDocument)
	}
	if doc.Kind == domain.KindInvoice && doc.Number == "" && doc.AccessKey == "" {
		return domain.Document{}, fmt.Errorf("%w: invoice carries neither nNF nor chNFe", domain.ErrDocument)
	}
	return doc, nil
}

// kindForRoot maps a root element local name to a document kind.
func kindForRoot(local string) domain.DocumentKind {
	switch local {
	case "nfeProc":
		return domain.KindInvoice
	case "procEventoNFe", "resEvento":
		return domain.KindEvent
	default:
		return domain.KindOther
	}
}

// parentIs reports whether the element on top of the path stack has
// the given parent. The stack includes the current element.
func parentIs(path []string, parent string) bool {
	return len(path) >= 2 && path[len(path)-2] == parent
}

// emissionLayouts are the timestamp shapes seen across NF-e layout
// versions: dhEmi (v4.00, RFC 3339 with offset) and dEmi (older,
// date only).
var emissionLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseEmission extracts the year/month from an emission timestamp.
// Unparsable values yield the zero MonthRef; callers fall back to the
// wall clock at placement time.
func parseEmission(text string) domain.MonthRef {
	text = strings.TrimSpace(text)
	for _, layout := range emissionLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return domain.MonthOf(t)
		}
	}
	return domain.MonthRef{}
}
