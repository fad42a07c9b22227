// Package sefaz implements the NFeDistribuicaoDFe protocol surface:
// SOAP envelope construction, response classification, docZip
// extraction and the inter-page rate limiter.
//
// The package performs no network I/O. Transport is a driven port;
// this package only turns bytes into bytes.
package sefaz
