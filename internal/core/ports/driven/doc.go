// Package driven defines the driven (outbound) ports of the hexagon:
// interfaces the core services need implemented by adapters, such as
// cursor persistence, the SOAP transport and the archive tree.
package driven
