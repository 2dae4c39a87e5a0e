// Package domain holds the core types and pure transformations of the lead
// intake service: inbound telephony events, phone normalization, storm event
// severity, and the geocoding contract. It has no I/O dependencies.
package domain
