// Package session connects the marshalling core to a live server through
// pgx.
//
// A Conn supplies adapt.Context from the parameter statuses the server
// reports (client_encoding, standard_conforming_strings, server_version)
// and the transaction status byte, so every literal is built for the
// connection's current settings:
//
//	args ──► adapt.Registry.Interpolate(query, args, conn) ──► SQL text
//	                                                            │ simple protocol (pgconn)
//	rows ◄── decode.Decoder.DecodeRowFormats ◄── FromClient ◄───┘
//
// Query decodes every row independently; a malformed value fails only its
// own Row. Attach a catalog.Catalog with AttachCatalog to decode enums,
// domains and user-defined arrays.
//
// Like *pgx.Conn, a Conn must not be used from several goroutines at once.
package session
