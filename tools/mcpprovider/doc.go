// Package mcpprovider implements tools.Provider over a Model Context Protocol
// client session.
//
// Servers are described by a transport spec:
//
//	stdio://command args     a local process speaking MCP on stdin/stdout
//	command args             same as stdio://
//	sse://host/path          the legacy HTTP+SSE transport
//	http+sse://host/path     same as sse://
//	http://host/path         the streamable HTTP transport
//	http+stream://host/path  same as http://
//
// The session is connected on first use and kept until Close.
package mcpprovider
