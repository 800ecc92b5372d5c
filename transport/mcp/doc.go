// Package mcp exposes partyhub's admin operations as MCP tools over stdio.
//
// The client is deliberately thin: every tool proxies to the REST API of a
// running server rather than touching the coordinator directly, so the MCP
// process can attach to any reachable instance. Tools cover room listing,
// room inspection, room creation, and the on-demand cleanup sweep.
package mcp
