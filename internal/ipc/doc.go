// Package ipc exposes the daemon over JSON-RPC Unix sockets and ships the
// matching client used by the CLI.
//
// It owns socket lifecycle management, request/response DTOs, and conversions
// between queue models and lightweight wire representations. Admission
// rejections are reported in-band (Admitted=false plus a reason) so clients
// can tell a refused submission from a transport failure.
package ipc
