// Package tcp provides the framed transport of package base over TCP. It is the fastest
// transport between hosts: requests are multiplexed over a few long lived connections instead
// of one HTTP exchange per request.
//
// Socket options come from the transport config and are applied to every dialed and accepted
// connection:
//
//	SocketConf.WriteBufferSize / ReadBufferSize   kernel buffers, 0 keeps the default
//	TCPConf.TCPNoDelay                            disables Nagle, on by default in the CLI
//	TCPConf.TCPKeepAliveSec                       idle time and probe interval, 0 disables
//	TCPConf.TCPLingerSec                          negative keeps the system default
//
// Dialing gives up after 5 seconds. The server reads into pooled 512 KB buffers unless
// --transport-buffer-size says otherwise.
package tcp
