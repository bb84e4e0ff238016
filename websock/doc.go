/*
Package websock enhances Gorilla client websockets that deliver binary
capture stream data by handling graceful closing on both sides using polite
close control messages. This is as opposed to simply tearing down the
transport (TLS) connection, which tends to leave remote capture services
with half-written capture streams.
*/
package websock
