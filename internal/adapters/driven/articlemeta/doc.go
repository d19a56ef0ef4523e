// Package articlemeta implements the source catalogue client over two
// interchangeable transports: a restful HTTP client and a thrift binary
// client. Both serve the same JSON document payload; the thrift service
// returns it as a string, the restful service over plain HTTP. The factory
// in client.go selects the transport from the connection setting.
package articlemeta
