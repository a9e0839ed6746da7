// Package wire defines the named-pipe protocol between kvs clients and
// the server, and helpers to create and open FIFOs.
//
// Every request, registration and notification is one line terminated
// by '\n'. Responses are a single status byte.
//
//	registration:  1|<request path>|<response path>|<notify path>
//	disconnect:    2
//	subscribe:     3|<key>
//	unsubscribe:   4|<key>
//	notification:  (<key>,<value>) or (<key>,DELETED)
package wire
