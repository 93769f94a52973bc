// Package rpc holds corekv's external interfaces.
//
//   - http: the HTTP/JSON API adaptor: routes POSTs to the
//     storage contract and formats JSON responses.
package rpc
