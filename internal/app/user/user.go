/*
Package user defines how a chat participant appears in the roster.
*/
package user

// Profile is one roster entry. Avatar is derived from Name, never transmitted.
type Profile struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}
