// Package types defines the Sample value shared by the server and the viewer.
// Sample is the canonical in-memory representation of one host reading; its
// JSON form is the wire format sent over /sync:
//
//	{"cpus": [12.5, 0, 99.9], "ram": [4096, 8192]}
package types
