/*
Package event decodes the binary payloads carried by job events emitted by
the marketplace contract.

Every event has a fixed-order, untagged layout read by a single forward-only
cursor. Supported primitives are:

	string     1 byte length, UTF-8 bytes (up to 255)
	bytes      1 byte length, raw bytes
	string[]   1 byte count, strings
	address[]  1 byte count, 20-byte addresses
	bytes32    32 raw bytes
	address    20 raw bytes
	bool       1 byte, 1 means true
	uint256    32 bytes, big-endian
	uint32     4 bytes, big-endian
	uint16     2 bytes, big-endian

Events without a dedicated layout (Taken, Paid, Completed, Closed, etc.)
decode to nil Details. A truncated payload is reported as *DecodeError
and concerns only the event being decoded.
*/
package event
