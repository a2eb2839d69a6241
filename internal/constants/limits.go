package constants

const (
	// IDRandomBytes is the number of random bytes in generated entity IDs.
	IDRandomBytes = 12

	// MaxMessageContentLength is the maximum chat message length in characters.
	MaxMessageContentLength = 4000

	// WSClientSendBufferSize bounds the per-connection outbound frame buffer.
	WSClientSendBufferSize = 256
)
