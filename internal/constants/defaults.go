package constants

// Default delivery configuration values
const (
	DefaultCooldownMs           = 3000
	DefaultKeepaliveIntervalSec = 20
	DefaultPollIntervalSec      = 3
	DefaultReconnectBaseMs      = 1000
	DefaultReconnectMaxMs       = 10000
	DefaultReconnectGrowth      = 1.5
)

// Default server configuration values
const (
	DefaultServerPort            = 8080
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Default upload configuration values
const (
	DefaultMaxUploadSizeMB = 10
	DefaultUploadDir       = "uploads"
)

// WebSocket session values
const (
	DefaultSendBufferSize  = 256
	DefaultMaxFrameSize    = 64 * 1024
	DefaultWriteTimeoutSec = 10
	DefaultReadTimeoutSec  = 60
)

// Payload limits
const (
	MaxSenderNameLength = 100
	MaxContentLength    = 4000
)

// Privacy settings
const (
	SenderNameVisibleRunes = 4
	SenderNameFillerRune   = '∙'
)

// DefaultSenderName is used when an API caller supplies no name.
const DefaultSenderName = "API"
