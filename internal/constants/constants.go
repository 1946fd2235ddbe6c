package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultHTTPTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixArchive = "archived:"
	CacheKeyPrefixSummary = "summary:"
)

const (
	DefaultMessageTopic = "askline_message_events"
)

const (
	DefaultMongoDBName = "askline"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultJoinCodeLength = 6
	DefaultQRSizePixels   = 256
	MaxContentLength      = 2000
)

const (
	DefaultDedupTTLSeconds   = 86400
	DefaultSummaryTTLSeconds = 120
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

const (
	DefaultModerationReloadInterval = 30 * time.Second
)

const (
	ArchiveOnRedisError = "archive"
	SkipOnRedisError    = "skip"
)
