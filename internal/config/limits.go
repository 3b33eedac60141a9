package config

const (
	// MaxFolderNameLength is the maximum length for folder names.
	// Limited to 255 to fit in VARCHAR(255) columns.
	MaxFolderNameLength = 255

	// MaxFolderDescriptionLength caps folder descriptions.
	MaxFolderDescriptionLength = 2000

	// MaxFileNameLength caps the client-supplied original file name. The
	// stored name adds a 13-digit millisecond prefix and an underscore.
	MaxFileNameLength = 240

	// DefaultChunkSize is the upload write granularity (64 KiB). Each chunk
	// write is followed by one progress event.
	DefaultChunkSize = 64 * 1024

	// DefaultMaxUploadSize bounds a single multipart upload (1 GiB).
	DefaultMaxUploadSize = 1 << 30

	// DefaultS3PartSize is the multipart part size for the s3 backend.
	// S3 requires every part except the last to be at least 5 MiB.
	DefaultS3PartSize = 8 * 1024 * 1024

	// DefaultPage and DefaultLimit apply when a listing omits them.
	DefaultPage  = 1
	DefaultLimit = 100

	// MaxLimit caps the page size of folder listings.
	MaxLimit = 1000
)

// DefaultAllowedTypes is the media type allow-list for uploads. Matching is
// exact against the declared Content-Type.
var DefaultAllowedTypes = []string{
	"image/jpeg",
	"image/png",
	"application/pdf",
	"text/plain",
}
