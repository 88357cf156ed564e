package file

import "errors"

var (
	ErrInvalidPage      = errors.New("page is not allocated")
	ErrInvalidPageSize  = errors.New("invalid page size")
	ErrPageSizeMismatch = errors.New("page size does not match file page size")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrBadFileHeader    = errors.New("bad file header")
	ErrFileClosed       = errors.New("file manager is closed")
	ErrInvalidFileName  = errors.New("invalid file name")
	ErrTooManyPages     = errors.New("file has reached its maximum number of pages")
	ErrBadLength        = errors.New("length prefix exceeds page")
)
