package file

// File is the durable page store the buffer manager reads from and writes back to.
// Implementations assign page numbers, keep every page the same size and identify
// themselves by name for error reporting. Two File values denote the same file iff
// they compare equal.
type File interface {
	// Filename returns the name the file is known by.
	Filename() string
	// PageSize returns the size in bytes of every page of the file.
	PageSize() int
	// ReadPage copies the contents of page pageNo into p and sets p's number.
	ReadPage(pageNo PageNo, p *Page) error
	// WritePage writes p's contents to the page numbered p.Number().
	WritePage(p *Page) error
	// AllocatePage reserves a new zeroed page and returns its number.
	AllocatePage() (PageNo, error)
	// DeletePage releases the page. Its number may be handed out again later.
	DeletePage(pageNo PageNo) error
}
