package file

import "fmt"

// PageNo identifies a page within a single file. Page numbers start at 1.
type PageNo uint32

// InvalidPageNo is never assigned to an allocated page.
const InvalidPageNo PageNo = 0

func (n PageNo) IsValid() bool {
	return n != InvalidPageNo
}

func (n PageNo) String() string {
	return fmt.Sprintf("page %d", uint32(n))
}
