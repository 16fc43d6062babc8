package errors

import (
	"fmt"
)

var (
	ErrNotFound       = fmt.Errorf("not found")
	ErrRegionNotFound = fmt.Errorf("region not found")
	ErrDuplicateName  = fmt.Errorf("duplicate name")
	ErrInvalidInput   = fmt.Errorf("invalid input")
	ErrNotOwner       = fmt.Errorf("not the owner")
)
