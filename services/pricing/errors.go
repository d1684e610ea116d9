package pricing

import "fmt"

// UnknownServiceError is returned when no active catalog entry exists for a
// service code. Without a base price there is nothing to fall back to.
type UnknownServiceError struct {
	ServiceCode string
}

func (e *UnknownServiceError) Error() string {
	return fmt.Sprintf("no active catalog entry for service %s", e.ServiceCode)
}
