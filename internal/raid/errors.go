package raid

import "fmt"

// ControllerNotFoundError is returned when an adapter index or controller id
// does not exist on the host
type ControllerNotFoundError struct {
	Index int
}

func (e *ControllerNotFoundError) Error() string {
	return fmt.Sprintf("controller %d does not exist", e.Index)
}

// NotFoundError is returned when an array, logical drive or drive reference
// cannot be resolved against the current configuration
type NotFoundError struct {
	What string
}

func (e *NotFoundError) Error() string {
	return e.What + " does not exist"
}

// DriveNotEligibleError is returned when a drive cannot join a new array
type DriveNotEligibleError struct {
	Index   int
	Address string
	State   string
}

func (e *DriveNotEligibleError) Error() string {
	return fmt.Sprintf("drive index: %d, address: %s is in state %s, cannot create array", e.Index, e.Address, e.State)
}
