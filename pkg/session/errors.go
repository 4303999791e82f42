package session

import (
	"fmt"

	"github.com/urmzd/ipcom/pkg/codec"
	"github.com/urmzd/ipcom/pkg/device"
)

// CommandError is a SetOutput the device answered with an error frame.
type CommandError struct {
	Ref  device.OutputRef
	Code codec.ErrorCode
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("device rejected command for output %s: %s", e.Ref, e.Code)
}

func (e *CommandError) Unwrap() error {
	return device.ErrCommandRejected
}
