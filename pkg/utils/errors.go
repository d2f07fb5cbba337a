package utils

import "fmt"

// DeployError categorizes failures recorded during a run. Codes group the
// taxonomy: 1xxx connectivity, 2xxx transfer, 3xxx rendering, 4xxx validation.
type DeployError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *DeployError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func NewConnectivityError(cluster string, err error) *DeployError {
	return &DeployError{
		Code:    1001,
		Message: fmt.Sprintf("%s: connection failed", cluster),
		Details: err.Error(),
	}
}

func NewTransferError(target string, err error) *DeployError {
	return &DeployError{
		Code:    2001,
		Message: fmt.Sprintf("upload %s failed", target),
		Details: err.Error(),
	}
}

func NewRenderError(template string, err error) *DeployError {
	return &DeployError{
		Code:    3001,
		Message: fmt.Sprintf("render %s failed", template),
		Details: err.Error(),
	}
}

func NewValidationError(field string, value interface{}) *DeployError {
	return &DeployError{
		Code:    4001,
		Message: fmt.Sprintf("invalid %s", field),
		Details: fmt.Sprintf("value: %v", value),
	}
}
