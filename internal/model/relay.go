package model

// CommandRequest is the JSON body accepted by the relay command endpoint.
// A raw text body is also accepted and treated as the command itself.
type CommandRequest struct {
	Command string `json:"command"`
}

type CommandResponse struct {
	Success bool   `json:"success"`
	Port    int    `json:"port"`
	Command string `json:"command,omitempty"`
	Message string `json:"message,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
