package server_response

type serverResponder interface {
	Respond(ctx interface{}, code int, message string, payload interface{}, errs []error)
}

var Responder serverResponder = ginResponder{}
