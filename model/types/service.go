package types

// Service is a simulated external system exposing tools as methods.
// A tool id has the form "<service name>.<method name>", e.g. "pos.price.update".
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}
