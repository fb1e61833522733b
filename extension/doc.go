// Package extension provides the run-time registry of local action services.
// Each service simulates one backend system and exposes its tools as
// methods; a tool id is the service name joined with the method name.
package extension
