// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services are pure Go with no CGO. External capabilities are reached only
// through driven ports, and every call goes through a CapabilityGate.
package services
