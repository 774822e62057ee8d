package pipeline

import "errors"

var (
	// ErrUndefinedLogic is returned when components are added or executed
	// before a Logic has been attached.
	ErrUndefinedLogic = errors.New("pipeline logic is undefined")
	// ErrDuplicateComponent is returned when a name is registered twice.
	ErrDuplicateComponent = errors.New("component already registered")
	// ErrSelfDependency is returned when a component lists itself as a dependency.
	ErrSelfDependency = errors.New("component cannot depend on itself")
	// ErrInvalidSourceComponent is returned when a dependency is not registered yet.
	ErrInvalidSourceComponent = errors.New("invalid source component")
	// ErrUnsupportedComponent is returned when the attached Logic does not know the name.
	ErrUnsupportedComponent = errors.New("component not supported by logic")
	// ErrComponentNotFound is returned by introspection calls for unknown names.
	ErrComponentNotFound = errors.New("component not found")
	// ErrUnregisteredComponent is returned by Logic lookups for unknown names.
	ErrUnregisteredComponent = errors.New("unregistered component")
	// ErrReservedName is returned when a component tries to use BaseKey as its name.
	ErrReservedName = errors.New("component name is reserved")
	// ErrInvalidLogic is returned when a Logic registration is incomplete.
	ErrInvalidLogic = errors.New("invalid component logic")
)
