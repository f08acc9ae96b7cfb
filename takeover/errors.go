package takeover

import "errors"

var (
	// ErrIntrospection is wrapped by size-class and arena-count query failures.
	ErrIntrospection = errors.New("takeover: allocator introspection failed")
	// ErrBootstrap is wrapped by arena binding failures.
	ErrBootstrap = errors.New("takeover: arena bootstrap failed")
	// ErrInstall is wrapped by chunk-hook installation failures.
	ErrInstall = errors.New("takeover: chunk hook installation failed")
	// ErrDrain is wrapped by purification failures.
	ErrDrain = errors.New("takeover: could not use up memory outside of shared heap")
)
