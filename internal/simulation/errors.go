package simulation

import "errors"

var (
	// ErrInvalidInitiator is returned when the initiator set is empty or
	// names a node that is not in the graph.
	ErrInvalidInitiator = errors.New("invalid initiator")

	// ErrInvalidProportions is returned when shelter or vaccination is
	// outside [0,1] or their sum exceeds 1.
	ErrInvalidProportions = errors.New("invalid shelter/vaccination proportions")

	// ErrInvalidParameter is returned for an out-of-range threshold,
	// probability, lifespan or round cap, or an unknown model.
	ErrInvalidParameter = errors.New("invalid parameter")
)
