package orchestrator

import "errors"

// ErrInvalidArgument is returned when a Command's composition violates
// the orchestrator's rules: an unrecognized type, no exchange_names to
// dispatch against, or a Withdraw with no destination address (spec §7
// InvalidArgument — "Command composition violates rules").
var ErrInvalidArgument = errors.New("orchestrator: invalid command argument")
