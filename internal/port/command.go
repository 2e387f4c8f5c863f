package port

import "context"

// CommandRunner executes an external conversion tool. Implementations must
// stop the process when ctx is done.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string) (stderr []byte, err error)
}
