package optimizer

import "fmt"

// ManifestIOError reports a failed filesystem operation on a manifest.
// Op is one of "read", "backup", or "write". Unlike a parse failure,
// which skips just the affected manifest, an IO failure aborts the
// optimization pass so the caller can roll back.
type ManifestIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *ManifestIOError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ManifestIOError) Unwrap() error {
	return e.Err
}

// SecondaryConfigError reports a structural problem in .cargo/config.toml.
// The build-std pass treats these as fatal rather than skipping, since a
// malformed tool config would silently disable the optimization.
type SecondaryConfigError struct {
	Path   string
	Reason string
}

func (e *SecondaryConfigError) Error() string {
	return fmt.Sprintf("invalid %s structure: %s", e.Path, e.Reason)
}
