package compose

// Composer defines the interface for document composition.
// This allows for dependency injection in tests and other parts of the application
type Composer interface {
	// SetDryRun sets whether compositions skip the final write
	SetDryRun(dryRun bool)

	// IsDryRun returns whether the composer is in dry run mode
	IsDryRun() bool

	// SetCreateDirs sets whether the destination directory is created
	SetCreateDirs(createDirs bool)

	// Compose merges paths in order into dest
	Compose(paths []string, dest string) (*Result, error)
}

// Ensure Engine implements the Composer interface
var _ Composer = (*Engine)(nil)
