package common

// Row is one line of the selector: a cover or a module entry.
type Row struct {
	Index     int // Position in the catalog
	Filename  string
	GroupKey  string
	Bucket    int
	Cover     bool
	Mandatory bool
	Selected  bool
}

// ModelReader defines the interface that views use to read model state
type ModelReader interface {
	Rows() []Row
	Cursor() int
	Presets() []string
	Dir() string
	Output() string
	Status() string
	Confirm() string
	ShowHelp() bool
	HelpView() string
}
