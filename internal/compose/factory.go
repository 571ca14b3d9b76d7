package compose

// ComposerFactory is a function that creates a Composer
// This allows for dependency injection in tests
type ComposerFactory func() Composer

// DefaultComposerFactory creates a real Word document composer
var DefaultComposerFactory ComposerFactory = func() Composer {
	return New()
}

// CurrentComposerFactory is the currently active factory
// This can be swapped in tests
var CurrentComposerFactory = DefaultComposerFactory

// SetComposerFactory sets a custom composer factory for dependency injection
func SetComposerFactory(factory ComposerFactory) {
	CurrentComposerFactory = factory
}

// ResetComposerFactory resets to the default composer factory
func ResetComposerFactory() {
	CurrentComposerFactory = DefaultComposerFactory
}
