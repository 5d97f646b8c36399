package di

// Environment is the startup context conditional registrations evaluate
// against. The generated entry point receives it once; first true
// condition wins inside a chain.
type Environment struct {
	// Name is the host environment name, e.g. "Dev" or "Prod".
	Name string

	// Config holds flat configuration values; a missing key reads as "".
	Config map[string]string
}

// Is reports whether the environment name equals name.
func (e Environment) Is(name string) bool { return e.Name == name }

// IsNot reports whether the environment name differs from name.
func (e Environment) IsNot(name string) bool { return e.Name != name }

// ConfigEquals reports whether the configuration value under key equals
// want. Missing keys compare as the empty string.
func (e Environment) ConfigEquals(key, want string) bool {
	return e.Config[key] == want
}

// ConfigNotEquals reports whether the configuration value under key
// differs from want, with the same empty-string fallback.
func (e Environment) ConfigNotEquals(key, want string) bool {
	return e.Config[key] != want
}
