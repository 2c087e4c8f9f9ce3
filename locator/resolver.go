package locator

// Resolver maps link targets to concrete media resources. It is provided by
// the host (see vault.Vault for the filesystem implementation).
type Resolver interface {
	// Resolve returns the resource path a link points to from the document
	// at sourcePath. It returns false if the link does not resolve.
	Resolve(linkPath, sourcePath string) (string, bool)

	// IsMedia reports whether a resolved resource is a playable video.
	IsMedia(resourcePath string) bool
}

// ResolverFunc adapts a plain resolve function that also decides media-ness.
type ResolverFunc func(linkPath, sourcePath string) (string, bool)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(linkPath, sourcePath string) (string, bool) {
	return f(linkPath, sourcePath)
}

// IsMedia implements Resolver. Every resolved resource counts as media.
func (f ResolverFunc) IsMedia(string) bool {
	return true
}
