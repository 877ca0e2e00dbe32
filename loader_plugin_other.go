//go:build !((linux || darwin || freebsd) && cgo)

package jshell

// PluginLoader reports UnsupportedOnPlatform for every operation on platforms
// without Go plugin support.
type PluginLoader struct{}

func NewPluginLoader() *PluginLoader {
	return &PluginLoader{}
}

func (l *PluginLoader) Extension() string {
	return ".so"
}

func (l *PluginLoader) LoadNative(path string) (Handle, error) {
	return nil, UnsupportedOnPlatform()
}

func (l *PluginLoader) LookupSymbol(h Handle, name string) (interface{}, error) {
	return nil, UnsupportedOnPlatform()
}

func (l *PluginLoader) UnloadNative(h Handle) error {
	return UnsupportedOnPlatform()
}
