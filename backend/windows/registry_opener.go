//go:build windows

package windows

import "golang.org/x/sys/windows/registry"

// SystemRegistryOpener is the production RegistryOpener, backed by
// golang.org/x/sys/windows/registry. It only builds for GOOS=windows;
// tests and non-Windows hosts use a fake RegistryOpener instead.
type SystemRegistryOpener struct{}

func (SystemRegistryOpener) OpenKey(hive Hive, path string) (string, bool, error) {
	root := registry.LOCAL_MACHINE
	if hive == HiveCurrentUser {
		root = registry.CURRENT_USER
	}

	key, err := registry.OpenKey(root, path, registry.QUERY_VALUE)
	if err != nil {
		if err == registry.ErrNotExist {
			return "", false, nil
		}
		return "", false, err
	}
	defer key.Close()

	version, _, err := key.GetStringValue("DisplayVersion")
	if err != nil {
		if err == registry.ErrNotExist {
			return "", false, nil
		}
		return "", false, err
	}
	return version, true, nil
}
