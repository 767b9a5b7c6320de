//go:build windows

package discovery

// executableName appends the platform's executable extension (spec §6:
// "executable matching the directory name, with platform-appropriate
// extension").
func executableName(dirName string) string {
	return dirName + ".exe"
}
