package constants

import "os"

// BuildVersion is the release version of venus-fvm.
const BuildVersion = "0.1.0"

// CurrentCommit is injected with -ldflags at build time.
var CurrentCommit string

// UserVersion reports the version shown by the host binary.
func UserVersion() string {
	if CurrentCommit == "" || os.Getenv("VENUS_FVM_VERSION_IGNORE_COMMIT") == "1" {
		return BuildVersion
	}
	return BuildVersion + "+" + CurrentCommit
}
