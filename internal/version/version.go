package version

// Set at build time with
// -ldflags "-X github.com/Layr-Labs/chainwatch/internal/version.Version=v1.2.3 -X github.com/Layr-Labs/chainwatch/internal/version.Commit=abc123"
var (
	Version = "unknown"
	Commit  = "unknown"
)

func GetVersion() string {
	return Version
}

func GetCommit() string {
	return Commit
}
