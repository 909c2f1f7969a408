package configs

// 应用标识，构建时可通过 -ldflags "-X ..." 覆盖.
var (
	AppName    = "outputvault"
	AppVersion = "0.1.0"
)
