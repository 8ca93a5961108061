package core

type AppConfig interface {
	GetRuntimePath() string
	GetDatabasePath() string
	GetModsPath() string
	GetStatePath() string
	IsTelegramSelected() bool
}

type TelegramConfig interface {
	GetTelegramToken() string
	GetTelegramOwnerID() int64
}

type RegistryConfig interface {
	GetBaseURL() string
	GetToken() string
	GetMaxArchiveBytes() int64
}
