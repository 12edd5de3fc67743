package app

const (
	Name           = "motdwatch"
	SourceURL      = "https://git.skobk.in/skobkin/motdwatch"
	ConfigFilename = "config.json"
	DBFilename     = "state.db"
	LogFilename    = "motdwatch.log"
)
