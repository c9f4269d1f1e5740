package handlers

import "toolbridge/internal/tools"

// Default returns the built-in tool registrations.
func Default() []tools.Registration {
	return []tools.Registration{
		tools.Func("", "", GetWeather),
		tools.Func("read_file", "Read a text file from the working directory", ReadFile),
		tools.Func("list_files", "List files in the working directory, optionally fuzzy-filtered", ListFiles),
	}
}
