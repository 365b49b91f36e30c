package prompts

import _ "embed"

// Embedded prompt files

//go:embed system_guard.txt
var systemGuard string

func SystemGuard() string { return systemGuard }
