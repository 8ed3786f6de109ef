package converter

import "strings"

// filenameReplacer maps characters reserved on common filesystems to "_".
var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// SanitizeFilename makes name safe to use as a file name by replacing each
// reserved character with an underscore. Other characters, Unicode included,
// are kept and the result is never truncated.
func SanitizeFilename(name string) string {
	return filenameReplacer.Replace(name)
}
