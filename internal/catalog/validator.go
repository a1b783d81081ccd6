package catalog

import (
	"os"
)

// ValidationResult contains the result of checking a media file on disk
type ValidationResult struct {
	Readable bool     // File exists and is accessible
	Reasons  []string // Human-readable reasons when not readable
}

// ValidateFile checks if a file exists and is readable
func ValidateFile(filePath string) ValidationResult {
	result := ValidationResult{
		Readable: false,
		Reasons:  []string{},
	}

	info, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			result.Reasons = append(result.Reasons, "file does not exist")
		} else if os.IsPermission(err) {
			result.Reasons = append(result.Reasons, "file is not readable (permission denied)")
		} else {
			result.Reasons = append(result.Reasons, "file access error: "+err.Error())
		}
		return result
	}

	if info.IsDir() {
		result.Reasons = append(result.Reasons, "path is a directory, not a file")
		return result
	}

	// Actually try to open the file to verify read permissions
	file, err := os.Open(filePath)
	if err != nil {
		if os.IsPermission(err) {
			result.Reasons = append(result.Reasons, "file is not readable (permission denied)")
		} else {
			result.Reasons = append(result.Reasons, "cannot open file: "+err.Error())
		}
		return result
	}
	file.Close()

	result.Readable = true
	return result
}
