// file_cleanup finds files nobody references anymore, moves them into
// per-folder _recycler_ folders and purges recycled files once they are old
// enough.
//
// Usage:
//
//	# Move files unused for three months below 1:/user_upload/ to recyclers
//	file_cleanup cleanup 1:/user_upload/ --age "3 months" --recursive
//
//	# Show what would be purged from recyclers
//	file_cleanup empty-recycler 1:/ --recursive --dry-run --verbose
//
//	# Serve the backend page
//	file_cleanup serve --addr :8080
package main

import (
	"log"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found: %v", err)
	}
}

func main() {
	Execute()
}
