package jobs

import (
	"log"

	"github.com/anjiri1684/teacher_review/store"
)

// BackupDataFiles copies both collection snapshots to .bak siblings. Runs on
// a cron schedule from main.
func BackupDataFiles() {
	if err := store.S.Backup(); err != nil {
		log.Printf("Error backing up data files: %v", err)
		return
	}
	log.Println("Data files backed up")
}
