package service

import (
	"context"
	"log"

	"github.com/jengzang/gobike-dashboard/internal/dataset"
)

// WatchFile reloads the dataset whenever the file at path changes, until ctx
// is cancelled.
func (s *DashboardService) WatchFile(ctx context.Context, w *dataset.FileWatcher) error {
	return w.Watch(ctx, func(path string) {
		log.Printf("[Dashboard] %s changed, reloading", path)
		if _, err := s.Reload(ctx, "watch"); err != nil {
			log.Printf("[Dashboard] Keeping previous dataset: %v", err)
		}
	})
}
